package workspace

import "github.com/go-chi/chi/v5"

// SetupRoutes configures routes for the workspace feature.
func SetupRoutes(router chi.Router, cfg Config) *Handlers {
	handlers := NewHandlers(cfg)

	router.Get("/", handlers.Page)
	router.Get("/workspace/sse", handlers.Refresh)
	router.Get("/workspace/updates", handlers.Updates)

	router.Route("/api", func(r chi.Router) {
		r.Post("/tabs", handlers.AddTab)
		r.Post("/tabs/{id}", handlers.UpdateTab)
		r.Delete("/tabs/{id}", handlers.CloseTab)
		r.Post("/tabs/{id}/activate", handlers.ActivateTab)

		r.Post("/workspace/save", handlers.Save)
		r.Post("/workspace/run", handlers.Run)
		r.Post("/workspace/popstate", handlers.PopState)
		r.Get("/workspace/export", handlers.Export)

		r.Post("/identity", handlers.SetIdentity)
		r.Delete("/identity", handlers.ClearIdentity)
	})

	return handlers
}

// Windows returns the registry of open windows.
func (h *Handlers) Windows() *Windows {
	return h.windows
}
