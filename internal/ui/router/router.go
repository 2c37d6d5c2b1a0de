// Package router sets up HTTP routes for the UI server.
package router

import (
	"github.com/go-chi/chi/v5"
	workspaceFeature "github.com/shaped-ai/playground/internal/ui/features/workspace"
	"github.com/shaped-ai/playground/internal/ui/resources"
)

// SetupRoutes configures all routes for the UI server and returns the
// workspace handlers so the server can run their background work.
func SetupRoutes(router chi.Router, cfg workspaceFeature.Config) *workspaceFeature.Handlers {
	// Static assets
	router.Handle("/static/*", resources.Handler())

	return workspaceFeature.SetupRoutes(router, cfg)
}
