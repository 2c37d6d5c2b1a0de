// Package ui serves the query workspace as a local web application.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/shaped-ai/playground/internal/config"
	workspaceFeature "github.com/shaped-ai/playground/internal/ui/features/workspace"
	"github.com/shaped-ai/playground/internal/ui/notifier"
	"github.com/shaped-ai/playground/internal/ui/router"
	"github.com/shaped-ai/playground/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Default window lifetimes.
const (
	DefaultWindowTTL    = 30 * time.Minute
	windowSweepPeriod   = time.Minute
	shutdownTimeout     = 5 * time.Second
	sessionCookieMaxAge = 86400 * 30 // 30 days
)

// Server is the main UI server.
type Server struct {
	store        core.PartitionStore
	sessionStore *sessions.CookieStore
	port         int
	defaults     config.TabDefaults
	windows      *workspaceFeature.Windows
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Store         core.PartitionStore
	Port          int
	SessionSecret string
	Defaults      config.TabDefaults
	// WindowTTL is how long a window may stay silent before its session is
	// dropped. Defaults to DefaultWindowTTL.
	WindowTTL time.Duration
	Logger    *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(sessionCookieMaxAge)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	ttl := cfg.WindowTTL
	if ttl <= 0 {
		ttl = DefaultWindowTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		store:        cfg.Store,
		sessionStore: sessionStore,
		port:         cfg.Port,
		defaults:     cfg.Defaults,
		windows:      workspaceFeature.NewWindows(ttl),
		logger:       logger,
		notifier:     notifier.New(),
	}
}

// Handler builds the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	router.SetupRoutes(r, workspaceFeature.Config{
		Store:        s.store,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		Windows:      s.windows,
		Defaults:     s.defaults,
		Logger:       s.logger,
	})
	return r
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", s.URL())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Expire idle windows
	eg.Go(func() error {
		return s.windows.Run(egctx, windowSweepPeriod)
	})

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		err := srv.Shutdown(shutdownCtx)
		s.windows.CloseAll()
		return err
	})

	return eg.Wait()
}

// URL returns the address the server listens on.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Windows returns the registry of open windows.
func (s *Server) Windows() *workspaceFeature.Windows {
	return s.windows
}
