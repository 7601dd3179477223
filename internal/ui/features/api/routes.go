package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapviz/internal/notifier"
	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/leapstack-labs/leapviz/internal/state"
	"github.com/leapstack-labs/leapviz/internal/ui/workspace"
)

// SetupRoutes registers the JSON API under /api. allowedOrigins enables
// CORS for pages served from other origins; empty disables it.
func SetupRoutes(
	router chi.Router,
	source schema.Source,
	registry *workspace.Registry,
	store *state.Store,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	allowedOrigins []string,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(source, registry, store, sessionStore, notify, logger)

	router.Route("/api", func(r chi.Router) {
		if len(allowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   allowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}

		r.Get("/datasets", handlers.Datasets)
		r.Get("/schema/{dataset}", handlers.Schema)
		r.Post("/resolve/{dataset}", handlers.Resolve)
		r.Post("/grid", handlers.Grid)
		r.Get("/preferences", handlers.Preferences)
		r.Put("/preferences", handlers.SavePreferences)
	})

	return nil
}
