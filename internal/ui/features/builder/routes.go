package builder

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapviz/internal/notifier"
	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/leapstack-labs/leapviz/internal/state"
	"github.com/leapstack-labs/leapviz/internal/ui/workspace"
)

// SetupRoutes registers builder routes on the router.
func SetupRoutes(
	router chi.Router,
	registry *workspace.Registry,
	datasets schema.Lister,
	store *state.Store,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	isDev bool,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(registry, datasets, store, sessionStore, notify, isDev, logger)

	// Page routes (full page render)
	router.Get("/builder", handlers.BuilderPage)

	// SSE routes (long-lived streams)
	router.Get("/builder/updates", handlers.BuilderUpdates)

	// Actions
	router.Post("/builder/dataset", handlers.SelectDataset)
	router.Post("/builder/select", handlers.Select)
	router.Post("/builder/ask", handlers.Ask)
	router.Post("/builder/build", handlers.Build)
	router.Post("/builder/pin", handlers.Pin)

	return nil
}
