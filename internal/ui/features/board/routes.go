package board

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapviz/internal/notifier"
	"github.com/leapstack-labs/leapviz/internal/state"
	"github.com/leapstack-labs/leapviz/internal/ui/workspace"
)

// SetupRoutes registers board routes on the router.
func SetupRoutes(
	router chi.Router,
	registry *workspace.Registry,
	store *state.Store,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	isDev bool,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(registry, store, sessionStore, notify, isDev, logger)

	// Page routes (full page render)
	router.Get("/board", handlers.BoardPage)

	// SSE routes (long-lived streams)
	router.Get("/board/updates", handlers.BoardUpdates)

	// Actions
	router.Post("/board/viewport", handlers.Viewport)
	router.Post("/board/clear", handlers.Clear)
	router.Post("/board/remove/{id}", handlers.Remove)

	return nil
}
