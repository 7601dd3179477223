// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapviz/internal/notifier"
	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/leapstack-labs/leapviz/internal/state"
	apiFeature "github.com/leapstack-labs/leapviz/internal/ui/features/api"
	boardFeature "github.com/leapstack-labs/leapviz/internal/ui/features/board"
	builderFeature "github.com/leapstack-labs/leapviz/internal/ui/features/builder"
	"github.com/leapstack-labs/leapviz/internal/ui/resources"
	"github.com/leapstack-labs/leapviz/internal/ui/workspace"
	"github.com/starfederation/datastar-go/datastar"
)

// Deps are the shared dependencies of every feature.
type Deps struct {
	Source         schema.Source
	Registry       *workspace.Registry
	Store          *state.Store
	SessionStore   sessions.Store
	Notifier       *notifier.Notifier
	AllowedOrigins []string
	IsDev          bool
	Logger         *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, deps Deps) error {
	// Hot reload endpoint for dev mode
	if deps.IsDev {
		setupReload(router)
	}

	// Static assets
	router.Handle("/static/*", resources.Handler(deps.Logger))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/builder", http.StatusFound)
	})

	// Feature routes
	if err := builderFeature.SetupRoutes(router, deps.Registry, deps.Source, deps.Store, deps.SessionStore, deps.Notifier, deps.IsDev, deps.Logger); err != nil {
		return err
	}

	if err := boardFeature.SetupRoutes(router, deps.Registry, deps.Store, deps.SessionStore, deps.Notifier, deps.IsDev, deps.Logger); err != nil {
		return err
	}

	if err := apiFeature.SetupRoutes(router, deps.Source, deps.Registry, deps.Store, deps.SessionStore, deps.Notifier, deps.AllowedOrigins, deps.Logger); err != nil {
		return err
	}

	return nil
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
