// Package ui provides the web UI of LeapViz: the chart builder, the board of
// pinned charts and the JSON API for external page containers.
package ui

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate -path ./features

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/leapstack-labs/leapviz/internal/notifier"
	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/leapstack-labs/leapviz/internal/state"
	"github.com/leapstack-labs/leapviz/internal/ui/router"
	"github.com/leapstack-labs/leapviz/internal/ui/workspace"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"golang.org/x/sync/errgroup"
)

// watchDebounce coalesces bursts of file events (editors write in several steps).
const watchDebounce = 100 * time.Millisecond

// forgetter is implemented by providers that cache per-dataset state.
type forgetter interface {
	Forget(dataset string)
}

// Server is the main UI server.
type Server struct {
	source         schema.Source
	store          *state.Store
	sessionStore   *sessions.CookieStore
	registry       *workspace.Registry
	notifier       *notifier.Notifier
	port           int
	watch          bool
	dataDir        string
	allowedOrigins []string
	dev            bool
	logger         *slog.Logger
}

// Config holds configuration for the UI server.
type Config struct {
	// Source lists datasets and provides their schemas.
	Source schema.Source
	// Backend builds figures.
	Backend builder.Backend
	// Store persists preferences and the board.
	Store *state.Store

	Port           int
	Watch          bool
	DataDir        string
	SessionSecret  string
	AllowedOrigins []string
	// Defaults are the display preferences of owners who never saved any.
	Defaults core.DisplayPreferences
	Dev      bool
	Logger   *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	dispatcher := builder.NewDispatcher(cfg.Backend, logger)
	registry := workspace.NewRegistry(func() *builder.Builder {
		return builder.New(cfg.Source, dispatcher, logger)
	}, cfg.Store, cfg.Defaults, logger)

	return &Server{
		source:         cfg.Source,
		store:          cfg.Store,
		sessionStore:   sessionStore,
		registry:       registry,
		notifier:       notifier.New(),
		port:           cfg.Port,
		watch:          cfg.Watch,
		dataDir:        cfg.DataDir,
		allowedOrigins: cfg.AllowedOrigins,
		dev:            cfg.Dev,
		logger:         logger,
	}
}

// Handler builds the HTTP handler with all middleware and routes.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	deps := router.Deps{
		Source:         s.source,
		Registry:       s.registry,
		Store:          s.store,
		SessionStore:   s.sessionStore,
		Notifier:       s.notifier,
		AllowedOrigins: s.allowedOrigins,
		IsDev:          s.dev,
		Logger:         s.logger,
	}
	if err := router.SetupRoutes(r, deps); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start file watcher if enabled
	if s.watch && s.dataDir != "" {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev returns true if running in development mode.
func (s *Server) IsDev() bool {
	return s.dev
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Registry returns the per-owner workspaces.
func (s *Server) Registry() *workspace.Registry {
	return s.registry
}

// watchFiles watches the data directory. Changed datasets are dropped from
// the provider cache and every open page is told to re-render.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dataDir); err != nil {
		s.logger.Error("failed to watch data directory", "dir", s.dataDir, "error", err)
		// Don't fail - continue without watching
		<-ctx.Done()
		return nil
	}

	var (
		mu            sync.Mutex
		pending       = map[string]struct{}{}
		debounceTimer *time.Timer
	)
	flush := func() {
		mu.Lock()
		changed := pending
		pending = map[string]struct{}{}
		mu.Unlock()

		s.dataChanged(changed)
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if !relevant(event) || !schema.IsDataFile(name) {
				continue
			}

			mu.Lock()
			pending[name] = struct{}{}
			mu.Unlock()

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, flush)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// dataChanged invalidates cached schemas of changed datasets and pings all
// clients so dataset lists and charts refresh.
func (s *Server) dataChanged(datasets map[string]struct{}) {
	if len(datasets) == 0 {
		return
	}
	f, canForget := s.source.(forgetter)
	for name := range datasets {
		s.logger.Debug("dataset changed", "dataset", name)
		if canForget {
			f.Forget(name)
		}
	}
	s.notifier.NotifyAll()
}

func relevant(event fsnotify.Event) bool {
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
