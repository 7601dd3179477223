package board

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapviz/internal/grid"
	"github.com/leapstack-labs/leapviz/internal/notifier"
	"github.com/leapstack-labs/leapviz/internal/state"
	"github.com/leapstack-labs/leapviz/internal/ui/features/common"
	"github.com/leapstack-labs/leapviz/internal/ui/workspace"
	"github.com/starfederation/datastar-go/datastar"
)

// Handlers provides HTTP handlers for the board feature.
type Handlers struct {
	registry     *workspace.Registry
	store        *state.Store
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	isDev        bool
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *workspace.Registry, store *state.Store, sessionStore sessions.Store, notify *notifier.Notifier, isDev bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		registry:     registry,
		store:        store,
		sessionStore: sessionStore,
		notifier:     notify,
		isDev:        isDev,
		logger:       logger,
	}
}

func (h *Handlers) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, error) {
	owner, err := workspace.OwnerID(w, r, h.sessionStore)
	if err != nil {
		return nil, err
	}
	return h.registry.Get(r.Context(), owner), nil
}

// BoardPage renders the board with the owner's pinned charts.
func (h *Handlers) BoardPage(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspace(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := h.buildViewData(r.Context(), ws)
	shell := common.ShellData{
		Title:       "Board",
		CurrentPath: "/board",
		Theme:       ws.Tracker.Preferences().Theme,
		IsDev:       h.isDev,
	}
	if err := Page(shell, data).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// BoardUpdates re-renders the board when the viewport changes or a chart is
// pinned or removed.
func (h *Handlers) BoardUpdates(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspace(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	resized := ws.Tracker.Subscribe()
	defer ws.Tracker.Unsubscribe(resized)
	updates := h.notifier.Subscribe(ws.Owner)
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-resized:
		case <-updates:
		}
		if err := sse.PatchElementTempl(View(h.buildViewData(ctx, ws))); err != nil {
			_ = sse.ConsoleError(err)
		}
	}
}

// Viewport records the client width and color scheme for the owner. Open
// pages re-render through their update streams when the derived viewport or
// theme changes.
func (h *Handlers) Viewport(w http.ResponseWriter, r *http.Request) {
	var signals common.ViewportSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws, err := h.workspace(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	resized := ws.Tracker.Resize(signals.Width)
	themed := ws.Tracker.SetPrefersDark(signals.Dark)
	if resized || themed {
		h.logger.Debug("viewport changed",
			slog.String("owner", ws.Owner),
			slog.Int("width", signals.Width),
			slog.String("class", string(ws.Tracker.Viewport().Class)))
	}

	script := "document.documentElement.dataset.theme = " + strconv.Quote(string(ws.Tracker.Theme()))
	if err := sse.ExecuteScript(script); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// Clear removes every pinned chart of the owner.
func (h *Handlers) Clear(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspace(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	n, err := h.store.ClearBoard(r.Context(), ws.Owner, "")
	if err != nil {
		h.patch(r.Context(), sse, ws, err.Error())
		return
	}
	h.logger.Info("board cleared", slog.String("owner", ws.Owner), slog.Int64("charts", n))
	h.notifier.Notify(ws.Owner)
	h.patch(r.Context(), sse, ws, "")
}

// Remove deletes one pinned chart.
func (h *Handlers) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ws, err := h.workspace(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	if err := h.store.RemoveChart(r.Context(), ws.Owner, id); err != nil {
		message := err.Error()
		if errors.Is(err, state.ErrChartNotFound) {
			message = "That chart is no longer on the board"
		}
		h.patch(r.Context(), sse, ws, message)
		return
	}
	h.notifier.Notify(ws.Owner)
	h.patch(r.Context(), sse, ws, "")
}

func (h *Handlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, ws *workspace.Workspace, message string) {
	data := h.buildViewData(ctx, ws)
	if message != "" {
		data.Error = message
	}
	if err := sse.PatchElementTempl(View(data)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// buildViewData loads the owner's charts and lays them out for the current
// viewport.
func (h *Handlers) buildViewData(ctx context.Context, ws *workspace.Workspace) ViewData {
	data := ViewData{}

	pinned, err := h.store.BoardCharts(ctx, ws.Owner, "")
	if err != nil {
		h.logger.Error("failed to load board", slog.String("owner", ws.Owner), slog.String("error", err.Error()))
		data.Error = err.Error()
	}
	data.Charts = pinned
	data.Layout = grid.Render(charts(pinned), ws.Tracker.Viewport(), ws.Tracker.Theme())
	return data
}
