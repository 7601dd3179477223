package builder

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	vizbuilder "github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/leapstack-labs/leapviz/internal/grid"
	"github.com/leapstack-labs/leapviz/internal/notifier"
	"github.com/leapstack-labs/leapviz/internal/resolver"
	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/leapstack-labs/leapviz/internal/state"
	"github.com/leapstack-labs/leapviz/internal/ui/features/common"
	"github.com/leapstack-labs/leapviz/internal/ui/workspace"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

// Handlers provides HTTP handlers for the builder feature.
type Handlers struct {
	registry     *workspace.Registry
	datasets     schema.Lister
	store        *state.Store
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	isDev        bool
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(registry *workspace.Registry, datasets schema.Lister, store *state.Store, sessionStore sessions.Store, notify *notifier.Notifier, isDev bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		registry:     registry,
		datasets:     datasets,
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

// BuilderPage renders the builder page with its current state.
func (h *Handlers) BuilderPage(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspace(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := h.buildViewData(r.Context(), ws)
	shell := common.ShellData{
		Title:       "Builder",
		CurrentPath: "/builder",
		Theme:       ws.Tracker.Preferences().Theme,
		IsDev:       h.isDev,
	}
	if err := Page(shell, data).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// BuilderUpdates is the long-lived SSE endpoint of the builder page. It
// re-renders the result when the viewport, theme or dataset list changes.
func (h *Handlers) BuilderUpdates(w http.ResponseWriter, r *http.Request) {
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

// SelectDataset switches the builder to the dataset in the signals.
func (h *Handlers) SelectDataset(w http.ResponseWriter, r *http.Request) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElementTempl(common.Alert("builder-error", "Failed to read signals: "+err.Error()))
		return
	}
	ws, err := h.workspace(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	var message string
	if signals.Dataset != "" {
		if err := ws.Builder.SelectDataset(r.Context(), signals.Dataset); err != nil && !errors.Is(err, vizbuilder.ErrStaleResult) {
			message = err.Error()
		}
	}
	h.patch(r.Context(), sse, ws, message, "")
}

// Select applies the structured form (preset and fields) and switches the
// builder to structured mode.
func (h *Handlers) Select(w http.ResponseWriter, r *http.Request) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElementTempl(common.Alert("builder-error", "Failed to read signals: "+err.Error()))
		return
	}
	ws, err := h.workspace(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	var message string
	if err := ws.Builder.Update(func(c *vizbuilder.Controller) error { return applyForm(c, signals) }); err != nil {
		message = err.Error()
	}
	h.patch(r.Context(), sse, ws, message, "")
}

// Ask forces natural-language mode with the prompt and builds.
func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	h.build(w, r, func(c *vizbuilder.Controller, s Signals) error {
		c.Ask(s.Prompt)
		return nil
	})
}

// Build builds in the current mode. The prompt text is stored but the mode
// is left as is.
func (h *Handlers) Build(w http.ResponseWriter, r *http.Request) {
	h.build(w, r, func(c *vizbuilder.Controller, s Signals) error {
		c.SetPrompt(s.Prompt)
		if c.UsingNaturalLanguage() {
			return nil
		}
		return applyForm(c, s)
	})
}

func (h *Handlers) build(w http.ResponseWriter, r *http.Request, prepare func(c *vizbuilder.Controller, s Signals) error) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElementTempl(common.Alert("builder-error", "Failed to read signals: "+err.Error()))
		return
	}
	ws, err := h.workspace(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	if err := ws.Builder.Update(func(c *vizbuilder.Controller) error { return prepare(c, signals) }); err != nil {
		h.patch(r.Context(), sse, ws, err.Error(), "")
		return
	}

	var message string
	if _, err := ws.Builder.Build(r.Context()); err != nil {
		h.logger.Debug("build failed", slog.String("owner", ws.Owner), slog.String("error", err.Error()))
		message = err.Error()
	}
	h.patch(r.Context(), sse, ws, message, "")
}

// Pin stores the current result on the owner's board.
func (h *Handlers) Pin(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspace(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	st := ws.Builder.Snapshot()
	if st.Result == nil {
		h.patch(r.Context(), sse, ws, "Nothing to pin yet: build a chart first", "")
		return
	}

	title := st.Result.Interpretation.Title()
	if title == "" {
		title = st.Result.Figure.TitleText()
	}
	chart, err := h.store.PinChart(r.Context(), state.BoardChart{
		Owner:          ws.Owner,
		Dataset:        st.Dataset,
		Title:          title,
		Figure:         st.Result.Figure,
		Interpretation: st.Result.Interpretation,
	})
	if err != nil {
		h.patch(r.Context(), sse, ws, err.Error(), "")
		return
	}

	h.logger.Info("chart pinned", slog.String("owner", ws.Owner), slog.String("chart", chart.ID))
	h.notifier.Notify(ws.Owner)
	h.patch(r.Context(), sse, ws, "", "Pinned to board")
}

func (h *Handlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, ws *workspace.Workspace, message, notice string) {
	data := h.buildViewData(ctx, ws)
	if message != "" {
		data.Error = message
	}
	data.Notice = notice
	if err := sse.PatchElementTempl(View(data)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// buildViewData assembles the builder view for a workspace.
func (h *Handlers) buildViewData(ctx context.Context, ws *workspace.Workspace) ViewData {
	st := ws.Builder.Snapshot()
	data := ViewData{State: st}

	datasets, err := h.datasets.Datasets(ctx)
	if err != nil {
		h.logger.Warn("failed to list datasets", slog.String("error", err.Error()))
	}
	data.Datasets = datasets

	if st.Schema != nil {
		entry := resolver.Describe(st.Schema, st.Preset)
		data.Entry = &entry
	}
	if st.Err != nil {
		data.Error = st.Err.Error()
	}
	if st.Result != nil {
		l := grid.Render([]grid.Chart{{
			ID:     "result",
			Title:  st.Result.Interpretation.Title(),
			Figure: st.Result.Figure,
		}}, ws.Tracker.Viewport(), ws.Tracker.Theme())
		data.Result = &l
	}
	return data
}

// applyForm copies the structured form into the controller.
func applyForm(c *vizbuilder.Controller, s Signals) error {
	preset := c.Preset()
	if !core.IsAuto(s.Preset) {
		p, err := core.ParsePreset(s.Preset)
		if err != nil {
			return err
		}
		preset = p
	}
	if err := c.SelectPreset(preset); err != nil {
		return err
	}
	for _, role := range []core.Role{
		core.RoleX, core.RoleY, core.RoleCategory, core.RoleValue, core.RoleStage,
		core.RoleAgg, core.RoleTimeGrain, core.RoleTopN,
	} {
		if err := c.SelectField(role, s.field(role)); err != nil {
			return err
		}
	}
	return nil
}
