// Package api provides the JSON endpoints consumed by external page
// containers: dataset listing, schema lookup, spec resolution, grid layout
// and display preferences.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapviz/internal/grid"
	"github.com/leapstack-labs/leapviz/internal/layout"
	"github.com/leapstack-labs/leapviz/internal/notifier"
	"github.com/leapstack-labs/leapviz/internal/resolver"
	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/leapstack-labs/leapviz/internal/state"
	"github.com/leapstack-labs/leapviz/internal/ui/workspace"
	"github.com/leapstack-labs/leapviz/pkg/adapter"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

// maxBodyBytes bounds request bodies; grid requests carry whole figures.
const maxBodyBytes = 8 << 20

// ResolveRequest is the body of POST /api/resolve/{dataset}.
type ResolveRequest struct {
	Preset    string              `json:"preset"`
	Selection core.FieldSelection `json:"selection"`
}

// GridRequest is the body of POST /api/grid. Width and Dark describe the
// client; Preferences, when set, override the session owner's preferences.
type GridRequest struct {
	Charts      []grid.Chart             `json:"charts"`
	Width       int                      `json:"width"`
	Dark        bool                     `json:"dark"`
	Preferences *core.DisplayPreferences `json:"preferences,omitempty"`
}

// PreferencesBody is the wire form of display preferences.
type PreferencesBody struct {
	Theme       string `json:"theme"`
	ChartHeight string `json:"chart_height"`
}

// Handlers provides HTTP handlers for the JSON API.
type Handlers struct {
	source       schema.Source
	registry     *workspace.Registry
	store        *state.Store
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(source schema.Source, registry *workspace.Registry, store *state.Store, sessionStore sessions.Store, notify *notifier.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		source:       source,
		registry:     registry,
		store:        store,
		sessionStore: sessionStore,
		notifier:     notify,
		logger:       logger,
	}
}

// Datasets lists the available dataset ids.
func (h *Handlers) Datasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.source.Datasets(r.Context())
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": datasets})
}

// Schema returns the typed schema of a dataset.
func (h *Handlers) Schema(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")
	s, err := h.schema(r, dataset)
	if err != nil {
		h.fail(w, schemaStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schema": s})
}

// Resolve completes a field selection against a dataset's schema.
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")

	var req ResolveRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	preset := core.DefaultPreset
	if !core.IsAuto(req.Preset) {
		p, err := core.ParsePreset(req.Preset)
		if err != nil {
			h.fail(w, http.StatusBadRequest, err)
			return
		}
		preset = p
	}

	s, err := h.schema(r, dataset)
	if err != nil {
		h.fail(w, schemaStatus(err), err)
		return
	}
	spec, err := resolver.Resolve(s, preset, req.Selection)
	if err != nil {
		h.fail(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"spec":     spec,
		"unfilled": spec.Unfilled(),
	})
}

// Grid lays out charts for the caller's viewport and theme.
func (h *Handlers) Grid(w http.ResponseWriter, r *http.Request) {
	var req GridRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}

	var prefs core.DisplayPreferences
	if req.Preferences != nil {
		prefs = *req.Preferences
	} else {
		ws, err := h.workspace(w, r)
		if err != nil {
			h.fail(w, http.StatusInternalServerError, err)
			return
		}
		prefs = ws.Tracker.Preferences()
	}

	v := layout.Derive(req.Width, prefs)
	writeJSON(w, http.StatusOK, grid.Render(req.Charts, v, prefs.Theme.Resolve(req.Dark)))
}

// Preferences returns the session owner's display preferences.
func (h *Handlers) Preferences(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspace(w, r)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Tracker.Preferences())
}

// SavePreferences validates, persists and applies display preferences.
// Open pages of the owner re-render through their update streams.
func (h *Handlers) SavePreferences(w http.ResponseWriter, r *http.Request) {
	var body PreferencesBody
	if err := decode(w, r, &body); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	theme, err := core.ParseTheme(body.Theme)
	if err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	height, err := core.ParseChartHeight(body.ChartHeight)
	if err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	prefs := core.DisplayPreferences{Theme: theme, ChartHeight: height}

	ws, err := h.workspace(w, r)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.store.SavePreferences(r.Context(), ws.Owner, prefs); err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	ws.Tracker.SetPreferences(prefs)
	h.notifier.Notify(ws.Owner)

	h.logger.Info("preferences saved",
		slog.String("owner", ws.Owner),
		slog.String("theme", string(prefs.Theme)),
		slog.String("chart_height", string(prefs.ChartHeight)))
	writeJSON(w, http.StatusOK, prefs)
}

func (h *Handlers) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, error) {
	owner, err := workspace.OwnerID(w, r, h.sessionStore)
	if err != nil {
		return nil, err
	}
	return h.registry.Get(r.Context(), owner), nil
}

func (h *Handlers) schema(r *http.Request, dataset string) (*core.Schema, error) {
	s, err := h.source.Schema(r.Context(), dataset)
	if err != nil {
		return nil, &core.SchemaUnavailableError{Dataset: dataset, Err: err}
	}
	if err := s.Validate(); err != nil {
		return nil, &core.SchemaUnavailableError{Dataset: dataset, Err: err}
	}
	return s, nil
}

// fail writes err as a {"detail": ...} body, the error shape the
// visualization backend uses too.
func (h *Handlers) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("api request failed", slog.Int("status", status), slog.String("error", err.Error()))
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

// schemaStatus maps a schema lookup failure to a status. Datasets the
// source does not know are 404 whether it is a data file, a table or the
// backend that is missing.
func schemaStatus(err error) int {
	var rf *core.RequestFailedError
	var tnf *adapter.TableNotFoundError
	switch {
	case errors.Is(err, schema.ErrInvalidDataset):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist), errors.As(err, &tnf):
		return http.StatusNotFound
	case errors.As(err, &rf) && rf.Status == http.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
