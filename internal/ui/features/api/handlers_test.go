package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapviz/internal/grid"
	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/leapstack-labs/leapviz/internal/testutil"
	"github.com/leapstack-labs/leapviz/internal/ui/features"
	"github.com/leapstack-labs/leapviz/pkg/adapter"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

func setupTestRouter(t *testing.T) (chi.Router, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	fixture.Source["dup.csv"] = &core.Schema{Numeric: []string{"id"}, Categorical: []string{"id"}}

	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r,
		fixture.Source,
		fixture.Registry,
		fixture.Store,
		fixture.SessionStore,
		fixture.Notifier,
		[]string{"https://dashboard.example.com"},
		testutil.NewTestLogger(t),
	))
	return r, fixture
}

func do(t *testing.T, r http.Handler, req *http.Request, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestDatasets(t *testing.T) {
	r, f := setupTestRouter(t)

	var got struct {
		Datasets []string `json:"datasets"`
	}
	rec := do(t, r, f.NewRequest(http.MethodGet, "/api/datasets", ""), &got)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"dup.csv", "sales.csv"}, got.Datasets)
}

func TestSchema(t *testing.T) {
	tests := []struct {
		name       string
		dataset    string
		wantStatus int
		wantDetail string
	}{
		{name: "known dataset", dataset: "sales.csv", wantStatus: http.StatusOK},
		{name: "unknown dataset", dataset: "missing.csv", wantStatus: http.StatusNotFound, wantDetail: "schema unavailable"},
		{name: "column in two sets", dataset: "dup.csv", wantStatus: http.StatusBadGateway, wantDetail: "schema unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, f := setupTestRouter(t)

			var got struct {
				Schema *core.Schema `json:"schema"`
				Detail string       `json:"detail"`
			}
			rec := do(t, r, f.NewRequest(http.MethodGet, "/api/schema/"+tt.dataset, ""), &got)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantDetail != "" {
				assert.Contains(t, got.Detail, tt.wantDetail)
				return
			}
			assert.Equal(t, features.SalesSchema, got.Schema)
		})
	}
}

func TestSchemaStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid id", err: fmt.Errorf("%w: %q", schema.ErrInvalidDataset, "../x.csv"), want: http.StatusBadRequest},
		{name: "data file missing", err: fmt.Errorf("dataset sales.csv: %w", os.ErrNotExist), want: http.StatusNotFound},
		{name: "table missing", err: &adapter.TableNotFoundError{Table: "orders"}, want: http.StatusNotFound},
		{name: "backend 404", err: &core.RequestFailedError{Op: core.OpSchema, Status: http.StatusNotFound}, want: http.StatusNotFound},
		{name: "backend 500", err: &core.RequestFailedError{Op: core.OpSchema, Status: http.StatusInternalServerError}, want: http.StatusBadGateway},
		{name: "transport", err: errors.New("connection refused"), want: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &core.SchemaUnavailableError{Dataset: "sales.csv", Err: tt.err}
			assert.Equal(t, tt.want, schemaStatus(err))
		})
	}
}

func TestResolve(t *testing.T) {
	r, f := setupTestRouter(t)

	var got struct {
		Spec     core.ResolvedSpec `json:"spec"`
		Unfilled []core.Role       `json:"unfilled"`
	}
	rec := do(t, r, f.NewRequest(http.MethodPost, "/api/resolve/sales.csv",
		`{"preset":"pie","selection":{"value":"units"}}`), &got)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.PresetPie, got.Spec.Preset)
	assert.Equal(t, "region", got.Spec.Category)
	assert.Equal(t, "units", got.Spec.Value)
	assert.Empty(t, got.Unfilled)
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"unknown preset", "/api/resolve/sales.csv", `{"preset":"sankey"}`, http.StatusBadRequest, `unknown preset "sankey"`},
		{"bad json", "/api/resolve/sales.csv", `{"preset":`, http.StatusBadRequest, "invalid JSON body"},
		{"unknown dataset", "/api/resolve/missing.csv", `{}`, http.StatusNotFound, "schema unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, f := setupTestRouter(t)

			var got struct {
				Detail string `json:"detail"`
			}
			rec := do(t, r, f.NewRequest(http.MethodPost, tt.path, tt.body), &got)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, got.Detail, tt.wantDetail)
		})
	}
}

func TestGrid(t *testing.T) {
	tests := []struct {
		name       string
		charts     int
		width      int
		wantHeight int
		wantClass  core.ViewportClass
	}{
		{"three charts are boosted", 3, 1024, grid.BoostedHeight, core.ViewportLG},
		{"two charts are not", 2, 1024, 480, core.ViewportLG},
		{"narrow viewport", 1, 375, 300, core.ViewportXS},
		{"missing width uses the default", 1, 0, 480, core.ViewportLG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, f := setupTestRouter(t)

			req := GridRequest{Width: tt.width}
			for range tt.charts {
				req.Charts = append(req.Charts, grid.Chart{Figure: features.SampleFigure()})
			}
			body, err := json.Marshal(req)
			require.NoError(t, err)

			var got grid.Layout
			rec := do(t, r, f.NewRequest(http.MethodPost, "/api/grid", string(body)), &got)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantClass, got.Viewport.Class)
			require.Len(t, got.Panels, tt.charts)
			for _, p := range got.Panels {
				assert.Equal(t, tt.wantHeight, p.Height)
				assert.Equal(t, "Revenue by region", p.Title)
				assert.EqualValues(t, tt.wantHeight, p.Figure.Layout["height"])
			}
		})
	}
}

func TestGrid_EmptyAndPreferenceOverride(t *testing.T) {
	r, f := setupTestRouter(t)

	var got grid.Layout
	rec := do(t, r, f.NewRequest(http.MethodPost, "/api/grid",
		`{"charts":[],"width":1300,"dark":true,"preferences":{"theme":"auto","chart_height":"large"}}`), &got)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.Empty())
	assert.Equal(t, grid.EmptyTitle, got.Panels[0].Title)
	assert.Equal(t, 600, got.Panels[0].Height)
	assert.Equal(t, core.ThemeDark, got.Theme)
}

func TestPreferences_RoundTrip(t *testing.T) {
	r, f := setupTestRouter(t)

	var prefs core.DisplayPreferences
	rec := do(t, r, f.NewRequest(http.MethodGet, "/api/preferences", ""), &prefs)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.DefaultDisplayPreferences(), prefs)

	updates := f.Notifier.Subscribe(f.Owner)
	defer f.Notifier.Unsubscribe(updates)

	rec = do(t, r, f.NewRequest(http.MethodPut, "/api/preferences", `{"theme":"dark","chart_height":"small"}`), &prefs)
	assert.Equal(t, http.StatusOK, rec.Code)
	want := core.DisplayPreferences{Theme: core.ThemeDark, ChartHeight: core.ChartHeightSmall}
	assert.Equal(t, want, prefs)

	select {
	case <-updates:
	default:
		t.Fatal("saving preferences should notify the owner's pages")
	}

	stored, err := f.Store.Preferences(context.Background(), f.Owner)
	require.NoError(t, err)
	assert.Equal(t, want, stored)

	v := f.Workspace().Tracker.Viewport()
	assert.Equal(t, 300, v.PlotHeight, "the live tracker picks up the new height")
	assert.Equal(t, core.ThemeDark, f.Workspace().Tracker.Theme())
}

func TestSavePreferences_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown theme", `{"theme":"sepia"}`},
		{"unknown height", `{"theme":"light","chart_height":"huge"}`},
		{"not json", `theme=dark`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, f := setupTestRouter(t)

			var got struct {
				Detail string `json:"detail"`
			}
			rec := do(t, r, f.NewRequest(http.MethodPut, "/api/preferences", tt.body), &got)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, got.Detail)

			_, found, err := f.Store.LookupPreferences(context.Background(), f.Owner)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestCORS(t *testing.T) {
	r, f := setupTestRouter(t)

	req := f.NewRequest(http.MethodGet, "/api/datasets", "")
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := do(t, r, req, nil)

	assert.Equal(t, "https://dashboard.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = f.NewRequest(http.MethodGet, "/api/datasets", "")
	req.Header.Set("Origin", "https://elsewhere.example.com")
	rec = do(t, r, req, nil)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
