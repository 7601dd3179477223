// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/leapstack-labs/leapviz/internal/notifier"
	"github.com/leapstack-labs/leapviz/internal/state"
	"github.com/leapstack-labs/leapviz/internal/testutil"
	"github.com/leapstack-labs/leapviz/internal/ui/workspace"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

// SalesSchema is the schema of the "sales.csv" fixture dataset.
var SalesSchema = &core.Schema{
	Numeric:     []string{"revenue", "units"},
	Categorical: []string{"region", "product"},
	Datetime:    []string{"order_date"},
}

// SampleFigure returns a small bar figure as the backend would send it.
func SampleFigure() core.Figure {
	return core.Figure{
		Data: []map[string]any{{"type": "bar", "x": []any{"north", "south"}, "y": []any{10, 20}}},
		Layout: map[string]any{
			"title":  map[string]any{"text": "Revenue by region"},
			"height": 900,
		},
	}
}

// StaticSource serves fixed schemas.
type StaticSource map[string]*core.Schema

// Schema implements schema.Provider.
func (s StaticSource) Schema(_ context.Context, dataset string) (*core.Schema, error) {
	if sc, ok := s[dataset]; ok {
		return sc, nil
	}
	return nil, fmt.Errorf("dataset %s: %w", dataset, os.ErrNotExist)
}

// Datasets implements schema.Lister.
func (s StaticSource) Datasets(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// FakeBackend records requests and answers with a fixed result or error.
type FakeBackend struct {
	mu         sync.Mutex
	Visualized []core.ResolvedSpec
	Prompts    []string
	Result     *core.VisualizationResult
	Err        error
}

// Visualize implements builder.Backend.
func (f *FakeBackend) Visualize(_ context.Context, _ string, spec core.ResolvedSpec) (*core.VisualizationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Visualized = append(f.Visualized, spec)
	return f.answer()
}

// NLViz implements builder.Backend.
func (f *FakeBackend) NLViz(_ context.Context, _ string, prompt string) (*core.VisualizationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	return f.answer()
}

func (f *FakeBackend) answer() (*core.VisualizationResult, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result == nil {
		return &core.VisualizationResult{Figure: SampleFigure()}, nil
	}
	res := *f.Result
	return &res, nil
}

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Store        *state.Store
	Source       StaticSource
	Backend      *FakeBackend
	Registry     *workspace.Registry
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore

	// Owner is the session owner every fixture request is sent as.
	Owner   string
	cookies []*http.Cookie
}

// SetupTestFixture creates a fixture with an in-memory state store, the
// "sales.csv" dataset and a backend answering with SampleFigure.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)

	store, err := state.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	source := StaticSource{"sales.csv": SalesSchema}
	backend := &FakeBackend{}
	registry := workspace.NewRegistry(func() *builder.Builder {
		return builder.New(source, builder.NewDispatcher(backend, logger), logger)
	}, store, core.DefaultDisplayPreferences(), logger)

	f := &TestFixture{
		Store:        store,
		Source:       source,
		Backend:      backend,
		Registry:     registry,
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
	}

	// Establish a session so every request shares one owner.
	rec := httptest.NewRecorder()
	f.Owner, err = workspace.OwnerID(rec, httptest.NewRequest(http.MethodGet, "/", nil), f.SessionStore)
	require.NoError(t, err)
	f.cookies = rec.Result().Cookies()
	require.NotEmpty(t, f.cookies)

	return f
}

// Workspace returns the fixture owner's workspace.
func (f *TestFixture) Workspace() *workspace.Workspace {
	return f.Registry.Get(context.Background(), f.Owner)
}

// NewRequest creates a request carrying the fixture session cookie.
// A non-empty body is sent as JSON.
func (f *TestFixture) NewRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	return req
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// RequestWithTimeout wraps a request with a context timeout.
func RequestWithTimeout(r *http.Request, timeout time.Duration) *http.Request {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	_ = cancel // the timeout cancels the context
	return r.WithContext(ctx)
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
