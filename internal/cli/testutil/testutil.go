// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/leapviz/internal/cli/output"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SetupTestProject creates a temporary project with a data directory holding
// the given dataset files, and makes it the working directory.
func SetupTestProject(t *testing.T, datasets ...string) string {
	t.Helper()

	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0750))

	for _, name := range datasets {
		content := "date,region,sales,units\n2024-01-01,north,10,1\n"
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0600))
	}

	t.Chdir(tmpDir)
	return tmpDir
}

// SalesSchema is the schema FakeBackend serves for sales.csv.
func SalesSchema() *core.Schema {
	return &core.Schema{
		Numeric:     []string{"sales", "units"},
		Categorical: []string{"region"},
		Datetime:    []string{"date"},
	}
}

// Request is a call recorded by FakeBackend.
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

// FakeBackend is an httptest visualization backend.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	schemas  map[string]*core.Schema
	healthy  bool
	requests []Request
}

// NewFakeBackend starts a healthy backend that knows sales.csv.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		schemas: map[string]*core.Schema{"sales.csv": SalesSchema()},
		healthy: true,
	}

	r := chi.NewRouter()
	r.Get("/health", fb.handleHealth)
	r.Get("/schema/{dataset}", fb.handleSchema)
	r.Post("/visualize/{dataset}", fb.handleVisualize)
	r.Post("/nlviz/{dataset}", fb.handleNLViz)

	fb.Server = httptest.NewServer(r)
	t.Cleanup(fb.Close)
	return fb
}

// SetHealthy controls the /health status.
func (fb *FakeBackend) SetHealthy(healthy bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.healthy = healthy
}

// SetSchema adds or replaces a dataset schema.
func (fb *FakeBackend) SetSchema(dataset string, s *core.Schema) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.schemas[dataset] = s
}

// Requests returns the figure requests received so far.
func (fb *FakeBackend) Requests() []Request {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Request(nil), fb.requests...)
}

func (fb *FakeBackend) handleHealth(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	healthy := fb.healthy
	fb.mu.Unlock()
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (fb *FakeBackend) handleSchema(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	s, ok := fb.schemas[chi.URLParam(r, "dataset")]
	fb.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "dataset not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schema": s})
}

func (fb *FakeBackend) handleVisualize(w http.ResponseWriter, r *http.Request) {
	body := fb.record(r)
	preset, _ := body["preset"].(string)
	writeJSON(w, http.StatusOK, map[string]any{
		"figure": map[string]any{
			"data":   []map[string]any{{"type": preset}},
			"layout": map[string]any{"title": map[string]any{"text": "Sales by region"}},
		},
	})
}

func (fb *FakeBackend) handleNLViz(w http.ResponseWriter, r *http.Request) {
	fb.record(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"figure": map[string]any{
			"data":   []map[string]any{{"type": "scatter", "mode": "lines"}},
			"layout": map[string]any{},
		},
		"config":         map[string]any{"title": "Monthly sales"},
		"applied_filter": map[string]any{"date_col": "date", "start": "2023-01-01"},
		"explanation":    "Summed sales per month.",
	})
}

func (fb *FakeBackend) record(r *http.Request) map[string]any {
	var body map[string]any
	data, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(data, &body)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.requests = append(fb.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	assert.False(t, ansiPattern.MatchString(s), "string contains ANSI escape codes: %q", s)
}
