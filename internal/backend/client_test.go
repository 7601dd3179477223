package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leapstack-labs/leapviz/internal/testutil"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, AuthToken: "secret", Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "http://localhost:8000/", BreakerThreshold: -1})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
	assert.Equal(t, "disabled", c.BreakerState())
}

func TestClient_Schema(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/schema/sales 2024.csv", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"schema":{"numeric":["sales"],"categorical":["region"],"datetime":["date"]}}`)
	}))

	schema, err := c.Schema(context.Background(), "sales 2024.csv")
	require.NoError(t, err)
	assert.Equal(t, &core.Schema{
		Numeric:     []string{"sales"},
		Categorical: []string{"region"},
		Datetime:    []string{"date"},
	}, schema)
}

func TestClient_Visualize(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/visualize/sales.csv", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, map[string]any{"preset": "bar", "x": "region", "y": "sales", "agg": "sum", "top_n": float64(20)}, got)

		_, _ = io.WriteString(w, `{"figure":{"data":[{"type":"bar"}],"layout":{"title":{"text":"Sales"}}}}`)
	}))

	spec := core.ResolvedSpec{Preset: core.PresetBar, X: "region", Y: "sales", Agg: core.AggSum, TopN: 20}
	res, err := c.Visualize(context.Background(), "sales.csv", spec)
	require.NoError(t, err)
	assert.Nil(t, res.Interpretation)
	assert.Equal(t, "Sales", res.Figure.TitleText())
	require.Len(t, res.Figure.Data, 1)
}

func TestClient_NLViz(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got nlvizRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "sales by month", got.Prompt)
		_, _ = io.WriteString(w, `{
			"figure": {"data": [], "layout": {}},
			"config": {"preset": "time_series", "title": "Sales by month"},
			"applied_filter": {"date_col": "date", "start": "2024-01-01", "end": null},
			"explanation": "Detected monthly trend."
		}`)
	}))

	res, err := c.NLViz(context.Background(), "sales.csv", "sales by month")
	require.NoError(t, err)
	require.NotNil(t, res.Interpretation)
	assert.Equal(t, "Sales by month", res.Interpretation.Title())
	assert.Equal(t, &core.TimeFilter{DateColumn: "date", Start: "2024-01-01"}, res.Interpretation.AppliedFilter)
	assert.Equal(t, "Detected monthly trend.", res.Interpretation.Explanation)
}

func TestClient_FailureDetail(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		op      func(c *Client) error
		wantMsg string
	}{
		{
			name:   "visualize detail",
			status: http.StatusBadRequest,
			body:   `{"detail":"column not found"}`,
			op: func(c *Client) error {
				_, err := c.Visualize(context.Background(), "d.csv", core.ResolvedSpec{Preset: core.PresetBar})
				return err
			},
			wantMsg: "Visualization failed: column not found",
		},
		{
			name:   "nlviz unparseable body",
			status: http.StatusInternalServerError,
			body:   `<html>boom</html>`,
			op: func(c *Client) error {
				_, err := c.NLViz(context.Background(), "d.csv", "x")
				return err
			},
			wantMsg: "NL Viz failed: unknown error",
		},
		{
			name:   "schema not found",
			status: http.StatusNotFound,
			body:   `{"detail":"File not found"}`,
			op: func(c *Client) error {
				_, err := c.Schema(context.Background(), "d.csv")
				return err
			},
			wantMsg: "Schema fetch failed: File not found",
		},
		{
			name:   "empty success body",
			status: http.StatusOK,
			body:   ``,
			op: func(c *Client) error {
				_, err := c.Visualize(context.Background(), "d.csv", core.ResolvedSpec{Preset: core.PresetBar})
				return err
			},
			wantMsg: "Visualization failed: Empty response from server",
		},
		{
			name:   "invalid json success body",
			status: http.StatusOK,
			body:   `{"figure":`,
			op: func(c *Client) error {
				_, err := c.Visualize(context.Background(), "d.csv", core.ResolvedSpec{Preset: core.PresetBar})
				return err
			},
			wantMsg: `Visualization failed: Invalid JSON response: {"figure":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			err := tt.op(c)
			require.Error(t, err)
			var reqErr *core.RequestFailedError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.status, reqErr.Status)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestClient_TransportFailureOpensBreaker(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, BreakerThreshold: 2})
	require.NoError(t, err)

	closed := c.BreakerState()
	for i := 0; i < 3; i++ {
		_, err := c.Schema(context.Background(), "d.csv")
		var reqErr *core.RequestFailedError
		require.ErrorAs(t, err, &reqErr)
		assert.Zero(t, reqErr.Status)
		assert.Contains(t, err.Error(), "Schema fetch failed: ")
	}
	assert.NotEqual(t, closed, c.BreakerState())
}

func TestClient_Health(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			_, _ = io.WriteString(w, `{"status":"ok"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	assert.NoError(t, c.Health(context.Background()))
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"column not found"}`, "column not found"},
		{`{"detail":""}`, "unknown error"},
		{`{"detail":null}`, "unknown error"},
		{`{"detail":[{"loc":["body"],"msg":"field required"}]}`, `[{"loc":["body"],"msg":"field required"}]`},
		{`{"error":"x"}`, "unknown error"},
		{`not json`, "unknown error"},
		{``, "unknown error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDetail([]byte(tt.body)), tt.body)
	}
}
