// Package backend is the HTTP client of the visualization backend.
//
// The backend owns column-type inference and chart computation. This package
// only speaks its wire contract:
//
//	GET  {base}/schema/{dataset}     -> {"schema": {...}}
//	POST {base}/visualize/{dataset}  ResolvedSpec -> {"figure": {...}}
//	POST {base}/nlviz/{dataset}      {"prompt": ...} -> {"figure", "config", "applied_filter", "explanation"}
//
// Failures carry {"detail": ...} and are reported as *core.RequestFailedError.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

// Malformed success bodies.
const (
	DetailEmptyResponse = "Empty response from server"
	DetailInvalidJSON   = "Invalid JSON response"
)

const (
	defaultBreakerThreshold = 5
	defaultBreakerTimeout   = 30 * time.Second
	maxBodyBytes            = 32 << 20
	maxSnippet              = 100
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	AuthToken string
	// Timeout bounds a single request. Zero leaves it to the transport.
	Timeout time.Duration
	// BreakerThreshold is the number of consecutive transport failures that
	// open the circuit. Zero uses the default; negative disables the breaker.
	BreakerThreshold int
	BreakerTimeout   time.Duration
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Client calls the visualization backend.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	breaker circuitbreaker.CircuitBreaker[*response]
	logger  *slog.Logger
}

// response is a raw backend reply. Every HTTP status is a successful
// transport round trip as far as the breaker is concerned.
type response struct {
	status int
	body   []byte
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("backend URL not configured")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", cfg.BaseURL)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		base:   base,
		token:  cfg.AuthToken,
		http:   httpClient,
		logger: logger,
	}

	if cfg.BreakerThreshold >= 0 {
		threshold := cfg.BreakerThreshold
		if threshold == 0 {
			threshold = defaultBreakerThreshold
		}
		timeout := cfg.BreakerTimeout
		if timeout <= 0 {
			timeout = defaultBreakerTimeout
		}
		c.breaker = circuitbreaker.New[*response](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    timeout,
			Timeout:     timeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold is positive
			},
		})
	}

	return c, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// BreakerState reports the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

type schemaResponse struct {
	Schema *core.Schema `json:"schema"`
}

// Schema fetches the semantic column classification of a dataset.
func (c *Client) Schema(ctx context.Context, dataset string) (*core.Schema, error) {
	resp, err := c.call(ctx, core.OpSchema, http.MethodGet, "schema", dataset, nil)
	if err != nil {
		return nil, err
	}

	var out schemaResponse
	if err := decodeBody(core.OpSchema, resp, &out); err != nil {
		return nil, err
	}
	if out.Schema == nil {
		return nil, &core.RequestFailedError{Op: core.OpSchema, Status: resp.status, Detail: "response has no schema"}
	}
	return out.Schema, nil
}

type figureResponse struct {
	Figure        *core.Figure     `json:"figure"`
	Config        map[string]any   `json:"config"`
	AppliedFilter *core.TimeFilter `json:"applied_filter"`
	Explanation   string           `json:"explanation"`
}

// Visualize renders a structured chart specification.
func (c *Client) Visualize(ctx context.Context, dataset string, spec core.ResolvedSpec) (*core.VisualizationResult, error) {
	resp, err := c.call(ctx, core.OpVisualize, http.MethodPost, "visualize", dataset, spec)
	if err != nil {
		return nil, err
	}

	var out figureResponse
	if err := decodeBody(core.OpVisualize, resp, &out); err != nil {
		return nil, err
	}
	if out.Figure == nil {
		return nil, &core.RequestFailedError{Op: core.OpVisualize, Status: resp.status, Detail: "response has no figure"}
	}
	return &core.VisualizationResult{Figure: *out.Figure}, nil
}

type nlvizRequest struct {
	Prompt string `json:"prompt"`
}

// NLViz asks the backend to interpret a natural-language prompt and chart it.
func (c *Client) NLViz(ctx context.Context, dataset, prompt string) (*core.VisualizationResult, error) {
	resp, err := c.call(ctx, core.OpNLViz, http.MethodPost, "nlviz", dataset, nlvizRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}

	var out figureResponse
	if err := decodeBody(core.OpNLViz, resp, &out); err != nil {
		return nil, err
	}
	if out.Figure == nil {
		return nil, &core.RequestFailedError{Op: core.OpNLViz, Status: resp.status, Detail: "response has no figure"}
	}
	return &core.VisualizationResult{
		Figure: *out.Figure,
		Interpretation: &core.Interpretation{
			Config:        out.Config,
			AppliedFilter: out.AppliedFilter,
			Explanation:   out.Explanation,
		},
	}, nil
}

// Health checks that the backend answers GET /health.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.roundTrip(ctx, http.MethodGet, c.base.JoinPath("health").String(), nil)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	if resp.status < 200 || resp.status > 299 {
		return fmt.Errorf("backend health check returned status %d", resp.status)
	}
	return nil
}

// call performs one backend operation and converts non-success statuses
// into *core.RequestFailedError.
func (c *Client) call(ctx context.Context, op core.Operation, method, endpoint, dataset string, payload any) (*response, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, &core.RequestFailedError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
	}

	target := c.base.JoinPath(endpoint, url.PathEscape(dataset)).String()
	start := time.Now()
	resp, err := c.roundTrip(ctx, method, target, body)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "dataset", dataset, "error", err)
		return nil, &core.RequestFailedError{Op: op, Err: err}
	}

	c.logger.Debug("backend request",
		"op", op,
		"dataset", dataset,
		"status", resp.status,
		"duration", time.Since(start))

	if resp.status < 200 || resp.status > 299 {
		return nil, &core.RequestFailedError{Op: op, Status: resp.status, Detail: ParseDetail(resp.body)}
	}
	return resp, nil
}

// roundTrip sends a request through the circuit breaker. Only transport
// errors count as breaker failures.
func (c *Client) roundTrip(ctx context.Context, method, target string, body []byte) (*response, error) {
	do := func(ctx context.Context) (*response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return &response{status: resp.StatusCode, body: data}, nil
	}

	if c.breaker == nil {
		return do(ctx)
	}
	return c.breaker.Execute(ctx, do)
}

// decodeBody unmarshals a success body, reporting empty and malformed payloads.
func decodeBody(op core.Operation, resp *response, v any) error {
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return &core.RequestFailedError{Op: op, Status: resp.status, Detail: DetailEmptyResponse}
	}
	if err := json.Unmarshal(resp.body, v); err != nil {
		return &core.RequestFailedError{
			Op:     op,
			Status: resp.status,
			Detail: fmt.Sprintf("%s: %s", DetailInvalidJSON, snippet(resp.body)),
			Err:    err,
		}
	}
	return nil
}

// ParseDetail extracts the human-readable detail of a failure body.
// A non-string detail is rendered as compact JSON. Anything else yields
// core.UnknownErrorDetail.
func ParseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return core.UnknownErrorDetail
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return core.UnknownErrorDetail
		}
		return s
	}
	if string(envelope.Detail) == "null" {
		return core.UnknownErrorDetail
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, envelope.Detail); err != nil {
		return core.UnknownErrorDetail
	}
	return compact.String()
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippet {
		return s[:maxSnippet]
	}
	return s
}
