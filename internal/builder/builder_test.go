package builder

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/leapstack-labs/leapviz/internal/testutil"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu         sync.Mutex
	visualized []core.ResolvedSpec
	prompts    []string
	result     *core.VisualizationResult
	err        error
	block      chan struct{}
	started    chan struct{}
}

func (f *fakeBackend) wait() {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeBackend) Visualize(_ context.Context, _ string, spec core.ResolvedSpec) (*core.VisualizationResult, error) {
	f.mu.Lock()
	f.visualized = append(f.visualized, spec)
	f.mu.Unlock()
	f.wait()
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	return &res, nil
}

func (f *fakeBackend) NLViz(_ context.Context, _ string, prompt string) (*core.VisualizationResult, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	f.wait()
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	return &res, nil
}

type fakeProvider struct {
	schemas map[string]*core.Schema
	err     error
}

func (p fakeProvider) Schema(_ context.Context, dataset string) (*core.Schema, error) {
	if p.err != nil {
		return nil, p.err
	}
	s, ok := p.schemas[dataset]
	if !ok {
		return nil, errors.New("no such dataset")
	}
	return s, nil
}

var salesSchema = &core.Schema{
	Numeric:     []string{"revenue", "units"},
	Categorical: []string{"region"},
	Datetime:    []string{"order_date"},
}

func sampleFigure() core.Figure {
	return core.Figure{
		Data:   []map[string]any{{"type": "bar"}},
		Layout: map[string]any{"title": map[string]any{"text": "Revenue by region"}},
	}
}

func newBuilder(t *testing.T, backend *fakeBackend) *Builder {
	t.Helper()
	provider := fakeProvider{schemas: map[string]*core.Schema{"sales.csv": salesSchema, "other.csv": salesSchema}}
	logger := testutil.NewTestLogger(t)
	return New(provider, NewDispatcher(backend, logger), logger)
}

func TestBuilder_StructuredBarDefaults(t *testing.T) {
	backend := &fakeBackend{result: &core.VisualizationResult{
		Figure:         sampleFigure(),
		Interpretation: &core.Interpretation{Explanation: "ignored"},
	}}
	b := newBuilder(t, backend)

	require.NoError(t, b.SelectDataset(context.Background(), "sales.csv"))
	require.NoError(t, b.Update(func(c *Controller) error { return c.SelectPreset(core.PresetBar) }))

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Interpretation)
	require.Len(t, backend.visualized, 1)
	assert.Equal(t, core.ResolvedSpec{
		Preset: core.PresetBar,
		X:      "region",
		Y:      "revenue",
		Agg:    core.AggSum,
		TopN:   20,
	}, backend.visualized[0])
	assert.Empty(t, backend.prompts)

	st := b.Snapshot()
	assert.Equal(t, res, st.Result)
	assert.NoError(t, st.Err)
	assert.False(t, st.Busy)
}

func TestBuilder_NaturalLanguageIsDefault(t *testing.T) {
	backend := &fakeBackend{result: &core.VisualizationResult{
		Figure: sampleFigure(),
		Interpretation: &core.Interpretation{
			Config:      map[string]any{"title": "Sales by month"},
			Explanation: "Summed revenue per month",
		},
	}}
	b := newBuilder(t, backend)
	require.NoError(t, b.SelectDataset(context.Background(), "sales.csv"))
	require.NoError(t, b.Update(func(c *Controller) error {
		c.SetPrompt("monthly revenue")
		return nil
	}))

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"monthly revenue"}, backend.prompts)
	assert.Empty(t, backend.visualized)
	assert.Equal(t, "Sales by month", res.Interpretation.Title())
}

func TestBuilder_FailureClearsFigure(t *testing.T) {
	backend := &fakeBackend{result: &core.VisualizationResult{Figure: sampleFigure()}}
	b := newBuilder(t, backend)
	require.NoError(t, b.SelectDataset(context.Background(), "sales.csv"))

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b.Snapshot().Result)

	backend.err = &core.RequestFailedError{Op: core.OpNLViz, Status: 400, Detail: "column not found"}
	_, err = b.Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, "NL Viz failed: column not found", err.Error())

	st := b.Snapshot()
	assert.Nil(t, st.Result)
	assert.Equal(t, err, st.Err)
	assert.NotEmpty(t, st.Err.Error())
}

func TestBuilder_TransportErrorBecomesRequestFailed(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	b := newBuilder(t, backend)
	require.NoError(t, b.SelectDataset(context.Background(), "sales.csv"))
	require.NoError(t, b.Update(func(c *Controller) error { return c.SelectPreset(core.PresetPie) }))

	_, err := b.Build(context.Background())
	var rf *core.RequestFailedError
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, core.OpVisualize, rf.Op)
	assert.Equal(t, "Visualization failed: connection refused", err.Error())
}

func TestBuilder_RequiresSchema(t *testing.T) {
	backend := &fakeBackend{result: &core.VisualizationResult{Figure: sampleFigure()}}
	b := newBuilder(t, backend)

	_, err := b.Build(context.Background())
	assert.ErrorIs(t, err, ErrNoDataset)

	err = b.SelectDataset(context.Background(), "missing.csv")
	var su *core.SchemaUnavailableError
	require.ErrorAs(t, err, &su)
	assert.Equal(t, "missing.csv", su.Dataset)
	assert.Nil(t, b.Snapshot().Schema)

	_, err = b.Build(context.Background())
	assert.ErrorIs(t, err, core.ErrSchemaUnavailable)
	assert.Empty(t, backend.visualized)
	assert.Empty(t, backend.prompts)
}

func TestBuilder_RejectsInvalidSchema(t *testing.T) {
	provider := fakeProvider{schemas: map[string]*core.Schema{
		"dup.csv": {Numeric: []string{"a"}, Categorical: []string{"a"}},
	}}
	b := New(provider, NewDispatcher(&fakeBackend{}, nil), nil)

	err := b.SelectDataset(context.Background(), "dup.csv")
	assert.ErrorIs(t, err, core.ErrSchemaUnavailable)
	var dup *core.DuplicateColumnError
	assert.ErrorAs(t, err, &dup)
}

func TestBuilder_BusyAndStale(t *testing.T) {
	backend := &fakeBackend{
		result:  &core.VisualizationResult{Figure: sampleFigure()},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	b := newBuilder(t, backend)
	require.NoError(t, b.SelectDataset(context.Background(), "sales.csv"))

	done := make(chan error, 1)
	go func() {
		_, err := b.Build(context.Background())
		done <- err
	}()
	<-backend.started

	assert.True(t, b.Snapshot().Busy)
	_, err := b.Build(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, b.SelectDataset(context.Background(), "other.csv"))
	close(backend.block)

	assert.ErrorIs(t, <-done, ErrStaleResult)
	st := b.Snapshot()
	assert.Equal(t, "other.csv", st.Dataset)
	assert.Nil(t, st.Result)
	assert.False(t, st.Busy)
}

func TestBuilder_SelectDatasetDropsResult(t *testing.T) {
	backend := &fakeBackend{result: &core.VisualizationResult{Figure: sampleFigure()}}
	b := newBuilder(t, backend)
	require.NoError(t, b.SelectDataset(context.Background(), "sales.csv"))
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	require.NoError(t, b.SelectDataset(context.Background(), "other.csv"))
	st := b.Snapshot()
	assert.Nil(t, st.Result)
	assert.Equal(t, salesSchema, st.Schema)
}
