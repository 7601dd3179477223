package builder

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

var (
	// ErrBusy is returned by Build while another build of the same builder is in flight.
	ErrBusy = errors.New("a chart is already being built")

	// ErrStaleResult is returned when the dataset changed while a request was
	// in flight. The response is discarded.
	ErrStaleResult = errors.New("dataset changed while the chart was being built")

	// ErrNoDataset is returned by Build before any dataset was selected.
	ErrNoDataset = errors.New("no dataset selected")
)

// State is a point-in-time copy of a builder, for rendering.
type State struct {
	Dataset              string
	Schema               *core.Schema
	UsingNaturalLanguage bool
	Prompt               string
	Preset               core.Preset
	Selection            core.FieldSelection
	Result               *core.VisualizationResult
	Err                  error
	Busy                 bool
}

// Builder is one chart-builder instance. It fetches the schema once per
// dataset change, holds the query mode controller and keeps the last result.
// The mutex only guards state; it is never held across a backend call.
type Builder struct {
	provider   schema.Provider
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu      sync.Mutex
	dataset string
	schema  *core.Schema
	ctrl    *Controller
	result  *core.VisualizationResult
	err     error
	busy    bool
}

// New creates a builder. If logger is nil, a discard logger is used.
func New(provider schema.Provider, dispatcher *Dispatcher, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger,
		ctrl:       NewController(),
	}
}

// SelectDataset switches to dataset and fetches its schema. The previous
// schema and result are dropped immediately. On failure the schema stays
// unset and a *core.SchemaUnavailableError is returned and kept as the
// builder's error.
func (b *Builder) SelectDataset(ctx context.Context, dataset string) error {
	b.mu.Lock()
	b.dataset = dataset
	b.schema = nil
	b.result = nil
	b.err = nil
	b.mu.Unlock()

	s, err := b.provider.Schema(ctx, dataset)
	if err == nil && s == nil {
		err = core.ErrSchemaUnavailable
	}
	if err == nil {
		err = s.Validate()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dataset != dataset {
		return ErrStaleResult
	}
	if err != nil {
		b.err = &core.SchemaUnavailableError{Dataset: dataset, Err: err}
		b.logger.Warn("schema fetch failed", slog.String("dataset", dataset), slog.String("error", err.Error()))
		return b.err
	}
	b.schema = s
	b.logger.Debug("schema loaded", slog.String("dataset", dataset), slog.Int("columns", s.Len()))
	return nil
}

// Update runs fn against the controller under the builder's lock.
func (b *Builder) Update(fn func(c *Controller) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(b.ctrl)
}

// Build dispatches the controller's current mode for the selected dataset.
// A failure clears the previous result; a success replaces it.
func (b *Builder) Build(ctx context.Context) (*core.VisualizationResult, error) {
	b.mu.Lock()
	if b.busy {
		b.mu.Unlock()
		return nil, ErrBusy
	}
	if b.dataset == "" {
		b.mu.Unlock()
		return nil, ErrNoDataset
	}
	if b.schema == nil {
		err := &core.SchemaUnavailableError{Dataset: b.dataset}
		b.mu.Unlock()
		return nil, err
	}
	b.busy = true
	dataset, s, mode := b.dataset, b.schema, b.ctrl.Mode()
	b.mu.Unlock()

	res, err := b.dispatcher.Dispatch(ctx, dataset, s, mode)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.busy = false
	if b.dataset != dataset {
		b.logger.Info("discarding result for previous dataset", slog.String("dataset", dataset))
		return nil, ErrStaleResult
	}
	if err != nil {
		b.result = nil
		b.err = err
		return nil, err
	}
	b.result = res
	b.err = nil
	return res, nil
}

// Snapshot returns a copy of the builder's state.
func (b *Builder) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		Dataset:              b.dataset,
		Schema:               b.schema,
		UsingNaturalLanguage: b.ctrl.UsingNaturalLanguage(),
		Prompt:               b.ctrl.Prompt(),
		Preset:               b.ctrl.Preset(),
		Selection:            b.ctrl.Selection(),
		Result:               b.result,
		Err:                  b.err,
		Busy:                 b.busy,
	}
}
