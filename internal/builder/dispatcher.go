// Package builder implements a chart builder: the query mode controller, the
// visualization dispatcher and the per-instance state that ties a dataset,
// its schema and the last result together.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapviz/internal/resolver"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

// Backend is the visualization backend as the dispatcher uses it.
// *backend.Client implements it.
type Backend interface {
	Visualize(ctx context.Context, dataset string, spec core.ResolvedSpec) (*core.VisualizationResult, error)
	NLViz(ctx context.Context, dataset, prompt string) (*core.VisualizationResult, error)
}

// Dispatcher sends one query mode to the backend per call.
type Dispatcher struct {
	backend Backend
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. If logger is nil, a discard logger is used.
func NewDispatcher(b Backend, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{backend: b, logger: logger}
}

// Dispatch invokes exactly one backend operation for mode.
//
// Structured modes are resolved against schema first; a nil schema is
// refused before any request is made. Backend failures come back as
// *core.RequestFailedError with a readable detail. Interpretation is only
// ever set on natural-language results.
func (d *Dispatcher) Dispatch(ctx context.Context, dataset string, schema *core.Schema, mode core.QueryMode) (*core.VisualizationResult, error) {
	switch m := mode.(type) {
	case core.Structured:
		spec, err := resolver.Resolve(schema, m.Preset, m.Selection)
		if err != nil {
			return nil, err
		}
		if missing := spec.Unfilled(); len(missing) > 0 {
			d.logger.Warn("resolved spec has unfilled roles",
				slog.String("dataset", dataset),
				slog.String("preset", string(spec.Preset)),
				slog.Any("roles", missing))
		}

		d.logger.Debug("dispatching structured request", slog.String("dataset", dataset), slog.String("preset", string(spec.Preset)))
		res, err := d.backend.Visualize(ctx, dataset, spec)
		if err != nil {
			return nil, asRequestFailed(core.OpVisualize, err)
		}
		if res == nil {
			return nil, &core.RequestFailedError{Op: core.OpVisualize}
		}
		res.Interpretation = nil
		return res, nil

	case core.NaturalLanguage:
		d.logger.Debug("dispatching natural-language request", slog.String("dataset", dataset))
		res, err := d.backend.NLViz(ctx, dataset, m.Prompt)
		if err != nil {
			return nil, asRequestFailed(core.OpNLViz, err)
		}
		if res == nil {
			return nil, &core.RequestFailedError{Op: core.OpNLViz}
		}
		return res, nil

	default:
		return nil, fmt.Errorf("unsupported query mode %T", mode)
	}
}

func asRequestFailed(op core.Operation, err error) error {
	var rf *core.RequestFailedError
	if errors.As(err, &rf) {
		return err
	}
	return &core.RequestFailedError{Op: op, Err: err}
}
