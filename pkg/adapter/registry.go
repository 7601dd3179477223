package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory creates an unconnected adapter.
type Factory func(*slog.Logger) Adapter

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a schema source available under name. Adapter packages
// call it from init; a later registration under the same name wins.
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Registered returns the registered source names, sorted.
func Registered() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// New creates the adapter registered under name without connecting it.
func New(name string, logger *slog.Logger) (Adapter, error) {
	if name == "" {
		return nil, errors.New("schema source not specified")
	}
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, &UnknownSourceError{Source: name, Available: Registered()}
	}
	return factory(logger), nil
}

// Open creates the adapter named by cfg.Type and connects it. A failed
// connect releases whatever the adapter acquired.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	a, err := New(cfg.Type, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("connect %s: %w", cfg.Type, err)
	}
	return a, nil
}

// UnknownSourceError is returned by New and Open for names nothing registered.
type UnknownSourceError struct {
	Source    string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown schema source %q (available: %s); check schema.source in leapviz.yaml",
		e.Source, strings.Join(e.Available, ", "))
}
