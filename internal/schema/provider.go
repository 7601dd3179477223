package schema

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/leapstack-labs/leapviz/pkg/adapter"
	"github.com/leapstack-labs/leapviz/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

// Provider returns the classified schema of a dataset.
type Provider interface {
	Schema(ctx context.Context, dataset string) (*core.Schema, error)
}

// Lister lists the dataset ids a provider can serve.
type Lister interface {
	Datasets(ctx context.Context) ([]string, error)
}

// Source is a Provider that can also list its datasets.
type Source interface {
	Provider
	Lister
}

type combined struct {
	Provider
	Lister
}

// Combine pairs a provider with a separate dataset listing, e.g. the
// backend client with the shared data directory.
func Combine(p Provider, l Lister) Source {
	return combined{Provider: p, Lister: l}
}

// AdapterProvider classifies datasets by introspecting a database adapter.
//
// When the adapter is an adapter.Loader and a data directory is set, dataset
// ids are data file names: the file is loaded into a table on first use and
// reloaded when its modification time changes. Otherwise dataset ids are
// table names.
type AdapterProvider struct {
	adapter adapter.Adapter
	catalog *Catalog
	logger  *slog.Logger

	mu     sync.Mutex
	loaded map[string]time.Time
	tables map[string]string // dataset -> table
	owners map[string]string // table -> dataset
}

// NewAdapterProvider creates a provider over a connected adapter.
// dataDir may be empty for database-backed datasets.
func NewAdapterProvider(a adapter.Adapter, dataDir string, logger *slog.Logger) *AdapterProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AdapterProvider{
		adapter: a,
		catalog: NewCatalog(dataDir),
		logger:  logger,
		loaded:  make(map[string]time.Time),
		tables:  make(map[string]string),
		owners:  make(map[string]string),
	}
}

// Datasets lists data files when loading from a directory, tables otherwise.
func (p *AdapterProvider) Datasets(ctx context.Context) ([]string, error) {
	if p.loader() != nil {
		return p.catalog.Datasets(ctx)
	}
	return p.adapter.ListTables(ctx)
}

// Schema returns the classified columns of a dataset.
func (p *AdapterProvider) Schema(ctx context.Context, dataset string) (*core.Schema, error) {
	table, err := p.table(ctx, dataset)
	if err != nil {
		return nil, err
	}

	meta, err := p.adapter.GetTableMetadata(ctx, table)
	if err != nil {
		return nil, err
	}

	s := Classify(meta.Columns)
	if skipped := len(meta.Columns) - s.Len(); skipped > 0 {
		p.logger.Debug("columns without a semantic type skipped",
			slog.String("dataset", dataset), slog.Int("count", skipped))
	}
	return s, nil
}

func (p *AdapterProvider) loader() adapter.Loader {
	if p.catalog.Dir == "" {
		return nil
	}
	l, _ := p.adapter.(adapter.Loader)
	return l
}

// table makes sure the dataset is loaded and returns its table name.
func (p *AdapterProvider) table(ctx context.Context, dataset string) (string, error) {
	l := p.loader()
	if l == nil {
		if dataset == "" {
			return "", fmt.Errorf("%w: empty", ErrInvalidDataset)
		}
		return dataset, nil
	}

	path, err := p.catalog.Path(dataset)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("dataset %s: %w", dataset, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	table := p.tableFor(dataset)
	if mod, ok := p.loaded[dataset]; ok && mod.Equal(info.ModTime()) {
		return table, nil
	}
	if err := l.LoadCSV(ctx, table, path); err != nil {
		return "", err
	}
	p.loaded[dataset] = info.ModTime()
	p.logger.Info("dataset loaded", slog.String("dataset", dataset), slog.String("table", table))
	return table, nil
}

// tableFor returns the table a dataset loads into. Files whose names
// normalize to the same identifier get numbered tables. Callers hold p.mu.
func (p *AdapterProvider) tableFor(dataset string) string {
	if table, ok := p.tables[dataset]; ok {
		return table
	}
	base := duckdb.TableName(dataset)
	table := base
	for i := 2; p.owners[table] != ""; i++ {
		table = fmt.Sprintf("%s_%d", base, i)
	}
	p.tables[dataset] = table
	p.owners[table] = dataset
	return table
}

// Forget drops the load record of a dataset so the next Schema call reloads it.
func (p *AdapterProvider) Forget(dataset string) {
	p.mu.Lock()
	delete(p.loaded, dataset)
	p.mu.Unlock()
}

var _ Source = (*AdapterProvider)(nil)
