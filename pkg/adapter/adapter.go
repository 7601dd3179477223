// Package adapter provides the schema-introspection adapter contract used by
// leapviz to classify dataset columns without a remote backend.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves in init().
package adapter

import "context"

// Config holds the connection settings of an adapter.
type Config struct {
	Type     string            `koanf:"type"`
	Path     string            `koanf:"path"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Username string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
	// Params holds adapter-specific settings, decoded by the adapter itself.
	Params map[string]any `koanf:"params"`
}

// Column describes a single table column as the database reports it.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Metadata describes a table.
type Metadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Adapter defines the interface that all introspection adapters implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// ListTables returns the tables of the configured schema, sorted by name.
	ListTables(ctx context.Context) ([]string, error)

	// GetTableMetadata retrieves column metadata for a table, in column order.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)
}

// Loader is implemented by adapters that can ingest a local CSV file as a table.
type Loader interface {
	LoadCSV(ctx context.Context, tableName string, filePath string) error
}
