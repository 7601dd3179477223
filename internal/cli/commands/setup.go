package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapviz/internal/backend"
	"github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/leapstack-labs/leapviz/internal/cli/config"
	"github.com/leapstack-labs/leapviz/internal/cli/output"
	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/leapstack-labs/leapviz/internal/state"
	"github.com/leapstack-labs/leapviz/pkg/adapter"
	_ "github.com/leapstack-labs/leapviz/pkg/adapters/postgres" // register postgres
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// Backend creates the visualization backend client.
func (c *CommandContext) Backend() (*backend.Client, error) {
	if err := c.Cfg.ValidateBackend(); err != nil {
		return nil, err
	}
	return backend.New(backend.Config{
		BaseURL:          c.Cfg.Backend.URL,
		AuthToken:        c.Cfg.Backend.AuthToken,
		Timeout:          c.Cfg.Backend.Timeout,
		BreakerThreshold: c.Cfg.Backend.BreakerThreshold,
		BreakerTimeout:   c.Cfg.Backend.BreakerTimeout,
		Logger:           c.Logger,
	})
}

// Source opens the configured schema source. client is used when schemas
// come from the backend. The returned cleanup must be called.
func (c *CommandContext) Source(ctx context.Context, client *backend.Client) (schema.Source, func(), error) {
	cfg := c.Cfg.Schema
	switch cfg.Source {
	case config.SourceDuckDB:
		a, err := adapter.Open(ctx, adapter.Config{Type: config.SourceDuckDB, Path: cfg.Database, Params: cfg.DuckDB}, c.Logger)
		if err != nil {
			return nil, nil, err
		}
		return schema.NewAdapterProvider(a, cfg.DataDir, c.Logger), func() { _ = a.Close() }, nil

	case config.SourcePostgres:
		pg := cfg.Postgres
		pg.Type = config.SourcePostgres
		a, err := adapter.Open(ctx, pg, c.Logger)
		if err != nil {
			return nil, nil, err
		}
		return schema.NewAdapterProvider(a, "", c.Logger), func() { _ = a.Close() }, nil

	default:
		if client == nil {
			return nil, nil, fmt.Errorf("schema source %q needs a backend client", cfg.Source)
		}
		return schema.Combine(client, schema.NewCatalog(cfg.DataDir)), func() {}, nil
	}
}

// Builder creates a chart builder over the configured source and backend.
func (c *CommandContext) Builder(ctx context.Context) (*builder.Builder, func(), error) {
	client, err := c.Backend()
	if err != nil {
		return nil, nil, err
	}
	source, cleanup, err := c.Source(ctx, client)
	if err != nil {
		return nil, nil, err
	}
	return builder.New(source, builder.NewDispatcher(client, c.Logger), c.Logger), cleanup, nil
}

// OpenStore opens the state store, creating its directory when needed.
func (c *CommandContext) OpenStore(ctx context.Context) (*state.Store, error) {
	dir := filepath.Dir(c.Cfg.StatePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return state.Open(ctx, c.Cfg.StatePath, c.Logger)
}

// getConfig returns the current configuration, loading defaults and the
// environment when the root command did not run.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			Backend:      config.BackendConfig{URL: config.DefaultBackendURL, Timeout: config.DefaultTimeout},
			Schema:       config.SchemaConfig{Source: config.DefaultSource, DataDir: config.DefaultDataDir},
			UI:           config.UIConfig{Port: config.DefaultPort, Watch: true},
			StatePath:    config.DefaultStateFile,
			OutputFormat: config.DefaultOutput,
		}
	}
	return cfg
}
