// Package config provides configuration management for the LeapViz CLI.
package config

import (
	"time"

	"github.com/leapstack-labs/leapviz/pkg/adapter"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

// Schema sources.
const (
	SourceBackend  = "backend"
	SourceDuckDB   = "duckdb"
	SourcePostgres = "postgres"
)

// Default configuration values.
const (
	DefaultBackendURL       = "http://localhost:8000"
	DefaultTimeout          = 60 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerTimeout   = 30 * time.Second
	DefaultSource           = SourceBackend
	DefaultDataDir          = "data"
	DefaultStateFile        = ".leapviz/state.db"
	DefaultPort             = 8765
	DefaultOutput           = "auto" // TTY=text, otherwise JSON
)

// BackendConfig configures the visualization backend client.
type BackendConfig struct {
	URL              string        `koanf:"url"`
	AuthToken        string        `koanf:"auth_token"`
	Timeout          time.Duration `koanf:"timeout"`
	BreakerThreshold int           `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

// SchemaConfig selects where dataset schemas come from.
//
// With source "backend" schemas are fetched from the backend and datasets
// are listed from DataDir. "duckdb" loads the data files of DataDir into
// Database (in-memory when empty) and classifies their columns locally.
// "postgres" classifies the tables of the Postgres connection. DuckDB holds
// extensions and session settings for the duckdb source.
type SchemaConfig struct {
	Source   string         `koanf:"source"`
	DataDir  string         `koanf:"data_dir"`
	Database string         `koanf:"database"`
	DuckDB   map[string]any `koanf:"duckdb"`
	Postgres adapter.Config `koanf:"postgres"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port           int      `koanf:"port"`
	AutoOpen       bool     `koanf:"auto_open"`
	Watch          bool     `koanf:"watch"`
	SessionSecret  string   `koanf:"session_secret"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// DisplayConfig holds the default display preferences.
type DisplayConfig struct {
	Theme       core.Theme       `koanf:"theme"`
	ChartHeight core.ChartHeight `koanf:"chart_height"`
}

// Preferences returns the display defaults as preferences.
func (d DisplayConfig) Preferences() core.DisplayPreferences {
	return core.DisplayPreferences{Theme: d.Theme, ChartHeight: d.ChartHeight}
}

// Config holds all CLI configuration options.
type Config struct {
	Backend      BackendConfig `koanf:"backend"`
	Schema       SchemaConfig  `koanf:"schema"`
	UI           UIConfig      `koanf:"ui"`
	Display      DisplayConfig `koanf:"display"`
	StatePath    string        `koanf:"state_path"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"backend.url":               DefaultBackendURL,
		"backend.timeout":           DefaultTimeout.String(),
		"backend.breaker_threshold": DefaultBreakerThreshold,
		"backend.breaker_timeout":   DefaultBreakerTimeout.String(),
		"schema.source":             DefaultSource,
		"schema.data_dir":           DefaultDataDir,
		"schema.postgres.type":      SourcePostgres,
		"ui.port":                   DefaultPort,
		"ui.auto_open":              true,
		"ui.watch":                  true,
		"display.theme":             string(core.ThemeLight),
		"display.chart_height":      string(core.ChartHeightAuto),
		"state_path":                DefaultStateFile,
		"verbose":                   false,
		"output":                    DefaultOutput,
	}
}
