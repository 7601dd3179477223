package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapviz/pkg/core"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "leapviz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "verbose: false\n")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.Backend.URL)
	assert.Equal(t, DefaultTimeout, cfg.Backend.Timeout)
	assert.Equal(t, DefaultBreakerThreshold, cfg.Backend.BreakerThreshold)
	assert.Equal(t, DefaultBreakerTimeout, cfg.Backend.BreakerTimeout)
	assert.Equal(t, SourceBackend, cfg.Schema.Source)
	assert.Equal(t, filepath.Join(dir, DefaultDataDir), cfg.Schema.DataDir)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultPort, cfg.UI.Port)
	assert.True(t, cfg.UI.AutoOpen)
	assert.True(t, cfg.UI.Watch)
	assert.Equal(t, core.DefaultDisplayPreferences(), cfg.Display.Preferences())
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `
backend:
  url: https://viz.example.com
  timeout: 10s
  breaker_threshold: 3
schema:
  source: Postgres
  postgres:
    host: db.internal
    port: 5433
    database: analytics
    user: viz
ui:
  port: 9000
  allowed_origins:
    - https://dash.example.com
display:
  theme: Dark
  chart_height: large
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://viz.example.com", cfg.Backend.URL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 3, cfg.Backend.BreakerThreshold)
	assert.Equal(t, SourcePostgres, cfg.Schema.Source)
	assert.Equal(t, "postgres", cfg.Schema.Postgres.Type)
	assert.Equal(t, "db.internal", cfg.Schema.Postgres.Host)
	assert.Equal(t, 5433, cfg.Schema.Postgres.Port)
	assert.Equal(t, "viz", cfg.Schema.Postgres.Username)
	assert.Equal(t, 9000, cfg.UI.Port)
	assert.Equal(t, []string{"https://dash.example.com"}, cfg.UI.AllowedOrigins)
	assert.Equal(t, core.ThemeDark, cfg.Display.Theme)
	assert.Equal(t, core.ChartHeightLarge, cfg.Display.ChartHeight)
}

func TestLoadConfig_DuckDBParams(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `
schema:
  source: duckdb
  database: viz.duckdb
  duckdb:
    extensions: [excel]
    settings:
      threads: 2
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, SourceDuckDB, cfg.Schema.Source)
	assert.Equal(t, filepath.Join(dir, "viz.duckdb"), cfg.Schema.Database)
	require.Contains(t, cfg.Schema.DuckDB, "extensions")
	require.Contains(t, cfg.Schema.DuckDB, "settings")
}

func TestLoadConfig_Precedence(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `
backend:
  url: http://from-file:8000
  auth_token: file-token
`)

	t.Setenv("LEAPVIZ_BACKEND__URL", "http://from-env:8000")
	t.Setenv("LEAPVIZ_BACKEND__AUTH_TOKEN", "env-token")
	t.Setenv("LEAPVIZ_UI__ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("backend", "", "backend URL")
	flags.BoolP("verbose", "v", false, "verbose")
	flags.StringP("output", "o", "", "output")
	require.NoError(t, flags.Set("backend", "http://from-flag:8000"))
	require.NoError(t, flags.Set("output", "json"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:8000", cfg.Backend.URL, "flags beat env")
	assert.Equal(t, "env-token", cfg.Backend.AuthToken, "env beats file")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.UI.AllowedOrigins)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.False(t, cfg.Verbose, "unset flags do not override")
}

func TestLoadConfig_PathFlagsAreRelativeToWorkingDir(t *testing.T) {
	ResetConfig()
	project := t.TempDir()
	cfgPath := writeConfig(t, project, "schema:\n  data_dir: datasets\n")

	wd := t.TempDir()
	t.Chdir(wd)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "state path")
	flags.String("data-dir", "", "data dir")
	require.NoError(t, flags.Set("state", "local.db"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(wd, "local.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(project, "datasets"), cfg.Schema.DataDir)
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	cfgPath := writeConfig(t, root, "ui:\n  port: 9100\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.UI.Port)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Equal(t, root, cfg.ProjectRoot)
}

func TestLoadConfig_ExpandsSecrets(t *testing.T) {
	ResetConfig()
	t.Setenv("VIZ_TOKEN", "s3cret")
	t.Setenv("PG_PASSWORD", "hunter2")
	cfgPath := writeConfig(t, t.TempDir(), `
backend:
  auth_token: ${VIZ_TOKEN}
schema:
  postgres:
    password: ${PG_PASSWORD}
    user: ${UNSET_VARIABLE_FOR_TEST}
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Backend.AuthToken)
	assert.Equal(t, "hunter2", cfg.Schema.Postgres.Password)
	assert.Equal(t, "${UNSET_VARIABLE_FOR_TEST}", cfg.Schema.Postgres.Username)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown source", "schema:\n  source: mysql\n", "schema.source"},
		{"unknown theme", "display:\n  theme: sepia\n", "display.theme"},
		{"unknown height", "display:\n  chart_height: huge\n", "display.chart_height"},
		{"unknown output", "output: markdown\n", "output must be one of"},
		{"bad port", "ui:\n  port: 70000\n", "ui.port"},
		{"bad duration", "backend:\n  timeout: soon\n", "unable to decode config"},
		{"bad yaml", "backend: [", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			cfgPath := writeConfig(t, t.TempDir(), tt.content)

			_, err := LoadConfig(cfgPath, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, GetCurrentConfig())
		})
	}
}

func TestValidateBackend(t *testing.T) {
	cfg := &Config{}
	err := cfg.ValidateBackend()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEAPVIZ_BACKEND__URL")

	cfg.Backend.URL = "http://localhost:8000"
	assert.NoError(t, cfg.ValidateBackend())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "backend.url", envKey("LEAPVIZ_BACKEND__URL"))
	assert.Equal(t, "schema.data_dir", envKey("LEAPVIZ_SCHEMA__DATA_DIR"))
	assert.Equal(t, "state_path", envKey("LEAPVIZ_STATE_PATH"))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
