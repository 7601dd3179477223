package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapviz/pkg/core"
)

var outputModes = []string{"auto", "text", "json", "yaml"}

// Validate checks the configuration and normalizes enum values in place.
func (c *Config) Validate() error {
	c.Schema.Source = strings.ToLower(strings.TrimSpace(c.Schema.Source))
	switch c.Schema.Source {
	case SourceBackend, SourceDuckDB, SourcePostgres:
	default:
		return fmt.Errorf("schema.source must be one of backend, duckdb, postgres; got %q", c.Schema.Source)
	}

	theme, err := core.ParseTheme(string(c.Display.Theme))
	if err != nil {
		return fmt.Errorf("display.theme: %w", err)
	}
	c.Display.Theme = theme

	height, err := core.ParseChartHeight(string(c.Display.ChartHeight))
	if err != nil {
		return fmt.Errorf("display.chart_height: %w", err)
	}
	c.Display.ChartHeight = height

	c.OutputFormat = strings.ToLower(c.OutputFormat)
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutput
	}
	valid := false
	for _, m := range outputModes {
		if c.OutputFormat == m {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("output must be one of %s; got %q", strings.Join(outputModes, ", "), c.OutputFormat)
	}

	if c.UI.Port < 0 || c.UI.Port > 65535 {
		return fmt.Errorf("ui.port out of range: %d", c.UI.Port)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}
	return nil
}

// ValidateBackend checks that a backend is configured.
func (c *Config) ValidateBackend() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return fmt.Errorf("backend URL not configured\nHint: set backend.url in leapviz.yaml, %sBACKEND__URL or --backend", EnvPrefix)
	}
	return nil
}
