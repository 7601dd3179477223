package cli

import (
	"bytes"
	"testing"

	"github.com/leapstack-labs/leapviz/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "schema", "resolve", "build", "ask", "doctor", "version", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	root := NewRootCmd()
	for _, flag := range []string{"config", "backend", "source", "data-dir", "state", "verbose", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCmd_InvalidConfigFails(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Cleanup(config.ResetConfig)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"schema", "--source", "mysql"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema.source")
}

func TestRootCmd_LoadsConfigBeforeRunning(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Cleanup(config.ResetConfig)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"version", "--backend", "http://viz.internal:9000", "-o", "json"})

	require.NoError(t, root.Execute())

	cfg := config.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "http://viz.internal:9000", cfg.Backend.URL)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestCompletionCommand(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"completion", "bash"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "leapviz")
}
