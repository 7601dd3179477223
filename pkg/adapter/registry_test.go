package adapter

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	BaseSQLAdapter
	connectErr error
	connected  bool
	closed     bool
}

func (s *stubAdapter) Connect(_ context.Context, cfg Config) error {
	if s.connectErr != nil {
		return s.connectErr
	}
	s.Cfg = cfg
	s.connected = true
	return nil
}

func (s *stubAdapter) Close() error {
	s.closed = true
	return nil
}

func (s *stubAdapter) ListTables(context.Context) ([]string, error) { return nil, nil }

func (s *stubAdapter) GetTableMetadata(context.Context, string) (*Metadata, error) {
	return nil, nil
}

func TestUnknownSourceError(t *testing.T) {
	err := &UnknownSourceError{Source: "mysql", Available: []string{"duckdb", "postgres"}}

	assert.Equal(t,
		`unknown schema source "mysql" (available: duckdb, postgres); check schema.source in leapviz.yaml`,
		err.Error())
}

func TestRegister(t *testing.T) {
	Register("test_register", func(_ *slog.Logger) Adapter { return &stubAdapter{} })

	assert.Contains(t, Registered(), "test_register")
	assert.True(t, slices.IsSorted(Registered()))

	a, err := New("test_register", nil)
	require.NoError(t, err)
	assert.IsType(t, &stubAdapter{}, a)
}

func TestNew_Errors(t *testing.T) {
	_, err := New("", nil)
	require.Error(t, err)
	assert.Equal(t, "schema source not specified", err.Error())

	_, err = New("does_not_exist", nil)
	var unknown *UnknownSourceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "does_not_exist", unknown.Source)
	assert.Equal(t, Registered(), unknown.Available)
}

func TestOpen(t *testing.T) {
	ok := &stubAdapter{}
	failing := &stubAdapter{connectErr: errors.New("refused")}
	Register("test_open_ok", func(_ *slog.Logger) Adapter { return ok })
	Register("test_open_fail", func(_ *slog.Logger) Adapter { return failing })

	a, err := Open(context.Background(), Config{Type: "test_open_ok", Database: "db"}, nil)
	require.NoError(t, err)
	assert.Same(t, ok, a)
	assert.True(t, ok.connected)
	assert.Equal(t, "db", ok.Cfg.Database)

	_, err = Open(context.Background(), Config{Type: "test_open_fail"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect test_open_fail: refused")
	assert.True(t, failing.closed, "a failed connect releases the adapter")
}
