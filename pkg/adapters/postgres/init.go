package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapviz/pkg/adapter"
)

// Name is the registry name of the PostgreSQL adapter.
const Name = "postgres"

func init() {
	adapter.Register(Name, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
