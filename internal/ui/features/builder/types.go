// Package builder provides the chart builder page: dataset selection, the
// natural-language and structured query modes, and pinning results to the board.
package builder

import (
	"github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/leapstack-labs/leapviz/internal/grid"
	"github.com/leapstack-labs/leapviz/internal/resolver"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

// Signals are the builder form signals sent by the page.
type Signals struct {
	Dataset  string `json:"dataset"`
	Prompt   string `json:"prompt"`
	Preset   string `json:"preset"`
	X        string `json:"x"`
	Y        string `json:"y"`
	Category string `json:"category"`
	Value    string `json:"value"`
	Stage    string `json:"stage"`
	Agg      string `json:"agg"`
	Grain    string `json:"grain"`
	TopN     string `json:"topn"`
}

// field returns the signal value of a role.
func (s Signals) field(role core.Role) string {
	switch role {
	case core.RoleX:
		return s.X
	case core.RoleY:
		return s.Y
	case core.RoleCategory:
		return s.Category
	case core.RoleValue:
		return s.Value
	case core.RoleStage:
		return s.Stage
	case core.RoleAgg:
		return s.Agg
	case core.RoleTimeGrain:
		return s.Grain
	case core.RoleTopN:
		return s.TopN
	}
	return ""
}

// signalName maps a role to its signal key.
func signalName(role core.Role) string {
	switch role {
	case core.RoleTimeGrain:
		return "grain"
	case core.RoleTopN:
		return "topn"
	default:
		return string(role)
	}
}

// ViewData is everything the builder view renders.
type ViewData struct {
	Datasets []string
	State    builder.State
	Entry    *resolver.Entry
	Result   *grid.Layout
	Error    string
	Notice   string
}
