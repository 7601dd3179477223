package builder

import (
	"strconv"

	"github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

func modeLabel(st builder.State) string {
	if st.UsingNaturalLanguage {
		return "Natural language"
	}
	return "Structured"
}

// current returns the form value of a role in a selection.
func current(sel core.FieldSelection, role core.Role) string {
	switch role {
	case core.RoleAgg:
		return string(sel.Agg)
	case core.RoleTimeGrain:
		return string(sel.TimeGrain)
	case core.RoleTopN:
		if sel.TopN > 0 {
			return strconv.Itoa(sel.TopN)
		}
		return ""
	default:
		return sel.Column(role)
	}
}

func initialSignals(d ViewData) Signals {
	st := d.State
	sel := st.Selection
	return Signals{
		Dataset:  st.Dataset,
		Prompt:   st.Prompt,
		Preset:   string(st.Preset),
		X:        sel.X,
		Y:        sel.Y,
		Category: sel.Category,
		Value:    sel.Value,
		Stage:    sel.Stage,
		Agg:      string(sel.Agg),
		Grain:    string(sel.TimeGrain),
		TopN:     current(sel, core.RoleTopN),
	}
}
