package resolver

import (
	"strings"

	"github.com/leapstack-labs/leapviz/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Label returns the display label of a preset, e.g. "Time Series".
func Label(p core.Preset) string {
	// Casers are stateful and must not be shared between goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(string(p), "_", " "))
}

// Entry describes a preset together with the selector options it offers
// for a given schema.
type Entry struct {
	Preset core.Preset `json:"preset"`
	Label  string      `json:"label"`
	Roles  []RoleEntry `json:"roles"`
}

// RoleEntry is a single selector of a preset form.
type RoleEntry struct {
	Role    core.Role `json:"role"`
	Label   string    `json:"label"`
	Options []string  `json:"options"`
}

// Catalog lists every preset with its role selectors populated from schema.
// Non-column roles offer their fixed choices.
func Catalog(schema *core.Schema) []Entry {
	presets := core.Presets()
	out := make([]Entry, 0, len(presets))
	for _, p := range presets {
		out = append(out, Describe(schema, p))
	}
	return out
}

// Describe returns the catalog entry for a single preset.
func Describe(schema *core.Schema, p core.Preset) Entry {
	e := Entry{Preset: p, Label: Label(p)}
	for _, slot := range p.Roles() {
		e.Roles = append(e.Roles, RoleEntry{
			Role:    slot.Role,
			Label:   slot.Label,
			Options: roleOptions(schema, p, slot),
		})
	}
	return e
}

func roleOptions(schema *core.Schema, p core.Preset, slot core.RoleSlot) []string {
	if slot.Column {
		return schema.Options(p, slot.Role)
	}
	switch slot.Role {
	case core.RoleAgg:
		aggs := core.Aggregations()
		out := make([]string, len(aggs))
		for i, a := range aggs {
			out[i] = string(a)
		}
		return out
	case core.RoleTimeGrain:
		grains := core.TimeGrains()
		out := make([]string, len(grains))
		for i, g := range grains {
			out[i] = string(g)
		}
		return out
	default:
		return nil
	}
}
