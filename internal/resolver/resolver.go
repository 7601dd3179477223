// Package resolver fills a partial field selection into a complete chart
// specification using deterministic per-preset fallbacks.
package resolver

import (
	"fmt"

	"github.com/leapstack-labs/leapviz/pkg/core"
)

// DefaultTopN is the row limit applied by presets that support one.
const DefaultTopN = 20

// Resolve completes sel for preset using schema.
//
// A user-chosen value always wins. Otherwise each role takes the first
// non-empty candidate from its preset's fallback chain. A role whose chain
// is exhausted stays empty; Resolve never blocks on it.
func Resolve(schema *core.Schema, preset core.Preset, sel core.FieldSelection) (core.ResolvedSpec, error) {
	if schema == nil {
		return core.ResolvedSpec{}, fmt.Errorf("resolve %s: %w", preset, core.ErrSchemaUnavailable)
	}

	num := schema.Numeric
	cat := schema.Categorical
	dt := schema.Datetime

	spec := core.ResolvedSpec{Preset: preset}
	switch preset {
	case core.PresetTimeSeries:
		spec.X = pick(sel.Column(core.RoleX), first(dt), first(cat), first(num))
		spec.Y = pick(sel.Column(core.RoleY), first(num))
		spec.Agg = aggOrDefault(sel.Agg)
		spec.TimeGrain = grainOrDefault(sel.TimeGrain)

	case core.PresetBar:
		spec.X = pick(sel.Column(core.RoleX), first(cat), first(num))
		spec.Y = pick(sel.Column(core.RoleY), first(num))
		spec.Agg = aggOrDefault(sel.Agg)
		spec.TopN = topNOrDefault(sel.TopN)

	case core.PresetPie:
		spec.Category = pick(sel.Column(core.RoleCategory), first(cat), first(num))
		spec.Value = pick(sel.Column(core.RoleValue), first(num))
		spec.TopN = topNOrDefault(sel.TopN)

	case core.PresetScatter:
		spec.X = pick(sel.Column(core.RoleX), first(num))
		spec.Y = pick(sel.Column(core.RoleY), second(num), first(num))

	case core.PresetHeatmap:
		spec.X = pick(sel.Column(core.RoleX), first(cat), first(num))
		spec.Y = pick(sel.Column(core.RoleY), second(cat), second(num), first(num))
		spec.Value = pick(sel.Column(core.RoleValue), first(num))
		spec.Agg = aggOrDefault(sel.Agg)
		spec.TopN = topNOrDefault(sel.TopN)

	case core.PresetFunnel:
		spec.Stage = pick(sel.Column(core.RoleStage), first(cat), first(num))
		spec.Value = pick(sel.Column(core.RoleValue), first(num))
		spec.Agg = aggOrDefault(sel.Agg)
		spec.TopN = topNOrDefault(sel.TopN)

	default:
		return core.ResolvedSpec{}, &core.UnknownPresetError{Preset: string(preset)}
	}

	return spec, nil
}

// pick returns the first non-empty candidate.
func pick(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func first(cols []string) string {
	if len(cols) > 0 {
		return cols[0]
	}
	return ""
}

func second(cols []string) string {
	if len(cols) > 1 {
		return cols[1]
	}
	return ""
}

func aggOrDefault(a core.Aggregation) core.Aggregation {
	if core.IsAuto(string(a)) {
		return core.AggSum
	}
	return a
}

func grainOrDefault(g core.TimeGrain) core.TimeGrain {
	if core.IsAuto(string(g)) {
		return core.GrainMonth
	}
	return g
}

func topNOrDefault(n int) int {
	if n <= 0 {
		return DefaultTopN
	}
	return n
}
