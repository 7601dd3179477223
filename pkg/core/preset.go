package core

import (
	"fmt"
	"strings"
)

// Preset is a named chart archetype with a fixed set of roles.
type Preset string

// Preset catalog.
const (
	PresetTimeSeries Preset = "time_series"
	PresetBar        Preset = "bar"
	PresetPie        Preset = "pie"
	PresetScatter    Preset = "scatter"
	PresetHeatmap    Preset = "heatmap"
	PresetFunnel     Preset = "funnel"
)

// DefaultPreset is the preset a new chart builder starts with.
const DefaultPreset = PresetBar

// Presets returns the full catalog in display order.
func Presets() []Preset {
	return []Preset{PresetTimeSeries, PresetBar, PresetPie, PresetScatter, PresetHeatmap, PresetFunnel}
}

// ParsePreset converts a string to a Preset.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Presets() {
		if p == known {
			return p, nil
		}
	}
	return "", &UnknownPresetError{Preset: s}
}

// Role is a named slot within a preset.
type Role string

// Roles a preset may define.
const (
	RoleX         Role = "x"
	RoleY         Role = "y"
	RoleCategory  Role = "category"
	RoleValue     Role = "value"
	RoleStage     Role = "stage"
	RoleAgg       Role = "agg"
	RoleTimeGrain Role = "time_grain"
	RoleTopN      Role = "top_n"
)

// RoleSlot describes a role as a preset presents it to users.
type RoleSlot struct {
	Role  Role
	Label string
	// Column is true for roles filled with a column name.
	Column bool
}

// Roles returns the role slots of the preset in form order.
// The time_series date role travels as x and its value role as y.
func (p Preset) Roles() []RoleSlot {
	agg := RoleSlot{Role: RoleAgg, Label: "Aggregation"}
	topN := RoleSlot{Role: RoleTopN, Label: "Limit"}
	switch p {
	case PresetTimeSeries:
		return []RoleSlot{
			{Role: RoleX, Label: "Date", Column: true},
			{Role: RoleY, Label: "Value", Column: true},
			agg,
			{Role: RoleTimeGrain, Label: "Time grain"},
		}
	case PresetBar:
		return []RoleSlot{
			{Role: RoleX, Label: "X (Category)", Column: true},
			{Role: RoleY, Label: "Y (Value)", Column: true},
			agg, topN,
		}
	case PresetPie:
		return []RoleSlot{
			{Role: RoleCategory, Label: "Names", Column: true},
			{Role: RoleValue, Label: "Values", Column: true},
			topN,
		}
	case PresetScatter:
		return []RoleSlot{
			{Role: RoleX, Label: "X", Column: true},
			{Role: RoleY, Label: "Y", Column: true},
		}
	case PresetHeatmap:
		return []RoleSlot{
			{Role: RoleX, Label: "X", Column: true},
			{Role: RoleY, Label: "Y", Column: true},
			{Role: RoleValue, Label: "Value", Column: true},
			agg, topN,
		}
	case PresetFunnel:
		return []RoleSlot{
			{Role: RoleStage, Label: "Stage", Column: true},
			{Role: RoleValue, Label: "Value", Column: true},
			agg, topN,
		}
	default:
		return nil
	}
}

// Aggregation is the reduction applied to grouped values.
type Aggregation string

// Supported aggregations.
const (
	AggSum   Aggregation = "sum"
	AggMean  Aggregation = "mean"
	AggCount Aggregation = "count"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
)

// Aggregations returns the supported aggregations in display order.
func Aggregations() []Aggregation {
	return []Aggregation{AggSum, AggMean, AggCount, AggMin, AggMax}
}

// ParseAggregation converts a string to an Aggregation.
// Empty and "auto" yield the zero value.
func ParseAggregation(s string) (Aggregation, error) {
	if IsAuto(s) {
		return "", nil
	}
	a := Aggregation(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Aggregations() {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unsupported aggregation %q (want one of sum, mean, count, min, max)", s)
}

// TimeGrain is the bucket size for time series.
type TimeGrain string

// Supported time grains.
const (
	GrainDay     TimeGrain = "D"
	GrainWeek    TimeGrain = "W"
	GrainMonth   TimeGrain = "M"
	GrainQuarter TimeGrain = "Q"
	GrainYear    TimeGrain = "Y"
)

// TimeGrains returns the supported grains in display order.
func TimeGrains() []TimeGrain {
	return []TimeGrain{GrainDay, GrainWeek, GrainMonth, GrainQuarter, GrainYear}
}

// ParseTimeGrain converts a string to a TimeGrain.
// Empty and "auto" yield the zero value.
func ParseTimeGrain(s string) (TimeGrain, error) {
	if IsAuto(s) {
		return "", nil
	}
	g := TimeGrain(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range TimeGrains() {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unsupported time grain %q (want one of D, W, M, Q, Y)", s)
}

// IsAuto reports whether a user-facing value means "let the resolver decide".
func IsAuto(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "auto")
}
