package resolver

import (
	"testing"

	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesSchema() *core.Schema {
	return &core.Schema{
		Numeric:     []string{"sales", "units"},
		Categorical: []string{"region", "channel"},
		Datetime:    []string{"date"},
	}
}

func TestResolve_Defaults(t *testing.T) {
	tests := []struct {
		name   string
		schema *core.Schema
		preset core.Preset
		want   core.ResolvedSpec
	}{
		{
			name:   "bar picks first categorical and numeric",
			schema: salesSchema(),
			preset: core.PresetBar,
			want:   core.ResolvedSpec{Preset: core.PresetBar, X: "region", Y: "sales", Agg: core.AggSum, TopN: 20},
		},
		{
			name:   "time series prefers datetime",
			schema: salesSchema(),
			preset: core.PresetTimeSeries,
			want:   core.ResolvedSpec{Preset: core.PresetTimeSeries, X: "date", Y: "sales", Agg: core.AggSum, TimeGrain: core.GrainMonth},
		},
		{
			name:   "time series without datetime falls back to categorical",
			schema: &core.Schema{Numeric: []string{"sales"}, Categorical: []string{"month"}},
			preset: core.PresetTimeSeries,
			want:   core.ResolvedSpec{Preset: core.PresetTimeSeries, X: "month", Y: "sales", Agg: core.AggSum, TimeGrain: core.GrainMonth},
		},
		{
			name:   "pie",
			schema: salesSchema(),
			preset: core.PresetPie,
			want:   core.ResolvedSpec{Preset: core.PresetPie, Category: "region", Value: "sales", TopN: 20},
		},
		{
			name:   "scatter uses two numerics",
			schema: salesSchema(),
			preset: core.PresetScatter,
			want:   core.ResolvedSpec{Preset: core.PresetScatter, X: "sales", Y: "units"},
		},
		{
			name:   "scatter with a single numeric reuses it",
			schema: &core.Schema{Numeric: []string{"sales"}},
			preset: core.PresetScatter,
			want:   core.ResolvedSpec{Preset: core.PresetScatter, X: "sales", Y: "sales"},
		},
		{
			name:   "heatmap uses second categorical for y",
			schema: salesSchema(),
			preset: core.PresetHeatmap,
			want:   core.ResolvedSpec{Preset: core.PresetHeatmap, X: "region", Y: "channel", Value: "sales", Agg: core.AggSum, TopN: 20},
		},
		{
			name:   "heatmap falls back to second numeric for y",
			schema: &core.Schema{Numeric: []string{"sales", "units"}, Categorical: []string{"region"}},
			preset: core.PresetHeatmap,
			want:   core.ResolvedSpec{Preset: core.PresetHeatmap, X: "region", Y: "units", Value: "sales", Agg: core.AggSum, TopN: 20},
		},
		{
			name:   "heatmap with one numeric and no categorical",
			schema: &core.Schema{Numeric: []string{"sales"}},
			preset: core.PresetHeatmap,
			want:   core.ResolvedSpec{Preset: core.PresetHeatmap, X: "sales", Y: "sales", Value: "sales", Agg: core.AggSum, TopN: 20},
		},
		{
			name:   "funnel",
			schema: salesSchema(),
			preset: core.PresetFunnel,
			want:   core.ResolvedSpec{Preset: core.PresetFunnel, Stage: "region", Value: "sales", Agg: core.AggSum, TopN: 20},
		},
		{
			name:   "bar with only categoricals leaves y empty",
			schema: &core.Schema{Categorical: []string{"region"}},
			preset: core.PresetBar,
			want:   core.ResolvedSpec{Preset: core.PresetBar, X: "region", Agg: core.AggSum, TopN: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.schema, tt.preset, core.FieldSelection{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_UserSelectionWins(t *testing.T) {
	sel := core.FieldSelection{
		X:         "channel",
		Y:         "units",
		Agg:       core.AggMean,
		TimeGrain: core.GrainWeek,
		TopN:      5,
	}

	got, err := Resolve(salesSchema(), core.PresetBar, sel)
	require.NoError(t, err)
	assert.Equal(t, core.ResolvedSpec{Preset: core.PresetBar, X: "channel", Y: "units", Agg: core.AggMean, TopN: 5}, got)

	got, err = Resolve(salesSchema(), core.PresetTimeSeries, sel)
	require.NoError(t, err)
	assert.Equal(t, core.GrainWeek, got.TimeGrain)
}

func TestResolve_AutoMeansUnset(t *testing.T) {
	sel := core.FieldSelection{X: "Auto", Y: "auto", Agg: "Auto"}

	got, err := Resolve(salesSchema(), core.PresetBar, sel)
	require.NoError(t, err)
	assert.Equal(t, "region", got.X)
	assert.Equal(t, "sales", got.Y)
	assert.Equal(t, core.AggSum, got.Agg)
}

func TestResolve_NilSchema(t *testing.T) {
	_, err := Resolve(nil, core.PresetBar, core.FieldSelection{})
	assert.ErrorIs(t, err, core.ErrSchemaUnavailable)
}

func TestResolve_UnknownPreset(t *testing.T) {
	_, err := Resolve(salesSchema(), core.Preset("donut"), core.FieldSelection{})
	var unknown *core.UnknownPresetError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "donut", unknown.Preset)
}

// Every column role of every preset is filled whenever the schema has at
// least one column eligible for it.
func TestResolve_Completeness(t *testing.T) {
	shapes := map[string]*core.Schema{
		"full":         salesSchema(),
		"numeric only": {Numeric: []string{"a"}},
		"two numerics": {Numeric: []string{"a", "b"}},
		"no numerics":  {Categorical: []string{"c"}, Datetime: []string{"d"}},
		"empty":        {},
	}

	for shapeName, schema := range shapes {
		for _, p := range core.Presets() {
			t.Run(shapeName+"/"+string(p), func(t *testing.T) {
				spec, err := Resolve(schema, p, core.FieldSelection{})
				require.NoError(t, err)
				assert.Equal(t, p, spec.Preset)

				for _, slot := range p.Roles() {
					if !slot.Column {
						continue
					}
					eligible := len(schema.Options(p, slot.Role)) > 0
					if p == core.PresetHeatmap && slot.Role == core.RoleY {
						eligible = len(schema.Numeric) > 0 || len(schema.Categorical) > 1
					}
					if eligible {
						assert.NotEmpty(t, spec.Column(slot.Role), "role %s", slot.Role)
					}
				}
			})
		}
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Time Series", Label(core.PresetTimeSeries))
	assert.Equal(t, "Bar", Label(core.PresetBar))
}

func TestCatalog(t *testing.T) {
	entries := Catalog(salesSchema())
	require.Len(t, entries, len(core.Presets()))

	ts := entries[0]
	assert.Equal(t, core.PresetTimeSeries, ts.Preset)
	require.Len(t, ts.Roles, 4)
	assert.Equal(t, "Date", ts.Roles[0].Label)
	assert.Equal(t, []string{"date", "region", "channel", "sales", "units"}, ts.Roles[0].Options)
	assert.Equal(t, []string{"sum", "mean", "count", "min", "max"}, ts.Roles[2].Options)
	assert.Equal(t, []string{"D", "W", "M", "Q", "Y"}, ts.Roles[3].Options)

	bar := Describe(salesSchema(), core.PresetBar)
	assert.Nil(t, bar.Roles[3].Options)
}
