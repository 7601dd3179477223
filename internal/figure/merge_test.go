package figure

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leapstack-labs/leapviz/internal/layout"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	desktop = layout.Derive(1280, core.DefaultDisplayPreferences())
	phone   = layout.Derive(375, core.DefaultDisplayPreferences())
)

func decodeFigure(t *testing.T, raw string) core.Figure {
	t.Helper()
	var fig core.Figure
	require.NoError(t, json.Unmarshal([]byte(raw), &fig))
	return fig
}

func TestFillAbsent(t *testing.T) {
	dst := map[string]any{
		"a":    1,
		"nil":  nil,
		"nest": map[string]any{"keep": "x"},
		"flat": "scalar",
	}
	defaults := map[string]any{
		"a":    2,
		"b":    3,
		"nil":  "filled",
		"nest": map[string]any{"keep": "y", "add": true},
		"flat": map[string]any{"ignored": 1},
		"new":  map[string]any{"deep": []any{1, 2}},
	}

	FillAbsent(dst, defaults)

	want := map[string]any{
		"a":    1,
		"b":    3,
		"nil":  "filled",
		"nest": map[string]any{"keep": "x", "add": true},
		"flat": "scalar",
		"new":  map[string]any{"deep": []any{1, 2}},
	}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("FillAbsent mismatch (-want +got):\n%s", diff)
	}

	dst["new"].(map[string]any)["deep"].([]any)[0] = 99
	assert.Equal(t, 1, defaults["new"].(map[string]any)["deep"].([]any)[0], "defaults are copied, not shared")
}

func TestMerge_EmptyLayoutDesktop(t *testing.T) {
	got := Merge(core.Figure{}, desktop, core.ThemeLight)

	want := map[string]any{
		"autosize": true,
		"height":   480,
		"margin":   map[string]any{"t": 45, "r": 20, "b": 60, "l": 60},
		"legend": map[string]any{
			"orientation": "v", "x": 1.02, "y": 1, "xanchor": "left", "yanchor": "top",
			"font": map[string]any{"size": 12},
		},
		"font":          map[string]any{"size": 12, "color": FontColorLight},
		"paper_bgcolor": Transparent,
		"plot_bgcolor":  Transparent,
	}
	if diff := cmp.Diff(want, got.Layout); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
	assert.NotNil(t, got.Data)
}

func TestMerge_EmptyLayoutPhoneDark(t *testing.T) {
	got := Merge(core.Figure{}, phone, core.ThemeDark)

	want := map[string]any{
		"autosize": true,
		"height":   300,
		"margin":   map[string]any{"t": 35, "r": 15, "b": 50, "l": 45},
		"legend": map[string]any{
			"orientation": "h", "x": 0, "y": -0.15, "xanchor": "left", "yanchor": "top",
			"font": map[string]any{"size": 10},
		},
		"font":          map[string]any{"size": 11, "color": FontColorDark},
		"paper_bgcolor": Transparent,
		"plot_bgcolor":  Transparent,
	}
	if diff := cmp.Diff(want, got.Layout); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_BackendValuesWin(t *testing.T) {
	fig := decodeFigure(t, `{
		"data": [{"type": "bar", "x": ["a", "b"], "y": [1, 2]}],
		"layout": {
			"title": {"text": "Revenue"},
			"height": 900,
			"autosize": false,
			"margin": {"t": 80},
			"legend": {"orientation": "h", "font": {"size": 14}},
			"font": {"family": "Inter", "color": "#123456"},
			"paper_bgcolor": "white",
			"xaxis": {"title": "Region"}
		}
	}`)

	got := Merge(fig, desktop, core.ThemeDark)

	want := map[string]any{
		"autosize": true,
		"height":   480,
		"margin":   map[string]any{"t": float64(80), "r": 20, "b": 60, "l": 60},
		"legend": map[string]any{
			"orientation": "h", "x": 1.02, "y": 1, "xanchor": "left", "yanchor": "top",
			"font": map[string]any{"size": float64(14)},
		},
		"font":          map[string]any{"family": "Inter", "color": "#123456", "size": 12},
		"paper_bgcolor": Transparent,
		"plot_bgcolor":  Transparent,
		"xaxis":         map[string]any{"title": "Region"},
	}
	if diff := cmp.Diff(want, got.Layout); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fig.Data, got.Data); diff != "" {
		t.Errorf("data changed (-want +got):\n%s", diff)
	}
}

func TestMerge_PhoneForcesLegendPlacement(t *testing.T) {
	fig := decodeFigure(t, `{"data": [], "layout": {"legend": {"orientation": "v", "x": 1.1, "bgcolor": "#fff", "font": {"size": 9}}}}`)

	got := Merge(fig, phone, core.ThemeLight)

	want := map[string]any{
		"orientation": "h", "x": 0, "y": -0.15, "xanchor": "left", "yanchor": "top",
		"bgcolor": "#fff",
		"font":    map[string]any{"size": float64(9)},
	}
	if diff := cmp.Diff(want, got.Layout["legend"]); diff != "" {
		t.Errorf("legend mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	fig := decodeFigure(t, `{
		"data": [{"type": "pie", "labels": ["a"], "values": [1]}],
		"layout": {"title": "Share", "margin": {"l": 10}, "legend": {"x": 0.5}}
	}`)
	before := decodeFigure(t, `{
		"data": [{"type": "pie", "labels": ["a"], "values": [1]}],
		"layout": {"title": "Share", "margin": {"l": 10}, "legend": {"x": 0.5}}
	}`)

	got := Merge(fig, phone, core.ThemeDark)
	got.Data[0]["type"] = "bar"

	if diff := cmp.Diff(before, fig); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
	_, hasTitle := got.Layout["title"]
	assert.False(t, hasTitle)
	assert.Equal(t, "Share", fig.TitleText())
}

func TestMerge_ChartHeightPreference(t *testing.T) {
	v := layout.Derive(1280, core.DisplayPreferences{Theme: core.ThemeLight, ChartHeight: core.ChartHeightSmall})
	got := Merge(core.Figure{}, v, core.ThemeLight)
	assert.Equal(t, 300, got.Layout["height"])
}

func TestMerge_ReplacesNonMapSubtrees(t *testing.T) {
	fig := core.Figure{Layout: map[string]any{"margin": "tight", "font": nil}}
	got := Merge(fig, desktop, core.ThemeLight)
	assert.Equal(t, map[string]any{"t": 45, "r": 20, "b": 60, "l": 60}, got.Layout["margin"])
	assert.Equal(t, map[string]any{"size": 12, "color": FontColorLight}, got.Layout["font"])
}

func TestPlotConfig(t *testing.T) {
	desktopCfg := PlotConfig(desktop)
	assert.True(t, desktopCfg.Responsive)
	assert.True(t, desktopCfg.DisplayModeBar)
	assert.False(t, desktopCfg.DisplayLogo)
	assert.Equal(t, []string{"pan2d", "lasso2d", "select2d"}, desktopCfg.ModeBarButtonsToRemove)

	assert.False(t, PlotConfig(phone).DisplayModeBar)

	raw, err := json.Marshal(PlotConfig(phone))
	require.NoError(t, err)
	assert.JSONEq(t, `{"responsive":true,"displayModeBar":false,"displaylogo":false,"modeBarButtonsToRemove":["pan2d","lasso2d","select2d"]}`, string(raw))
}

func TestFontColor(t *testing.T) {
	assert.Equal(t, FontColorDark, FontColor(core.ThemeDark))
	assert.Equal(t, FontColorLight, FontColor(core.ThemeLight))
	assert.Equal(t, FontColorLight, FontColor(core.ThemeAuto))
}
