// Package figure merges backend plot specifications with the responsive and
// theme-aware display rules of the client. Backend values always win over
// display defaults; only a few keys are forced.
package figure

import (
	"github.com/leapstack-labs/leapviz/internal/layout"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

// Font colors per theme.
const (
	FontColorLight = "#222"
	FontColorDark  = "#e6e7ea"
)

// Transparent is forced on the paper and plot backgrounds so the page theme shows through.
const Transparent = "rgba(0,0,0,0)"

// FillAbsent copies into dst every key of defaults that dst lacks (or holds
// as nil). When both sides hold a map under the same key, it recurses.
// Existing values in dst are never overwritten. dst is modified in place;
// values taken from defaults are deep-copied.
func FillAbsent(dst, defaults map[string]any) {
	for k, dv := range defaults {
		cur, ok := dst[k]
		if !ok || cur == nil {
			dst[k] = Clone(dv)
			continue
		}
		curMap, curIsMap := cur.(map[string]any)
		defMap, defIsMap := dv.(map[string]any)
		if curIsMap && defIsMap {
			FillAbsent(curMap, defMap)
		}
	}
}

// Merge returns a display-ready copy of fig for the viewport and theme.
// The input figure is never modified.
func Merge(fig core.Figure, v layout.Viewport, theme core.Theme) core.Figure {
	out := core.Figure{
		Data:   cloneData(fig.Data),
		Layout: cloneMap(fig.Layout),
	}
	if out.Layout == nil {
		out.Layout = map[string]any{}
	}
	if out.Data == nil {
		out.Data = []map[string]any{}
	}
	l := out.Layout
	xs := v.IsXS()

	l["autosize"] = true
	l["height"] = v.PlotHeight
	delete(l, "title")

	margin := subMap(l, "margin")
	if xs {
		FillAbsent(margin, map[string]any{"t": 35, "r": 15, "b": 50, "l": 45})
	} else {
		FillAbsent(margin, map[string]any{"t": 45, "r": 20, "b": 60, "l": 60})
	}

	legend := subMap(l, "legend")
	if xs {
		legend["orientation"] = "h"
		legend["x"] = 0
		legend["y"] = -0.15
		legend["xanchor"] = "left"
		legend["yanchor"] = "top"
		FillAbsent(legend, map[string]any{"font": map[string]any{"size": 10}})
	} else {
		FillAbsent(legend, map[string]any{
			"orientation": "v",
			"x":           1.02,
			"y":           1,
			"xanchor":     "left",
			"yanchor":     "top",
			"font":        map[string]any{"size": 12},
		})
	}

	font := subMap(l, "font")
	size := 12
	if xs {
		size = 11
	}
	FillAbsent(font, map[string]any{"size": size, "color": FontColor(theme)})

	l["paper_bgcolor"] = Transparent
	l["plot_bgcolor"] = Transparent

	return out
}

// FontColor returns the default font color of a theme. Unresolved themes use light.
func FontColor(theme core.Theme) string {
	if theme == core.ThemeDark {
		return FontColorDark
	}
	return FontColorLight
}

// subMap returns l[key] as a map, replacing a missing or non-map value.
func subMap(l map[string]any, key string) map[string]any {
	if m, ok := l[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	l[key] = m
	return m
}

// Clone deep-copies JSON-shaped values (maps, slices and scalars).
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case []map[string]any:
		return cloneData(t)
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

func cloneData(d []map[string]any) []map[string]any {
	if d == nil {
		return nil
	}
	out := make([]map[string]any, len(d))
	for i, trace := range d {
		out[i] = cloneMap(trace)
	}
	return out
}
