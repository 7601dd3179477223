// Package grid lays out independently built charts as a uniform stack of
// full-width panels.
package grid

import (
	"github.com/leapstack-labs/leapviz/internal/figure"
	"github.com/leapstack-labs/leapviz/internal/layout"
	"github.com/leapstack-labs/leapviz/pkg/core"
)

// BoostedHeight is the minimum panel height when exactly three charts are shown.
const BoostedHeight = 560

// Placeholder texts shown when there is nothing to render.
const (
	EmptyTitle = "No charts available"
	EmptyHint  = "Charts will appear here after data analysis"
)

// Chart is one resolved chart to place in the grid.
type Chart struct {
	ID     string      `json:"id,omitempty"`
	Title  string      `json:"title,omitempty"`
	Figure core.Figure `json:"figure"`
}

// Panel is a rendered grid cell.
type Panel struct {
	ID     string        `json:"id,omitempty"`
	Title  string        `json:"title"`
	Height int           `json:"height"`
	Figure core.Figure   `json:"figure"`
	Config figure.Config `json:"config"`

	// Placeholder marks the single panel of an empty grid; Hint explains it.
	Placeholder bool   `json:"placeholder,omitempty"`
	Hint        string `json:"hint,omitempty"`
}

// Layout is the rendered grid.
type Layout struct {
	Panels   []Panel         `json:"panels"`
	Viewport layout.Viewport `json:"viewport"`
	Theme    core.Theme      `json:"theme"`
}

// Empty reports whether the layout only holds the placeholder panel.
func (l Layout) Empty() bool {
	return len(l.Panels) == 1 && l.Panels[0].Placeholder
}

// Render lays out charts in input order for a viewport and theme.
// It is stateless; callers re-render on every change.
func Render(charts []Chart, v layout.Viewport, theme core.Theme) Layout {
	out := Layout{Viewport: v, Theme: theme}
	if len(charts) == 0 {
		out.Panels = []Panel{{
			Title:       EmptyTitle,
			Hint:        EmptyHint,
			Height:      v.PlotHeight,
			Config:      figure.PlotConfig(v),
			Placeholder: true,
		}}
		return out
	}

	pv := v
	if len(charts) == 3 {
		pv.PlotHeight = max(v.PlotHeight, BoostedHeight)
	}

	out.Panels = make([]Panel, 0, len(charts))
	for _, c := range charts {
		title := c.Title
		if title == "" {
			title = c.Figure.TitleText()
		}
		out.Panels = append(out.Panels, Panel{
			ID:     c.ID,
			Title:  title,
			Height: pv.PlotHeight,
			Figure: figure.Merge(c.Figure, pv, theme),
			Config: figure.PlotConfig(pv),
		})
	}
	return out
}
