// Package layout derives the responsive display parameters of a chart from
// the client's viewport width and the user's display preferences.
package layout

import "github.com/leapstack-labs/leapviz/pkg/core"

// Breakpoints (exclusive upper bounds) for the viewport classes.
const (
	BreakpointSM = 576
	BreakpointMD = 768
	BreakpointLG = 992
	BreakpointXL = 1200

	// DefaultWidth is assumed when the client has not reported a width.
	DefaultWidth = 1024
)

// Viewport is the derived display context a figure is merged against.
type Viewport struct {
	Width      int                `json:"width"`
	Class      core.ViewportClass `json:"class"`
	PlotHeight int                `json:"plot_height"`
}

// IsXS reports whether the viewport is the smallest class.
func (v Viewport) IsXS() bool { return v.Class == core.ViewportXS }

// Classify buckets a pixel width. Non-positive widths count as DefaultWidth.
func Classify(width int) core.ViewportClass {
	if width <= 0 {
		width = DefaultWidth
	}
	switch {
	case width < BreakpointSM:
		return core.ViewportXS
	case width < BreakpointMD:
		return core.ViewportSM
	case width < BreakpointLG:
		return core.ViewportMD
	case width < BreakpointXL:
		return core.ViewportLG
	default:
		return core.ViewportXL
	}
}

// PlotHeight returns the chart height in pixels. A stored chart height
// preference wins over the viewport ladder.
func PlotHeight(class core.ViewportClass, prefs core.DisplayPreferences) int {
	switch prefs.ChartHeight {
	case core.ChartHeightSmall:
		return 300
	case core.ChartHeightMedium:
		return 480
	case core.ChartHeightLarge:
		return 600
	}

	switch class {
	case core.ViewportXS:
		return 300
	case core.ViewportSM:
		return 340
	case core.ViewportMD:
		return 400
	default:
		return 480
	}
}

// Derive computes the viewport for a width under prefs.
func Derive(width int, prefs core.DisplayPreferences) Viewport {
	if width <= 0 {
		width = DefaultWidth
	}
	class := Classify(width)
	return Viewport{
		Width:      width,
		Class:      class,
		PlotHeight: PlotHeight(class, prefs),
	}
}
