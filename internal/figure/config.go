package figure

import "github.com/leapstack-labs/leapviz/internal/layout"

// Config is the plotly display configuration sent alongside a figure.
type Config struct {
	Responsive             bool     `json:"responsive"`
	DisplayModeBar         bool     `json:"displayModeBar"`
	DisplayLogo            bool     `json:"displaylogo"`
	ModeBarButtonsToRemove []string `json:"modeBarButtonsToRemove"`
}

// PlotConfig returns the display configuration for a viewport.
// The mode bar is hidden on the smallest screens.
func PlotConfig(v layout.Viewport) Config {
	return Config{
		Responsive:             true,
		DisplayModeBar:         !v.IsXS(),
		DisplayLogo:            false,
		ModeBarButtonsToRemove: []string{"pan2d", "lasso2d", "select2d"},
	}
}
