// Package board provides the dashboard of pinned charts and the shared
// viewport endpoint every page reports the client width to.
package board

import (
	"github.com/leapstack-labs/leapviz/internal/grid"
	"github.com/leapstack-labs/leapviz/internal/state"
)

// ViewData is everything the board view renders.
type ViewData struct {
	Charts []state.BoardChart
	Layout grid.Layout
	Error  string
}

// charts converts pinned charts to grid input, keeping board order.
func charts(pinned []state.BoardChart) []grid.Chart {
	out := make([]grid.Chart, 0, len(pinned))
	for _, c := range pinned {
		out = append(out, grid.Chart{ID: c.ID, Title: c.Title, Figure: c.Figure})
	}
	return out
}
