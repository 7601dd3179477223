package common

import "github.com/leapstack-labs/leapviz/internal/grid"

// Post returns the datastar action posting the page signals to url.
func Post(url string) string {
	return "@post('" + url + "')"
}

// PanelID returns the element id of a grid panel.
func PanelID(p grid.Panel) string {
	if p.ID == "" {
		return "panel-placeholder"
	}
	return "panel-" + p.ID
}
