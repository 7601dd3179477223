// Package common provides the shared page shell, chart components and
// helpers of the UI features.
package common

import "github.com/leapstack-labs/leapviz/pkg/core"

// ShellData holds what the page shell needs to render around a feature.
type ShellData struct {
	Title       string
	CurrentPath string
	Theme       core.Theme
	IsDev       bool
}

// NavItem is an entry of the top navigation.
type NavItem struct {
	Path  string
	Label string
}

// Nav lists the top navigation entries.
var Nav = []NavItem{
	{Path: "/builder", Label: "Builder"},
	{Path: "/board", Label: "Board"},
}

// ViewportSignals are the client display signals every page posts on load
// and on resize.
type ViewportSignals struct {
	Width int  `json:"width"`
	Dark  bool `json:"dark"`
}
