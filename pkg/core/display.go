package core

import (
	"fmt"
	"strings"
)

// Theme is the active color scheme.
type Theme string

// Themes. ThemeAuto follows the client's own preference.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Resolve turns ThemeAuto into light or dark.
func (t Theme) Resolve(prefersDark bool) Theme {
	switch t {
	case ThemeDark:
		return ThemeDark
	case ThemeAuto:
		if prefersDark {
			return ThemeDark
		}
		return ThemeLight
	default:
		return ThemeLight
	}
}

// ParseTheme converts a string to a Theme. Empty yields light.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case "", ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	case ThemeAuto:
		return ThemeAuto, nil
	}
	return "", fmt.Errorf("unsupported theme %q (want light, dark or auto)", s)
}

// ChartHeight is the persisted plot height preference.
// The zero value means "derive from the viewport".
type ChartHeight string

// Chart height preferences.
const (
	ChartHeightAuto   ChartHeight = ""
	ChartHeightSmall  ChartHeight = "small"
	ChartHeightMedium ChartHeight = "medium"
	ChartHeightLarge  ChartHeight = "large"
)

// ParseChartHeight converts a string to a ChartHeight.
func ParseChartHeight(s string) (ChartHeight, error) {
	if IsAuto(s) {
		return ChartHeightAuto, nil
	}
	switch h := ChartHeight(strings.ToLower(strings.TrimSpace(s))); h {
	case ChartHeightSmall, ChartHeightMedium, ChartHeightLarge:
		return h, nil
	}
	return "", fmt.Errorf("unsupported chart height %q (want small, medium or large)", s)
}

// DisplayPreferences are the user's persisted display settings.
// They are loaded once at the page root and passed down explicitly.
type DisplayPreferences struct {
	Theme       Theme       `json:"theme"`
	ChartHeight ChartHeight `json:"chart_height,omitempty"`
}

// DefaultDisplayPreferences returns the preferences of a user who never saved any.
func DefaultDisplayPreferences() DisplayPreferences {
	return DisplayPreferences{Theme: ThemeLight}
}

// ViewportClass is a coarse device-size bucket derived from pixel width.
type ViewportClass string

// Viewport classes, smallest first.
const (
	ViewportXS ViewportClass = "xs"
	ViewportSM ViewportClass = "sm"
	ViewportMD ViewportClass = "md"
	ViewportLG ViewportClass = "lg"
	ViewportXL ViewportClass = "xl"
)
