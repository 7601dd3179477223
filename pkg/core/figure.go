package core

// Figure is the backend's plot description: series data plus layout metadata.
type Figure struct {
	Data   []map[string]any `json:"data"`
	Layout map[string]any   `json:"layout"`
}

// TitleText returns the figure's own title text, if it carries one.
// Plotly accepts both a bare string and an object with a "text" field.
func (f Figure) TitleText() string {
	switch t := f.Layout["title"].(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["text"].(string); ok {
			return s
		}
	}
	return ""
}

// VisualizationResult is what a successful build produces.
// Interpretation is set only for natural-language results.
type VisualizationResult struct {
	Figure         Figure          `json:"figure"`
	Interpretation *Interpretation `json:"interpretation,omitempty"`
}

// Interpretation describes how the backend understood a natural-language prompt.
type Interpretation struct {
	Config        map[string]any `json:"config,omitempty"`
	AppliedFilter *TimeFilter    `json:"applied_filter,omitempty"`
	Explanation   string         `json:"explanation,omitempty"`
}

// Title returns the title of the chart the backend built.
func (i *Interpretation) Title() string {
	if i == nil {
		return ""
	}
	if t, ok := i.Config["title"].(string); ok && t != "" {
		return t
	}
	return "Custom chart"
}

// TimeFilter is a date range the backend applied before charting.
// Bounds are kept as the backend sent them (ISO-8601 or null).
type TimeFilter struct {
	DateColumn string `json:"date_col"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
}

// String describes the filter for display, e.g. "Filtered on date from 2023-01-01".
func (f *TimeFilter) String() string {
	s := "Filtered on " + f.DateColumn
	if f.Start != "" {
		s += " from " + f.Start
	}
	if f.End != "" {
		s += " to " + f.End
	}
	return s
}

// Operation names a visualization backend call.
type Operation string

// Backend operations.
const (
	OpSchema    Operation = "schema"
	OpVisualize Operation = "visualize"
	OpNLViz     Operation = "nlviz"
)
