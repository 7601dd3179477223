package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/leapstack-labs/leapviz/internal/cli/output"
	"github.com/leapstack-labs/leapviz/internal/figure"
	"github.com/leapstack-labs/leapviz/internal/layout"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/spf13/cobra"
)

// DisplayOptions control how a built figure is prepared for display.
type DisplayOptions struct {
	Width int
	Theme string
	Out   string
}

func addDisplayFlags(cmd *cobra.Command, opts *DisplayOptions) {
	cmd.Flags().IntVar(&opts.Width, "width", layout.DefaultWidth, "Viewport width in pixels the figure is laid out for")
	cmd.Flags().StringVar(&opts.Theme, "theme", "", "Theme (light|dark|auto); defaults to display.theme")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Also write the display-ready figure as JSON to this file")
}

func (o *DisplayOptions) validate() error {
	if o.Width < 0 {
		return fmt.Errorf("width must not be negative")
	}
	_, err := core.ParseTheme(o.Theme)
	return err
}

// ResultOutput is the JSON output of build and ask.
type ResultOutput struct {
	Dataset        string               `json:"dataset" yaml:"dataset"`
	Title          string               `json:"title" yaml:"title"`
	Viewport       layout.Viewport      `json:"viewport" yaml:"viewport"`
	Theme          core.Theme           `json:"theme" yaml:"theme"`
	Figure         core.Figure          `json:"figure" yaml:"figure"`
	Config         figure.Config        `json:"config" yaml:"config"`
	Interpretation *core.Interpretation `json:"interpretation,omitempty" yaml:"interpretation,omitempty"`
}

// prepare merges a backend result with the display defaults of the
// configured preferences, the requested width and the terminal theme.
func prepare(c *CommandContext, opts *DisplayOptions, dataset string, res *core.VisualizationResult) (*ResultOutput, error) {
	prefs := c.Cfg.Display.Preferences()
	if opts.Theme != "" {
		theme, err := core.ParseTheme(opts.Theme)
		if err != nil {
			return nil, err
		}
		prefs.Theme = theme
	}

	v := layout.Derive(opts.Width, prefs)
	theme := prefs.Theme.Resolve(c.Renderer.PrefersDark())
	merged := figure.Merge(res.Figure, v, theme)

	return &ResultOutput{
		Dataset:        dataset,
		Title:          resultTitle(res, merged),
		Viewport:       v,
		Theme:          theme,
		Figure:         merged,
		Config:         figure.PlotConfig(v),
		Interpretation: res.Interpretation,
	}, nil
}

func resultTitle(res *core.VisualizationResult, fig core.Figure) string {
	if res.Interpretation != nil {
		return res.Interpretation.Title()
	}
	if t := fig.TitleText(); t != "" {
		return t
	}
	return "Untitled chart"
}

// writeFigure writes the figure and its display config as a JSON file.
func writeFigure(path string, out *ResultOutput) error {
	data, err := json.MarshalIndent(struct {
		Figure core.Figure   `json:"figure"`
		Config figure.Config `json:"config"`
	}{out.Figure, out.Config}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write figure: %w", err)
	}
	return nil
}

// renderResult prints a built chart. Text mode shows a summary; the
// structured modes print the whole display-ready figure.
func renderResult(r *output.Renderer, out *ResultOutput) error {
	if r.EffectiveMode() != output.ModeText {
		return r.Data(out)
	}

	styles := r.Styles()
	r.Header(1, out.Title)
	r.KeyValue("dataset", out.Dataset)
	r.KeyValue("traces", len(out.Figure.Data))
	r.KeyValue("viewport", fmt.Sprintf("%s, %dpx", out.Viewport.Class, out.Viewport.Width))
	r.KeyValue("height", fmt.Sprintf("%dpx", out.Viewport.PlotHeight))
	r.KeyValue("theme", out.Theme)

	if i := out.Interpretation; i != nil {
		r.Println("")
		r.Header(2, "Interpretation")
		if i.Explanation != "" {
			r.Println("  " + i.Explanation)
		}
		if f := i.AppliedFilter; f != nil {
			r.Println("  " + styles.Muted.Render(f.String()))
		}
	}
	r.Println("")
	r.Muted("Use -o json for the figure, or --out to write it to a file")
	return nil
}
