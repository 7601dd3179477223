package commands

import (
	"github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/spf13/cobra"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	Fields  FieldOptions
	Display DisplayOptions
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}
	cmd := &cobra.Command{
		Use:   "build <dataset>",
		Short: "Build a chart from a preset and print the display-ready figure",
		Long: `Resolve a preset against the dataset's schema, send it to the
visualization backend and merge the returned figure with the responsive
display defaults for the given width and theme.`,
		Example: `  # Bar chart with every role picked from the schema
  leapviz build sales.csv --preset bar

  # Weekly revenue, laid out for a phone, as JSON
  leapviz build sales.csv -p time_series --y revenue --grain W --width 375 -o json

  # Write the figure for a page container
  leapviz build sales.csv -p pie --out pie.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args[0], opts)
		},
	}

	addFieldFlags(cmd, &opts.Fields)
	addDisplayFlags(cmd, &opts.Display)

	return cmd
}

func runBuild(cmd *cobra.Command, dataset string, opts *BuildOptions) error {
	if err := opts.Display.validate(); err != nil {
		return err
	}
	c := NewCommandContext(cmd)
	ctx := cmd.Context()

	b, cleanup, err := c.Builder(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := b.Update(opts.Fields.apply); err != nil {
		return err
	}
	return buildAndRender(cmd, c, b, dataset, &opts.Display)
}

// buildAndRender selects the dataset when needed, builds with the
// controller's current mode and prints the result.
func buildAndRender(cmd *cobra.Command, c *CommandContext, b *builder.Builder, dataset string, opts *DisplayOptions) error {
	ctx := cmd.Context()
	if snap := b.Snapshot(); snap.Dataset != dataset || snap.Schema == nil {
		if err := b.SelectDataset(ctx, dataset); err != nil {
			return err
		}
	}

	res, err := b.Build(ctx)
	if err != nil {
		return err
	}

	out, err := prepare(c, opts, dataset, res)
	if err != nil {
		return err
	}
	if opts.Out != "" {
		if err := writeFigure(opts.Out, out); err != nil {
			return err
		}
		c.Logger.Info("figure written", "path", opts.Out)
	}
	return renderResult(c.Renderer, out)
}
