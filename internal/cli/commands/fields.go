package commands

import (
	"strconv"

	"github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/spf13/cobra"
)

// FieldOptions are the structured-mode flags shared by resolve and build.
type FieldOptions struct {
	Preset    string
	X         string
	Y         string
	Category  string
	Value     string
	Stage     string
	Agg       string
	TimeGrain string
	TopN      int
}

func addFieldFlags(cmd *cobra.Command, opts *FieldOptions) {
	cmd.Flags().StringVarP(&opts.Preset, "preset", "p", "", "Chart preset (time_series|bar|pie|scatter|heatmap|funnel)")
	cmd.Flags().StringVar(&opts.X, "x", "", "Column for the x role")
	cmd.Flags().StringVar(&opts.Y, "y", "", "Column for the y role")
	cmd.Flags().StringVar(&opts.Category, "category", "", "Column for the category role")
	cmd.Flags().StringVar(&opts.Value, "value", "", "Column for the value role")
	cmd.Flags().StringVar(&opts.Stage, "stage", "", "Column for the stage role")
	cmd.Flags().StringVar(&opts.Agg, "agg", "", "Aggregation (sum|mean|count|min|max)")
	cmd.Flags().StringVar(&opts.TimeGrain, "grain", "", "Time grain (D|W|M|Q|Y)")
	cmd.Flags().IntVar(&opts.TopN, "top-n", 0, "Keep the N largest categories")

	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		presets := core.Presets()
		out := make([]string, len(presets))
		for i, p := range presets {
			out[i] = string(p)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

func (o *FieldOptions) field(role core.Role) string {
	switch role {
	case core.RoleX:
		return o.X
	case core.RoleY:
		return o.Y
	case core.RoleCategory:
		return o.Category
	case core.RoleValue:
		return o.Value
	case core.RoleStage:
		return o.Stage
	case core.RoleAgg:
		return o.Agg
	case core.RoleTimeGrain:
		return o.TimeGrain
	case core.RoleTopN:
		if o.TopN == 0 {
			return ""
		}
		return strconv.Itoa(o.TopN)
	}
	return ""
}

// apply puts the controller in structured mode with the flag values.
// Unset flags leave their role to the resolver.
func (o *FieldOptions) apply(c *builder.Controller) error {
	preset := core.DefaultPreset
	if !core.IsAuto(o.Preset) {
		p, err := core.ParsePreset(o.Preset)
		if err != nil {
			return err
		}
		preset = p
	}
	if err := c.SelectPreset(preset); err != nil {
		return err
	}
	for _, role := range []core.Role{
		core.RoleX, core.RoleY, core.RoleCategory, core.RoleValue, core.RoleStage,
		core.RoleAgg, core.RoleTimeGrain, core.RoleTopN,
	} {
		if err := c.SelectField(role, o.field(role)); err != nil {
			return err
		}
	}
	return nil
}
