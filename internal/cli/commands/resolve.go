package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/leapstack-labs/leapviz/internal/cli/output"
	"github.com/leapstack-labs/leapviz/internal/resolver"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/spf13/cobra"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	opts := &FieldOptions{}
	cmd := &cobra.Command{
		Use:   "resolve <dataset>",
		Short: "Fill the roles of a preset from a dataset's schema",
		Long: `Complete a partial field selection into the spec that would be sent to
the visualization backend. Roles given as flags are kept; the rest are
picked from the dataset's columns. Nothing is sent to the backend.`,
		Example: `  # Let every role be picked
  leapviz resolve sales.csv --preset bar

  # Fix the value column of a pie chart
  leapviz resolve sales.csv --preset pie --value units -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0], opts)
		},
	}

	addFieldFlags(cmd, opts)

	return cmd
}

// ResolveOutput is the JSON output of the resolve command.
type ResolveOutput struct {
	Dataset  string            `json:"dataset" yaml:"dataset"`
	Spec     core.ResolvedSpec `json:"spec" yaml:"spec"`
	Unfilled []core.Role       `json:"unfilled" yaml:"unfilled"`
}

func runResolve(cmd *cobra.Command, dataset string, opts *FieldOptions) error {
	c := NewCommandContext(cmd)

	ctrl := builder.NewController()
	if err := opts.apply(ctrl); err != nil {
		return err
	}

	source, cleanup, err := openSource(cmd, c)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := fetchSchema(cmd, source, dataset)
	if err != nil {
		return err
	}

	spec, err := resolver.Resolve(s, ctrl.Preset(), ctrl.Selection())
	if err != nil {
		return err
	}
	unfilled := spec.Unfilled()
	if unfilled == nil {
		unfilled = []core.Role{}
	}
	out := ResolveOutput{Dataset: dataset, Spec: spec, Unfilled: unfilled}

	r := c.Renderer
	if r.EffectiveMode() != output.ModeText {
		return r.Data(out)
	}
	renderSpecText(r, dataset, spec)
	if len(unfilled) > 0 {
		names := make([]string, len(unfilled))
		for i, role := range unfilled {
			names[i] = string(role)
		}
		r.Warning(fmt.Sprintf("no column available for %s", strings.Join(names, ", ")))
	}
	return nil
}

func renderSpecText(r *output.Renderer, dataset string, spec core.ResolvedSpec) {
	r.Header(1, fmt.Sprintf("%s on %s", resolver.Label(spec.Preset), dataset))
	for _, slot := range spec.Preset.Roles() {
		var value string
		switch slot.Role {
		case core.RoleAgg:
			value = string(spec.Agg)
		case core.RoleTimeGrain:
			value = string(spec.TimeGrain)
		case core.RoleTopN:
			value = fmt.Sprint(spec.TopN)
		default:
			value = spec.Column(slot.Role)
		}
		if value == "" {
			value = r.Styles().Muted.Render("(unfilled)")
		}
		r.KeyValue(slot.Label, value)
	}
}
