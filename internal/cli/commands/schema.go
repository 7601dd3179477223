package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapviz/internal/cli/config"
	"github.com/leapstack-labs/leapviz/internal/cli/output"
	"github.com/leapstack-labs/leapviz/internal/resolver"
	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/leapstack-labs/leapviz/pkg/core"
	"github.com/spf13/cobra"
)

// SchemaOptions holds options for the schema command.
type SchemaOptions struct {
	Presets bool
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	opts := &SchemaOptions{}
	cmd := &cobra.Command{
		Use:   "schema [dataset]",
		Short: "List datasets or show the typed columns of one",
		Long: `Without arguments, list the datasets of the configured schema source.
With a dataset, show its columns grouped as numeric, categorical and datetime.`,
		Example: `  # List datasets
  leapviz schema

  # Show the columns of a dataset
  leapviz schema sales.csv

  # Show which columns each preset can use
  leapviz schema sales.csv --presets`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runDatasets(cmd)
			}
			return runSchema(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Presets, "presets", false, "Show the role options of every preset")

	return cmd
}

// DatasetsOutput is the JSON output of the dataset listing.
type DatasetsOutput struct {
	Datasets []string `json:"datasets" yaml:"datasets"`
}

// SchemaOutput is the JSON output of the schema command.
type SchemaOutput struct {
	Dataset string           `json:"dataset" yaml:"dataset"`
	Schema  *core.Schema     `json:"schema" yaml:"schema"`
	Presets []resolver.Entry `json:"presets,omitempty" yaml:"presets,omitempty"`
}

func runDatasets(cmd *cobra.Command) error {
	c := NewCommandContext(cmd)
	ctx := cmd.Context()

	source, cleanup, err := openSource(cmd, c)
	if err != nil {
		return err
	}
	defer cleanup()

	datasets, err := source.Datasets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}

	r := c.Renderer
	if r.EffectiveMode() != output.ModeText {
		return r.Data(DatasetsOutput{Datasets: datasets})
	}
	if len(datasets) == 0 {
		r.Muted("No datasets found")
		return nil
	}
	r.Header(1, fmt.Sprintf("Datasets (%d)", len(datasets)))
	for _, d := range datasets {
		r.Println("  " + d)
	}
	return nil
}

func runSchema(cmd *cobra.Command, dataset string, opts *SchemaOptions) error {
	c := NewCommandContext(cmd)

	source, cleanup, err := openSource(cmd, c)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := fetchSchema(cmd, source, dataset)
	if err != nil {
		return err
	}

	out := SchemaOutput{Dataset: dataset, Schema: s}
	if opts.Presets {
		out.Presets = resolver.Catalog(s)
	}

	r := c.Renderer
	if r.EffectiveMode() != output.ModeText {
		return r.Data(out)
	}

	r.Header(1, dataset)
	rows := make([][]string, 0, s.Len())
	for _, t := range []core.SemanticType{core.SemanticNumeric, core.SemanticCategorical, core.SemanticDatetime} {
		for _, col := range s.Columns(t) {
			rows = append(rows, []string{col, string(t)})
		}
	}
	if len(rows) == 0 {
		r.Muted("No classifiable columns")
	} else {
		r.Table([]string{"column", "type"}, rows)
	}

	for _, e := range out.Presets {
		r.Println("")
		r.Header(2, e.Label)
		for _, role := range e.Roles {
			options := strings.Join(role.Options, ", ")
			if options == "" {
				options = r.Styles().Muted.Render("(none)")
			}
			r.KeyValue(role.Label, options)
		}
	}
	return nil
}

// openSource opens the schema source, with a backend client only when
// schemas come from the backend.
func openSource(cmd *cobra.Command, c *CommandContext) (schema.Source, func(), error) {
	if c.Cfg.Schema.Source == config.SourceBackend {
		client, err := c.Backend()
		if err != nil {
			return nil, nil, err
		}
		return c.Source(cmd.Context(), client)
	}
	return c.Source(cmd.Context(), nil)
}

// fetchSchema fetches and validates a dataset's schema.
func fetchSchema(cmd *cobra.Command, p schema.Provider, dataset string) (*core.Schema, error) {
	s, err := p.Schema(cmd.Context(), dataset)
	if err == nil && s == nil {
		err = core.ErrSchemaUnavailable
	}
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		return nil, &core.SchemaUnavailableError{Dataset: dataset, Err: err}
	}
	return s, nil
}
