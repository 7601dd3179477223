package commands

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapviz/internal/backend"
	"github.com/leapstack-labs/leapviz/internal/cli/config"
	"github.com/leapstack-labs/leapviz/internal/cli/output"
	"github.com/spf13/cobra"
)

const doctorTimeout = 10 * time.Second

// Check statuses.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, backend and schema source",
		Long: `Check that LeapViz can do its work:

- Configuration: which file was loaded
- Backend: the visualization backend answers its health check
- Schemas: the configured schema source lists datasets
- State: the preferences and board store opens and is migrated

Exits with an error when any check fails.`,
		Example: `  # Run all checks
  leapviz doctor

  # Machine-readable
  leapviz doctor -o json`,
		RunE: runDoctor,
	}
}

// DoctorOutput is the structured output of the doctor command.
type DoctorOutput struct {
	Checks []Check `json:"checks" yaml:"checks"`
	Failed int     `json:"failed" yaml:"failed"`
}

// Check is a single doctor check result.
type Check struct {
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	c := NewCommandContext(cmd)
	ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
	defer cancel()

	client, err := c.Backend()
	if err == nil {
		err = client.Health(ctx)
	}

	out := &DoctorOutput{Checks: []Check{
		newCheck("config", nil, configDetail()),
		newCheck("backend", err, backendDetail(client)),
		checkSchemas(ctx, c, client),
		checkState(ctx, c),
	}}
	for _, ch := range out.Checks {
		if ch.Status == StatusFail {
			out.Failed++
		}
	}

	if err := renderDoctor(c.Renderer, out); err != nil {
		return err
	}
	if out.Failed > 0 {
		return fmt.Errorf("%d of %d checks failed", out.Failed, len(out.Checks))
	}
	return nil
}

func newCheck(name string, err error, detail string) Check {
	if err != nil {
		return Check{Name: name, Status: StatusFail, Detail: err.Error()}
	}
	return Check{Name: name, Status: StatusPass, Detail: detail}
}

func configDetail() string {
	if f := config.GetConfigFileUsed(); f != "" {
		return f
	}
	return "no config file, using defaults and environment"
}

func backendDetail(client *backend.Client) string {
	if client == nil {
		return ""
	}
	return fmt.Sprintf("%s (breaker %s)", client.BaseURL(), client.BreakerState())
}

func checkSchemas(ctx context.Context, c *CommandContext, client *backend.Client) Check {
	const name = "schemas"
	source := c.Cfg.Schema.Source
	if source == config.SourceBackend && client == nil {
		return newCheck(name, fmt.Errorf("the backend source needs a configured backend"), "")
	}
	src, cleanup, err := c.Source(ctx, client)
	if err != nil {
		return newCheck(name, err, "")
	}
	defer cleanup()

	datasets, err := src.Datasets(ctx)
	return newCheck(name, err, fmt.Sprintf("%s source, %d datasets", source, len(datasets)))
}

func checkState(ctx context.Context, c *CommandContext) Check {
	const name = "state"
	store, err := c.OpenStore(ctx)
	if err != nil {
		return newCheck(name, err, "")
	}
	defer func() { _ = store.Close() }()

	version, err := store.MigrationVersion(ctx)
	return newCheck(name, err, fmt.Sprintf("%s (schema version %d)", store.Path(), version))
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	if r.EffectiveMode() != output.ModeText {
		return r.Data(out)
	}

	title := cases.Title(language.English)
	r.Header(1, "LeapViz Doctor")
	for _, ch := range out.Checks {
		status := "success"
		if ch.Status != StatusPass {
			status = "failed"
		}
		r.StatusLine(title.String(ch.Name), status, ch.Detail)
	}
	r.Println("")
	if out.Failed == 0 {
		r.Success("All checks passed")
	} else {
		r.Warning(fmt.Sprintf("%d of %d checks failed", out.Failed, len(out.Checks)))
	}
	return nil
}
