package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapviz/internal/builder"
	"github.com/leapstack-labs/leapviz/internal/schema"
	"github.com/spf13/cobra"
)

const (
	askPrompt   = "leapviz> "
	historyFile = "ask_history"
)

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	opts := &DisplayOptions{}
	cmd := &cobra.Command{
		Use:   "ask <dataset> [question...]",
		Short: "Ask for a chart in plain language",
		Long: `Send a natural-language question about a dataset to the visualization
backend and print the chart it built, with the backend's interpretation.

Without a question an interactive session starts. Each line is a new
question; dot-commands switch datasets or show the schema.`,
		Example: `  # One question
  leapviz ask sales.csv "monthly revenue by region since 2023"

  # Interactive session
  leapviz ask sales.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, args[0], strings.Join(args[1:], " "), opts)
		},
	}

	addDisplayFlags(cmd, opts)

	return cmd
}

// askSession is the state of one ask invocation.
type askSession struct {
	cmd     *cobra.Command
	c       *CommandContext
	b       *builder.Builder
	source  schema.Lister
	dataset string
	opts    *DisplayOptions
}

func runAsk(cmd *cobra.Command, dataset, question string, opts *DisplayOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	c := NewCommandContext(cmd)
	ctx := cmd.Context()

	client, err := c.Backend()
	if err != nil {
		return err
	}
	source, cleanup, err := c.Source(ctx, client)
	if err != nil {
		return err
	}
	defer cleanup()

	s := &askSession{
		cmd:     cmd,
		c:       c,
		b:       builder.New(source, builder.NewDispatcher(client, c.Logger), c.Logger),
		source:  source,
		dataset: dataset,
		opts:    opts,
	}

	if question != "" {
		return s.ask(question)
	}
	if err := s.b.SelectDataset(ctx, dataset); err != nil {
		return err
	}
	return s.repl(client.BaseURL())
}

func (s *askSession) ask(question string) error {
	_ = s.b.Update(func(c *builder.Controller) error {
		c.Ask(question)
		return nil
	})
	return buildAndRender(s.cmd, s.c, s.b, s.dataset, s.opts)
}

func (s *askSession) repl(backendURL string) error {
	completer := readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".datasets"),
		readline.PcItem(".dataset", readline.PcItemDynamic(s.datasetNames)),
		readline.PcItem(".schema"),
		readline.PcItem(".quit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          askPrompt,
		HistoryFile:     filepath.Join(filepath.Dir(s.c.Cfg.StatePath), historyFile),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := s.cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "LeapViz ask (dataset: %s, backend: %s)\n", s.dataset, backendURL)
	_, _ = fmt.Fprintln(out, "Type a question, .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := s.handleLine(s.cmd.Context(), line); quit {
			return nil
		}
	}
}

// handleLine runs one REPL line and reports whether the session should end.
// Errors are printed; they never end the session.
func (s *askSession) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	r := s.c.Renderer

	if !strings.HasPrefix(line, ".") {
		if err := s.ask(line); err != nil {
			r.Error(err.Error())
		}
		r.Println("")
		return false
	}

	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printAskHelp(s.cmd.OutOrStdout())

	case ".datasets":
		names := s.datasetNames("")
		if len(names) == 0 {
			r.Muted("No datasets found")
		}
		for _, name := range names {
			marker := "  "
			if name == s.dataset {
				marker = "* "
			}
			r.Println(marker + name)
		}

	case ".dataset":
		if len(parts) < 2 {
			r.Println("Current dataset: " + s.dataset)
			return false
		}
		if err := s.b.SelectDataset(ctx, parts[1]); err != nil {
			r.Error(err.Error())
			return false
		}
		s.dataset = parts[1]
		r.Success("Switched to " + s.dataset)

	case ".schema":
		snap := s.b.Snapshot()
		if snap.Schema == nil {
			r.Error("no schema loaded for " + s.dataset)
			return false
		}
		r.KeyValue("numeric", strings.Join(snap.Schema.Numeric, ", "))
		r.KeyValue("categorical", strings.Join(snap.Schema.Categorical, ", "))
		r.KeyValue("datetime", strings.Join(snap.Schema.Datetime, ", "))

	default:
		r.Error(fmt.Sprintf("unknown command %s (try .help)", parts[0]))
	}
	return false
}

func (s *askSession) datasetNames(string) []string {
	names, err := s.source.Datasets(s.cmd.Context())
	if err != nil {
		s.c.Logger.Debug("failed to list datasets", "error", err)
		return nil
	}
	return names
}

func printAskHelp(w io.Writer) {
	_, _ = fmt.Fprintln(w, `Commands:
  .dataset [name]  Show or switch the dataset
  .datasets        List datasets
  .schema          Show the columns of the dataset
  .help            Show this help
  .quit            Exit

Anything else is sent to the backend as a question.`)
}
