package commands

import (
	"crypto/rand"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/leapstack-labs/leapviz/internal/cli/config"
	"github.com/leapstack-labs/leapviz/internal/ui"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
	Dev       bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"ui"},
		Short:   "Start the chart builder and board web UI",
		Long: `Start a local web server with the chart builder, the board of pinned
charts and the JSON API used by external page containers.

The UI provides:
- Natural-language and preset-based chart building
- Responsive figures for the browser's viewport and color scheme
- A board of pinned charts laid out as a grid`,
		Example: `  # Start UI on default port
  leapviz serve

  # Start on custom port
  leapviz serve --port 3000

  # Start without auto-opening browser
  leapviz serve --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Watch the data directory for new and changed datasets")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Development mode: reload pages when the server restarts")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	c := NewCommandContext(cmd)
	cfg := c.Cfg
	ctx := cmd.Context()

	port := cfg.UI.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	if port == 0 {
		port = config.DefaultPort
	}

	autoOpen := cfg.UI.AutoOpen && !opts.NoBrowser

	watch := cfg.UI.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}
	// Only data files on disk can be watched.
	watch = watch && cfg.Schema.Source != config.SourcePostgres

	client, err := c.Backend()
	if err != nil {
		return err
	}
	source, cleanup, err := c.Source(ctx, client)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := c.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() { _ = store.Close() }()

	secret := cfg.UI.SessionSecret
	if secret == "" {
		secret = generateSessionSecret()
		c.Logger.Warn("ui.session_secret not set; sessions end when the server stops")
	}

	server := ui.NewServer(ui.Config{
		Source:         source,
		Backend:        client,
		Store:          store,
		Port:           port,
		Watch:          watch,
		DataDir:        cfg.Schema.DataDir,
		SessionSecret:  secret,
		AllowedOrigins: cfg.UI.AllowedOrigins,
		Defaults:       cfg.Display.Preferences(),
		Dev:            opts.Dev,
		Logger:         c.Logger,
	})

	url := fmt.Sprintf("http://localhost:%d", port)
	if autoOpen {
		go openBrowser(url)
	}

	r := c.Renderer
	r.Printf("Starting UI server on %s\n", url)
	r.Muted(fmt.Sprintf("Backend %s, schemas from %s", client.BaseURL(), cfg.Schema.Source))
	r.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// generateSessionSecret returns a random secret for a single server run.
func generateSessionSecret() string {
	return rand.Text() + rand.Text()
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
