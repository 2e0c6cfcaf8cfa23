// Package commands implements the lineindex subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Sumatoshi-tech/lineindex/pkg/config"
	"github.com/Sumatoshi-tech/lineindex/pkg/document"
	"github.com/Sumatoshi-tech/lineindex/pkg/lineindex"
	"github.com/Sumatoshi-tech/lineindex/pkg/observability"
	"github.com/Sumatoshi-tech/lineindex/pkg/textutil"
	"github.com/Sumatoshi-tech/lineindex/pkg/version"
)

const stdinPath = "-"

// App holds the configuration and telemetry shared by every subcommand.
type App struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.IndexMetrics
	stdin     io.Reader
}

// NewRootCommand builds the lineindex command tree.
func NewRootCommand() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:   "lineindex",
		Short: "Inspect and exercise the document line index",
		Long: `lineindex maps text documents to lines, UTF-16 offsets, rows, bytes and heights.

Commands:
  stats    Summarize the lines of a file
  heights  Measure soft-wrapped line heights
  locate   Find the line at an offset, row, byte or y position
  replay   Replay the diff between two files as incremental edits
  bench    Run a random edit workload
  chart    Render a line length chart
  lsp      Serve text synchronization over stdio`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  app.setup,
		PersistentPostRunE: app.teardown,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "config file (default: lineindex.yaml in ., ./config, /etc/lineindex)")
	flags.StringVar(&app.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&app.logFormat, "log-format", "", "log format: text, json")
	flags.BoolVar(&app.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newStatsCommand(app),
		newHeightsCommand(app),
		newLocateCommand(app),
		newReplayCommand(app),
		newBenchCommand(app),
		newChartCommand(app),
		newLSPCommand(app),
		newVersionCommand(),
	)

	return root
}

func modeFor(cmd *cobra.Command) observability.AppMode {
	switch cmd.Name() {
	case "lsp":
		return observability.ModeLSP
	case "bench":
		return observability.ModeBench
	default:
		return observability.ModeCLI
	}
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	if a.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	if flag := cmd.Flags().Lookup("metrics-addr"); flag != nil && flag.Changed {
		cfg.Telemetry.MetricsAddr = flag.Value.String()
	}

	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	providers, err := observability.InitWithWriter(cfg.Observability(version.Version, modeFor(cmd)), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewIndexMetrics(providers.Meter)
	if err != nil {
		return errors.Join(err, providers.Shutdown(context.Background()))
	}

	a.cfg = cfg
	a.stdin = cmd.InOrStdin()
	a.providers = providers
	a.metrics = metrics

	return nil
}

func (a *App) teardown(cmd *cobra.Command, _ []string) error {
	if a.providers.Shutdown == nil {
		return nil
	}

	return a.providers.Shutdown(cmd.Context())
}

func (a *App) indexOptions() lineindex.Options {
	return a.cfg.IndexOptions(a.providers.Logger, a.metrics)
}

// traced runs fn in a span named after the command.
func (a *App) traced(cmd *cobra.Command, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	return observability.Traced(cmd.Context(), a.providers.Tracer, "lineindex."+cmd.Name(), fn, attrs...)
}

func (a *App) readText(path string) (string, error) {
	var (
		data []byte
		err  error
	)

	if path == stdinPath {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	if err = textutil.CheckText(data); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	return string(data), nil
}

func (a *App) openDocument(path string) (*document.Document, error) {
	text, err := a.readText(path)
	if err != nil {
		return nil, err
	}

	return document.New(text, a.indexOptions())
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())

			return err
		},
	}
}
