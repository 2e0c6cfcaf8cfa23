package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Sumatoshi-tech/lineindex/internal/bench"
	"github.com/Sumatoshi-tech/lineindex/internal/report"
	"github.com/Sumatoshi-tech/lineindex/pkg/observability"
)

func newBenchCommand(app *App) *cobra.Command {
	var (
		ops, maxInsert, lines, verifyEvery int
		seed                               int64
		format                             string
		linger                             time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a seeded random edit workload and report edit latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := bench.Config{
				Operations:  app.cfg.Bench.Operations,
				Seed:        app.cfg.Bench.Seed,
				MaxInsert:   app.cfg.Bench.MaxInsert,
				Lines:       app.cfg.Bench.Lines,
				VerifyEvery: verifyEvery,
			}

			if cmd.Flags().Changed("ops") {
				cfg.Operations = ops
			}

			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}

			if cmd.Flags().Changed("max-insert") {
				cfg.MaxInsert = maxInsert
			}

			if cmd.Flags().Changed("lines") {
				cfg.Lines = lines
			}

			return app.traced(cmd, func(ctx context.Context) error {
				return app.bench(ctx, cmd, cfg, format, linger)
			}, attribute.Int("operations", cfg.Operations), attribute.Int64("seed", cfg.Seed))
		},
	}

	cmd.Flags().IntVar(&ops, "ops", 0, "number of edits (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default from config)")
	cmd.Flags().IntVar(&maxInsert, "max-insert", 0, "longest inserted text in code points (default from config)")
	cmd.Flags().IntVar(&lines, "lines", 0, "lines in the initial document (default from config)")
	cmd.Flags().IntVar(&verifyEvery, "verify-every", 0, "compare with a rebuild every n edits (0 = only at the end)")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "output format: table, json, yaml")
	cmd.Flags().String("metrics-addr", "", "serve /metrics, /healthz and /readyz on this address")
	cmd.Flags().DurationVar(&linger, "linger", 0, "keep the metrics endpoint up this long after the run")

	return cmd
}

func (a *App) bench(ctx context.Context, cmd *cobra.Command, cfg bench.Config, format string, linger time.Duration) error {
	if addr := a.cfg.Telemetry.MetricsAddr; addr != "" {
		srv, err := observability.NewDiagnosticsServer(ctx, addr, a.providers.MetricsHandler, a.providers.Logger)
		if err != nil {
			return err
		}

		defer func() {
			closeErr := srv.Close(context.WithoutCancel(ctx))
			if closeErr != nil {
				a.providers.Logger.WarnContext(ctx, "closing diagnostics server", "error", closeErr)
			}
		}()

		a.providers.Logger.InfoContext(ctx, "serving metrics", "addr", srv.Addr())
	}

	res, err := bench.Run(ctx, cfg, a.indexOptions())
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}

	if err = report.WriteBench(cmd.OutOrStdout(), res, format); err != nil {
		return err
	}

	if linger > 0 && a.cfg.Telemetry.MetricsAddr != "" {
		select {
		case <-time.After(linger):
		case <-ctx.Done():
		}
	}

	return nil
}
