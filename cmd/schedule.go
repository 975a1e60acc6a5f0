package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/EmnaWalha99/Job-Portal/internal/metrics"
	"github.com/EmnaWalha99/Job-Portal/internal/scheduler"
)

// newScheduleCmd creates the 'schedule' subcommand: the pipeline on a cron
// spec, with /metrics served alongside.
func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var (
		metricsAddr string
		runNow      bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Runs the pipeline on schedule.spec until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			p, err := buildPipeline(cmd.Context(), appInstance, opts.configFile)
			if err != nil {
				return err
			}
			cfg := appInstance.Config()
			logger := appInstance.Logger()
			out := cmd.OutOrStdout()

			s, err := scheduler.New(cfg.Schedule.Spec, func(ctx context.Context) error {
				summary, err := p.Run(ctx)
				if summary != nil {
					fmt.Fprint(out, summary.String())
				}
				return err
			}, cfg.Schedule.RunOnStart || runNow, logger)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return s.Run(gctx) })
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				g.Go(func() error {
					return serveHTTP(gctx, logger, metricsAddr, mux, cfg.Server.ShutdownTimeout)
				})
			}
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address for /metrics (empty disables)")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run once immediately, then on schedule")
	return cmd
}
