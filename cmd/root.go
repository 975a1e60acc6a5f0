// Package cmd defines and implements the CLI commands for the jobportal executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/app"
	"github.com/EmnaWalha99/Job-Portal/internal/config"
	"github.com/EmnaWalha99/Job-Portal/internal/logging"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitCanceled = 130
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can swap the
// store drivers or inject a registry.
var newApp = func(cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(cfg, logger)
}

// rootOptions carries state shared by the root command and its subcommands.
type rootOptions struct {
	configFile string
	app        *app.App
}

func (o *rootOptions) closeApp(ctx context.Context) {
	if o.app != nil {
		o.app.Close(ctx)
		o.app = nil
	}
}

// newRootCmd creates and configures the root command.
func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobportal",
		Short: "Aggregates Tunisian job boards into one searchable store.",
		Long: `jobportal scrapes job postings from emploitunisie, keejob, optioncarriere
and tanitjobs, normalizes them into one canonical schema, deduplicates them
and loads them into a job store served by a read API.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs for every subcommand before its RunE: loads config, builds the
		// logger and stores the App in the command context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if err := applyFlagOverrides(cmd, &cfg); err != nil {
				return err
			}
			logger, err := logging.New(logging.Config{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			source, _ := cmd.Flags().GetString("source")
			logger = logging.ForCommand(logger, cmd.Name(), source)

			appInstance, err := newApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			opts.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			opts.closeApp(context.WithoutCancel(cmd.Context()))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML, TOML or JSON)")

	cmd.AddCommand(
		newPipelineCmd(opts),
		newScrapeCmd(),
		newCleanCmd(),
		newLoadCmd(),
		newServeCmd(),
		newListCmd(),
		newExportCmd(),
		newScheduleCmd(opts),
	)
	return cmd
}

// applyFlagOverrides copies run flags, when present and set on cmd, over the
// loaded configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Lookup("scrape-timeout") != nil && flags.Changed("scrape-timeout") {
		secs, err := flags.GetInt("scrape-timeout")
		if err != nil {
			return err
		}
		if secs <= 0 {
			return errors.New("--scrape-timeout must be > 0")
		}
		cfg.Pipeline.ScrapeTimeout = time.Duration(secs) * time.Second
	}
	if flags.Lookup("sources") != nil && flags.Changed("sources") {
		sources, err := flags.GetStringSlice("sources")
		if err != nil {
			return err
		}
		cfg.Pipeline.Sources = sources
	}
	return nil
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{}
	root := newRootCmd(opts)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		if opts.app != nil {
			opts.app.Logger().Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	// PersistentPostRun is skipped when RunE fails.
	opts.closeApp(context.Background())
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCanceled
	default:
		return ExitFailure
	}
}
