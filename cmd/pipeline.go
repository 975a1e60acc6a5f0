package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/EmnaWalha99/Job-Portal/internal/app"
	"github.com/EmnaWalha99/Job-Portal/internal/config"
	"github.com/EmnaWalha99/Job-Portal/internal/orchestrator"
)

// newPipelineCmd creates the 'pipeline' subcommand: one scrape → clean → load
// run. It exits 0 only when the load stage succeeded.
func newPipelineCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Runs scrape, clean and load once",
		Long: `Runs every configured source through the three stages. Each task is a
child process with its own timeout. Scrape failures are tolerated, the run
aborts only when every clean task fails, and the exit status reflects the
load stage.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipelineCommand(cmd, opts)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("scrape-timeout", 0, "scrape stage timeout in seconds (default pipeline.scrape_timeout)")
	cmd.Flags().StringSlice("sources", nil, "sources to run (default pipeline.sources, or all)")
}

func runPipelineCommand(cmd *cobra.Command, opts *rootOptions) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	p, err := buildPipeline(cmd.Context(), appInstance, opts.configFile)
	if err != nil {
		return err
	}

	summary, runErr := p.Run(cmd.Context())
	if summary != nil {
		fmt.Fprint(cmd.OutOrStdout(), summary.String())
	}
	if runErr != nil {
		return fmt.Errorf("pipeline: %w", runErr)
	}
	return nil
}

func buildPipeline(ctx context.Context, appInstance *app.App, configFile string) (*orchestrator.Pipeline, error) {
	commands, err := stageCommands(appInstance.Config().Pipeline, configFile)
	if err != nil {
		return nil, err
	}
	return appInstance.Pipeline(ctx, commands)
}

// stageCommands re-executes this binary for every stage unless the config
// supplies a stage argv. Children receive the same --config.
func stageCommands(pc config.PipelineConfig, configFile string) (orchestrator.CommandSet, error) {
	exe := pc.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return orchestrator.CommandSet{}, fmt.Errorf("resolve executable: %w", err)
		}
		exe = self
	}
	var global []string
	if configFile != "" {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			return orchestrator.CommandSet{}, fmt.Errorf("resolve config path: %w", err)
		}
		global = append(global, "--config", abs)
	}

	commands := orchestrator.DefaultCommands(exe, global...)
	if len(pc.Commands.Scrape) > 0 {
		commands.Scrape = pc.Commands.Scrape
	}
	if len(pc.Commands.Clean) > 0 {
		commands.Clean = pc.Commands.Clean
	}
	if len(pc.Commands.Load) > 0 {
		commands.Load = pc.Commands.Load
	}
	return commands, nil
}
