package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/cleaner"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/scrape"
)

// newScrapeCmd creates the 'scrape' subcommand, the default scrape task.
func newScrapeCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrapes one job board into its raw CSV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			src, err := jobs.ParseSource(source)
			if err != nil {
				return err
			}
			cfg := appInstance.Config().Scrape
			path := appInstance.Paths().RawFile(src)
			res, err := scrape.Run(cmd.Context(), cfg, src, path, appInstance.Clock(), appInstance.Logger())
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pages, %d listed, %d written, %d failed -> %s\n",
				src, res.Pages, res.Listed, res.Written, res.Failed, path)
			if err != nil {
				return fmt.Errorf("scrape %s: %w", src, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source to scrape")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

// newCleanCmd creates the 'clean' subcommand, the default clean task. A
// missing or empty raw file is reported and exits 0.
func newCleanCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Maps one source's raw rows and merges them into its canonical file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			src, err := jobs.ParseSource(source)
			if err != nil {
				return err
			}
			res, err := appInstance.Cleaner().Clean(cmd.Context(), src)
			switch {
			case errors.Is(err, cleaner.ErrMissingInputFile), errors.Is(err, cleaner.ErrEmptyInputFile):
				appInstance.Logger().Warn("no raw input, source skipped", zap.String("source", string(src)), zap.Error(err))
				fmt.Fprintf(cmd.OutOrStdout(), "%s: skipped (%v)\n", src, err)
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d raw, %d new, %d duplicates, %d total -> %s\n",
				src, res.RawRows, res.Merge.Total-res.Merge.Previous, res.Merge.Duplicates, res.Merge.Total, res.Output)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source to clean")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

// newLoadCmd creates the 'load' subcommand, the default load task.
func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Inserts unseen canonical records into the job store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			l, err := appInstance.Loader(cmd.Context())
			if err != nil {
				return err
			}
			res, err := l.Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d files: %d read, %d inserted, %d already stored\n",
				res.Files, res.Read, res.Inserted, res.Skipped)
			return nil
		},
	}
}
