package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newExportCmd creates the 'export' subcommand writing the canonical files to
// one spreadsheet.
func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Exports canonical files to an xlsx workbook, one sheet per source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := appInstance.Exporter().Export(out)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, src := range appInstance.Sources() {
				if n, ok := res.Sheets[src]; ok {
					fmt.Fprintf(w, "%s: %d rows\n", src, n)
				}
			}
			fmt.Fprintf(w, "wrote %s\n", res.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "jobs.xlsx", "output workbook path")
	return cmd
}
