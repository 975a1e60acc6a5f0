package cmd

import (
	"github.com/spf13/cobra"

	"github.com/EmnaWalha99/Job-Portal/internal/storage"
	"github.com/EmnaWalha99/Job-Portal/internal/tableview"
)

// newListCmd creates the 'list' subcommand: the API's job query printed as a
// terminal table.
func newListCmd() *cobra.Command {
	var q storage.Query
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Prints stored jobs as a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			js, _, err := appInstance.Stores(cmd.Context())
			if err != nil {
				return err
			}
			q = q.Normalize()
			page, err := js.Query(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := tableview.Render(out, tableview.DefaultColumns, page.Jobs); err != nil {
				return err
			}
			return tableview.Footer(out, page.Total, q.Offset, len(page.Jobs))
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Search, "search", "", "substring matched against title, company, city, skills and sector")
	f.StringVar(&q.Source, "source", "", "only jobs from this source")
	f.StringVar(&q.Company, "company", "", "only jobs from this company")
	f.StringVar(&q.City, "city", "", "only jobs in this city")
	f.StringVar(&q.Region, "region", "", "only jobs in this region")
	f.StringVar(&q.Sector, "sector", "", "only jobs in this sector")
	f.StringVar(&q.ContractType, "contract", "", "only jobs with this contract type")
	f.IntVar(&q.Limit, "limit", storage.DefaultLimit, "page size")
	f.IntVar(&q.Offset, "offset", 0, "rows to skip")
	return cmd
}
