package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquanexus/credits-cli/internal/catalog"
	"github.com/aquanexus/credits-cli/internal/report"
	"github.com/aquanexus/credits-cli/internal/store"
)

var (
	catalogSearch   string
	catalogRegion   string
	catalogIndustry string
	catalogSort     string
	catalogXLSX     string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Render the marketplace catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		projects, err := st.ListProjects(cmd.Context(), store.ProjectFilter{Limit: 500})
		if err != nil {
			return err
		}

		view := catalog.Assemble(
			catalog.NormalizeProjects(projects),
			catalog.Filter{Search: catalogSearch, Region: catalogRegion, Industry: catalogIndustry},
			catalog.SortKey(catalogSort),
			"",
		)

		if catalogXLSX != "" {
			if err := report.WriteXLSX(catalogXLSX, view.Visible, view.Totals); err != nil {
				return err
			}
			zap.L().Info("catalog exported", zap.String("path", catalogXLSX), zap.Int("records", len(view.Visible)))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NOMBRE\tREGIÓN\tAGUA\tVALOR\tCOSTO\tRIESGO\tVERIFICACIÓN")
		for _, r := range view.Visible {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Name, r.Region, r.WaterSaved, r.MarketValue, r.AvgCost, r.Risk, r.Verification)
		}
		fmt.Fprintf(w, "\nTOTALES\t\t%s\t%s\t\t\t(%d registros)\n",
			catalog.FormatVolume(view.Totals.WaterVolumeM3),
			catalog.FormatMXN(view.Totals.MarketValueMXN),
			view.Totals.ActiveRecords)
		return w.Flush()
	},
}

func init() {
	catalogCmd.Flags().StringVar(&catalogSearch, "search", "", "match name or location")
	catalogCmd.Flags().StringVar(&catalogRegion, "region", "", "filter by region")
	catalogCmd.Flags().StringVar(&catalogIndustry, "industry", "", "filter by industry")
	catalogCmd.Flags().StringVar(&catalogSort, "sort", "marketValue", "sort key: marketValue, waterSaved, risk, verification, cost")
	catalogCmd.Flags().StringVar(&catalogXLSX, "xlsx", "", "write the catalog to an XLSX file instead of stdout")
	rootCmd.AddCommand(catalogCmd)
}
