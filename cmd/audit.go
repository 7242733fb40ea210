package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/aquanexus/credits-cli/internal/satellite"
)

var auditCmd = &cobra.Command{
	Use:   "audit <project-id>",
	Short: "Run a satellite water-use audit for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.GetProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		analyzer := satellite.NewAnalyzer(
			&satellite.DemoProvider{},
			cfg.Satellite.NDWIVerified,
			cfg.Satellite.WindowMonths,
		)
		report, err := analyzer.Audit(cmd.Context(), p)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
