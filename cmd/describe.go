package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquanexus/credits-cli/internal/insight"
	"github.com/aquanexus/credits-cli/pkg/anthropic"
)

var describeLimit int

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Backfill AI descriptions for projects missing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireAnthropic(); err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		g := insight.NewGenerator(
			anthropic.NewClient(cfg.Anthropic.Key),
			st,
			cfg.Anthropic.Model,
			cfg.Anthropic.MaxChars,
		)

		updated, err := g.Backfill(cmd.Context(), describeLimit)
		if err != nil {
			return err
		}
		zap.L().Info("backfill complete", zap.Int("updated", updated))
		return nil
	},
}

func init() {
	describeCmd.Flags().IntVar(&describeLimit, "limit", 50, "maximum projects to describe in one run")
	rootCmd.AddCommand(describeCmd)
}
