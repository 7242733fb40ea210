package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquanexus/credits-cli/internal/seed"
	"github.com/aquanexus/credits-cli/internal/store"
)

var seedBulk bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		if seedBulk {
			pg, ok := st.(*store.PostgresStore)
			if !ok {
				return eris.New("--bulk requires the postgres driver")
			}
			n, err := seed.ApplyBulk(cmd.Context(), st, pg.Pool())
			if err != nil {
				return err
			}
			zap.L().Info("seed complete", zap.Int64("rows", n))
			return nil
		}

		n, err := seed.Apply(cmd.Context(), st)
		if err != nil {
			return err
		}
		zap.L().Info("seed complete", zap.Int("rows", n))
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedBulk, "bulk", false, "load projects with the COPY protocol (postgres only)")
	rootCmd.AddCommand(seedCmd)
}
