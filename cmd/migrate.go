package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifews/nsurplus/internal/config"
	"github.com/ifews/nsurplus/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for panel results and the run log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(config.ModeStore); err != nil {
			return err
		}
		// storePool applies pending migrations before returning.
		pool, err := storePool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		names, err := store.MigrationNames()
		if err != nil {
			return err
		}
		zap.L().Info("migrations complete", zap.Int("files", len(names)))
		fmt.Printf("Schema up to date (%d migrations)\n", len(names))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
