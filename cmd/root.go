package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifews/nsurplus/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nsurplus",
	Short: "County nitrogen surplus panel builder",
	Long:  "Fetches county livestock and crop statistics from USDA QuickStats, fills and reconciles the panel, and computes the county nitrogen balance.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
