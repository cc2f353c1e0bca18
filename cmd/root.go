package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basinworks/greenampt-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "greenampt-cli",
	Short: "Green-Ampt parameter estimation from SSURGO soil surveys",
	Long:  "Fetches SSURGO component and horizon data, aggregates it to map units, estimates Green-Ampt infiltration parameters, and exports tables and rasters.",
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
