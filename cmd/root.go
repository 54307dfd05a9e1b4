package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floodlab/floodarea/internal/config"
	"github.com/floodlab/floodarea/internal/zonal"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "floodarea",
	Short: "Flood depth zonal statistics",
	Long:  "Classifies a flood depth raster into depth bands and reports flooded areas per administrative zone as CSV, XLSX, or GeoJSON.",
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
		// Bad parameters exit 2 so callers can tell them from runtime
		// failures.
		if eris.Is(err, zonal.ErrConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
