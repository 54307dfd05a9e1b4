package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/floodlab/floodarea/internal/pipeline"
	"github.com/floodlab/floodarea/internal/zonal"
)

var (
	reportRaster     string
	reportZones      string
	reportThresholds string
	reportUnit       string
	reportOut        string
	reportFormat     string
	reportIDField    string
	reportNameField  string
	reportEncoding   string
	reportLayer      string
	reportWorkers    int
	reportDepthStats bool
	reportTimeout    int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate flood depth bands per zone and write a report",
	Long: `Clips a flood depth raster to each zone polygon, classifies cells
into depth bands, and sums band areas per zone.

A depth above one threshold and at or below the next falls in the band
between them; depths above the last threshold land in the overflow
band. Cells with no data are reported in their own column and never
counted as dry.

Examples:
  # CSV with the default bands (0.5, 1, 2, 3 m), areas in m2
  floodarea report --raster depth.tif --zones villages.shp --out report.csv

  # Thai cadastral output with custom bands
  floodarea report --raster depth.tif --zones villages.gpkg \
    --thresholds 0.3,0.9,1.8 --unit rai --out report.csv

  # Workbook output with per-zone depth statistics
  floodarea report --raster depth.tif --zones villages.shp \
    --format xlsx --depth-stats --out report.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}
		params, err := reportParams()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if secs := reportTimeoutSecs(); secs > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
			defer cancel()
		}

		res, err := pipeline.Execute(ctx, params)
		if err != nil {
			return err
		}

		zap.L().Info("report: complete",
			zap.String("run_id", res.Report.Summary.RunID),
			zap.Int("zones", res.Report.Summary.Zones),
			zap.Int("no_overlap", res.Report.Summary.NoOverlap),
			zap.Int("failed", res.Report.Summary.Failed),
			zap.String("out", reportOut),
		)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRaster, "raster", "", "flood depth GeoTIFF (required)")
	reportCmd.Flags().StringVar(&reportZones, "zones", "", "zone polygons, shapefile or GeoPackage (required)")
	reportCmd.Flags().StringVar(&reportThresholds, "thresholds", "", "comma-separated band edges in metres (default from config)")
	reportCmd.Flags().StringVar(&reportUnit, "unit", "", "area unit: m2, km2, hectare, or rai (default from config)")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output path (default stdout for csv and geojson)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "output format: csv, xlsx, or geojson (default from config)")
	reportCmd.Flags().StringVar(&reportIDField, "id-field", "", "zone attribute holding the zone id")
	reportCmd.Flags().StringVar(&reportNameField, "name-field", "", "zone attribute holding the zone name")
	reportCmd.Flags().StringVar(&reportEncoding, "encoding", "", "attribute encoding override, e.g. tis-620")
	reportCmd.Flags().StringVar(&reportLayer, "layer", "", "geopackage layer (default: first feature table)")
	reportCmd.Flags().IntVar(&reportWorkers, "workers", 0, "concurrent zones (default from config)")
	reportCmd.Flags().BoolVar(&reportDepthStats, "depth-stats", false, "add min/mean/max depth columns")
	reportCmd.Flags().IntVar(&reportTimeout, "timeout", 0, "run timeout in seconds (0 = config default)")
	_ = reportCmd.MarkFlagRequired("raster")
	_ = reportCmd.MarkFlagRequired("zones")
	rootCmd.AddCommand(reportCmd)
}

// reportParams merges command flags over config defaults.
func reportParams() (pipeline.Params, error) {
	p := pipeline.Params{
		RasterPath: reportRaster,
		ZonesPath:  reportZones,
		Thresholds: cfg.Defaults.Thresholds,
		IDField:    firstOf(reportIDField, cfg.Zones.IDField),
		NameField:  firstOf(reportNameField, cfg.Zones.NameField),
		Encoding:   firstOf(reportEncoding, cfg.Zones.Encoding),
		Layer:      firstOf(reportLayer, cfg.Zones.Layer),
		Workers:    cfg.Run.Workers,
		DepthStats: reportDepthStats || cfg.Run.DepthStats,
		OutputPath: reportOut,
		Format:     firstOf(reportFormat, cfg.Defaults.Format),
	}

	if reportThresholds != "" {
		ts, err := zonal.ParseThresholds(reportThresholds)
		if err != nil {
			return pipeline.Params{}, err
		}
		p.Thresholds = ts
	}

	unit, err := zonal.ParseUnit(firstOf(reportUnit, cfg.Defaults.Unit))
	if err != nil {
		return pipeline.Params{}, err
	}
	p.Unit = unit

	if reportWorkers > 0 {
		p.Workers = reportWorkers
	}
	return p, nil
}

func reportTimeoutSecs() int {
	if reportTimeout > 0 {
		return reportTimeout
	}
	return cfg.Run.TimeoutSecs
}
