package main

import (
	"encoding/json"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/floodlab/floodarea/internal/geotiff"
	"github.com/floodlab/floodarea/internal/vector"
)

var inspectLayer string

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Describe a raster or zone file without running a report",
	Long: `Prints size, georeferencing, and format details for a flood depth
GeoTIFF or a zone layer as JSON.

Examples:
  floodarea inspect depth.tif
  floodarea inspect villages.shp
  floodarea inspect villages.gpkg --layer boundaries`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		switch strings.ToLower(filepath.Ext(path)) {
		case ".tif", ".tiff":
			return inspectRaster(cmd.OutOrStdout(), path)
		default:
			return inspectZones(cmd.OutOrStdout(), path)
		}
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectLayer, "layer", "", "geopackage layer (default: first feature table)")
	rootCmd.AddCommand(inspectCmd)
}

func inspectRaster(w io.Writer, path string) error {
	ds, err := geotiff.Open(path)
	if err != nil {
		return err
	}

	ext := ds.Grid.Extent()
	out := map[string]any{
		"path":          path,
		"width":         ds.Info.Width,
		"height":        ds.Info.Height,
		"bits":          ds.Info.BitsPerSample,
		"sample_format": ds.Info.SampleFormat,
		"compression":   ds.Info.Compression,
		"tiled":         ds.Info.Tiled,
		"pixel_area":    ds.Grid.PixelArea(),
		"crs":           ds.Grid.CRS.String(),
		"extent": map[string]float64{
			"min_x": ext.MinX,
			"min_y": ext.MinY,
			"max_x": ext.MaxX,
			"max_y": ext.MaxY,
		},
	}
	if nd := ds.Grid.NoData; nd != nil {
		// JSON has no NaN literal.
		if math.IsNaN(*nd) {
			out["nodata"] = "nan"
		} else {
			out["nodata"] = *nd
		}
	}
	return printJSON(w, out)
}

func inspectZones(w io.Writer, path string) error {
	layer, err := vector.Open(path, vector.Options{
		IDField:   cfg.Zones.IDField,
		NameField: cfg.Zones.NameField,
		Encoding:  cfg.Zones.Encoding,
		Layer:     firstOf(inspectLayer, cfg.Zones.Layer),
	})
	if err != nil {
		return err
	}

	return printJSON(w, map[string]any{
		"path":     path,
		"format":   layer.Format,
		"features": len(layer.Features),
		"crs":      layer.CRS.String(),
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
