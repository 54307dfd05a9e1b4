//go:build !integration

package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodlab/floodarea/internal/config"
	"github.com/floodlab/floodarea/internal/zonal"
)

func testConfig() *config.Config {
	return &config.Config{
		Defaults: config.DefaultsConfig{
			Thresholds: []float64{0.5, 1, 2, 3},
			Unit:       "m2",
			Format:     "csv",
		},
		Zones: config.ZonesConfig{IDField: "id", NameField: "name"},
		Run:   config.RunConfig{Workers: 4, TimeoutSecs: 300},
		Server: config.ServerConfig{
			Port:          8080,
			RatePerMinute: 60,
			Burst:         10,
		},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}
}

// resetReportFlags clears the report flag variables after a test so values
// set here never leak into the next one.
func resetReportFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		reportRaster, reportZones = "", ""
		reportThresholds, reportUnit = "", ""
		reportOut, reportFormat = "", ""
		reportIDField, reportNameField = "", ""
		reportEncoding, reportLayer = "", ""
		reportWorkers, reportTimeout = 0, 0
		reportDepthStats = false
	})
}

func TestReportParamsMergesConfig(t *testing.T) {
	resetReportFlags(t)
	cfg = testConfig()

	reportRaster = "depth.tif"
	reportZones = "villages.shp"
	reportUnit = "rai"
	reportIDField = "VIL_CODE"
	reportWorkers = 8

	p, err := reportParams()
	require.NoError(t, err)

	assert.Equal(t, "depth.tif", p.RasterPath)
	assert.Equal(t, "villages.shp", p.ZonesPath)
	assert.Equal(t, []float64{0.5, 1, 2, 3}, p.Thresholds)
	assert.Equal(t, zonal.UnitRai, p.Unit)
	assert.Equal(t, "VIL_CODE", p.IDField, "flag wins over config")
	assert.Equal(t, "name", p.NameField, "config fills what flags leave empty")
	assert.Equal(t, 8, p.Workers)
	assert.Equal(t, "csv", p.Format)
	assert.False(t, p.DepthStats)
}

func TestReportParamsThresholdFlag(t *testing.T) {
	resetReportFlags(t)
	cfg = testConfig()

	reportRaster = "depth.tif"
	reportZones = "villages.shp"
	reportThresholds = "0.3, 0.9, 1.8"

	p, err := reportParams()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.9, 1.8}, p.Thresholds)
}

func TestReportParamsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		setup func()
	}{
		{name: "bad unit", setup: func() { reportUnit = "acre" }},
		{name: "unsorted thresholds", setup: func() { reportThresholds = "2,1" }},
		{name: "negative threshold", setup: func() { reportThresholds = "-0.5,1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetReportFlags(t)
			cfg = testConfig()
			reportRaster = "depth.tif"
			reportZones = "villages.shp"
			tt.setup()

			_, err := reportParams()
			require.Error(t, err)
			assert.ErrorIs(t, err, zonal.ErrConfig)
		})
	}
}

func TestReportTimeoutFallsBackToConfig(t *testing.T) {
	resetReportFlags(t)
	cfg = testConfig()

	assert.Equal(t, 300, reportTimeoutSecs())
	reportTimeout = 60
	assert.Equal(t, 60, reportTimeoutSecs())
}

func TestReportCommandEndToEnd(t *testing.T) {
	resetReportFlags(t)
	dir := chtemp(t)

	tif := filepath.Join(dir, "depth.tif")
	writeDepthTIFF(t, tif, depthScenario(), 10)
	zones := writeZones(t, dir)
	out := filepath.Join(dir, "report.csv")

	rootCmd.SetArgs([]string{
		"report",
		"--raster", tif,
		"--zones", zones,
		"--id-field", "id",
		"--name-field", "name",
		"--out", out,
	})
	require.NoError(t, rootCmd.Execute())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"id", "name", "total_area", "no_flood_area",
		"0-0.5 m", "0.5-1.0 m", "1.0-2.0 m", "2.0-3.0 m", ">3.0 m",
		"nodata_area", "total_flooded_area",
	}, records[0])
	assert.Equal(t, []string{"V001", "Ban Nong", "900", "400", "100", "100", "100", "100", "100", "0", "500"}, records[1])
	assert.Equal(t, []string{"V999", "Far Away", "0", "0", "0", "0", "0", "0", "0", "0", "0"}, records[2])
}
