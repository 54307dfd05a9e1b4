package zonal

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/floodlab/floodarea/internal/raster"
)

// depthGrid builds a north-up grid with square pixels of side px and its
// origin at (0, height*px), so world coordinates start at the origin.
func depthGrid(t *testing.T, w, h int, px float64, values []float64) *raster.Grid {
	t.Helper()
	require.Len(t, values, w*h)
	return &raster.Grid{
		Width:  w,
		Height: h,
		Values: values,
		Transform: raster.Affine{
			A: px, C: 0,
			E: -px, F: float64(h) * px,
		},
	}
}

func zoneRect(minX, minY, maxX, maxY float64) geom.T {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY,
		maxX, minY,
		maxX, maxY,
		minX, maxY,
		minX, minY,
	}, []int{10})
}

func TestRunSingleZone(t *testing.T) {
	// 3x3 grid of 10 m pixels: four dry cells, one cell per band.
	grid := depthGrid(t, 3, 3, 10, []float64{
		0, 0.3, 0.6,
		1.5, 2.5, 3.5,
		0, 0, 0,
	})

	agg := &Aggregator{Thresholds: []float64{0.5, 1, 2, 3}, Unit: UnitSquareMeter}
	report, err := agg.Run(context.Background(), grid, []Feature{
		{ID: "V001", Name: "Ban Nong", Geometry: zoneRect(0, 0, 30, 30)},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)

	row := report.Rows[0]
	assert.Equal(t, "V001", row.ID)
	assert.Equal(t, "Ban Nong", row.Name)
	assert.Equal(t, 900.0, row.TotalArea)
	assert.Equal(t, 400.0, row.NoFlood)
	assert.Equal(t, []float64{100, 100, 100, 100, 100}, row.BandAreas)
	assert.Equal(t, 0.0, row.NoData)
	assert.Equal(t, 500.0, row.Flooded)

	assert.NotEmpty(t, report.Summary.RunID)
	assert.Equal(t, 1, report.Summary.Zones)
	assert.Equal(t, 0, report.Summary.NoOverlap)
	assert.Equal(t, 0, report.Summary.Failed)
}

func TestRunRaiConversion(t *testing.T) {
	// One 40x40 m pixel is exactly one rai.
	grid := depthGrid(t, 1, 1, 40, []float64{0.3})

	agg := &Aggregator{Thresholds: DefaultThresholds(), Unit: UnitRai}
	report, err := agg.Run(context.Background(), grid, []Feature{
		{ID: "z", Geometry: zoneRect(0, 0, 40, 40)},
	})
	require.NoError(t, err)

	row := report.Rows[0]
	assert.Equal(t, 1.0, row.TotalArea)
	assert.Equal(t, 1.0, row.BandAreas[0])
	assert.Equal(t, 1.0, row.Flooded)
}

func TestRunNoDataAccounting(t *testing.T) {
	fill := -9999.0
	grid := depthGrid(t, 4, 1, 10, []float64{fill, 1.2, math.NaN(), -0.5})
	grid.NoData = &fill

	agg := &Aggregator{Thresholds: DefaultThresholds(), Unit: UnitSquareMeter}
	report, err := agg.Run(context.Background(), grid, []Feature{
		{ID: "z", Geometry: zoneRect(0, 0, 40, 10)},
	})
	require.NoError(t, err)

	row := report.Rows[0]
	// Fill, NaN, and negative all land in the nodata bucket, never in dry.
	assert.Equal(t, 300.0, row.NoData)
	assert.Equal(t, 0.0, row.NoFlood)
	assert.Equal(t, 100.0, row.BandAreas[2])
	assert.Equal(t, 400.0, row.TotalArea)
	assert.Equal(t, int64(3), report.Summary.NoDataCells)

	// Conservation: dry + bands + nodata covers the whole zone.
	sum := row.NoFlood + row.NoData
	for _, a := range row.BandAreas {
		sum += a
	}
	assert.Equal(t, row.TotalArea, sum)
}

func TestRunZoneOutsideExtent(t *testing.T) {
	grid := depthGrid(t, 2, 2, 10, []float64{1, 1, 1, 1})

	agg := &Aggregator{Thresholds: DefaultThresholds(), Unit: UnitSquareMeter}
	report, err := agg.Run(context.Background(), grid, []Feature{
		{ID: "in", Geometry: zoneRect(0, 0, 20, 20)},
		{ID: "out", Geometry: zoneRect(500, 500, 600, 600)},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	// The stray zone still gets a row, all zeros, and the run keeps going.
	out := report.Rows[1]
	assert.Equal(t, "out", out.ID)
	assert.Equal(t, 0.0, out.TotalArea)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, out.BandAreas)
	assert.Equal(t, 1, report.Summary.NoOverlap)
	assert.Equal(t, 0, report.Summary.Failed)

	assert.Equal(t, 400.0, report.Rows[0].TotalArea)
}

func TestRunRowOrderWithWorkers(t *testing.T) {
	// Eight single-cell zones processed by four workers must come back in
	// zone order with their own cell's value.
	values := []float64{0.1, 0.7, 1.1, 2.9, 3.9, 0, 0.2, 1.9}
	grid := depthGrid(t, 8, 1, 10, values)

	zones := make([]Feature, 8)
	for i := range zones {
		x := float64(i) * 10
		zones[i] = Feature{Geometry: zoneRect(x, 0, x+10, 10)}
	}

	agg := &Aggregator{Thresholds: DefaultThresholds(), Unit: UnitSquareMeter, Workers: 4}
	report, err := agg.Run(context.Background(), grid, zones)
	require.NoError(t, err)
	require.Len(t, report.Rows, 8)

	wantBand := []int{1, 2, 3, 4, 5, 0, 1, 3} // 0 means dry
	for i, row := range report.Rows {
		assert.Equal(t, strconv.Itoa(i), row.ID, "fallback id")
		assert.Equal(t, "Village_"+strconv.Itoa(i), row.Name, "fallback name")
		if wantBand[i] == 0 {
			assert.Equal(t, 100.0, row.NoFlood, "zone %d", i)
			continue
		}
		assert.Equal(t, 100.0, row.BandAreas[wantBand[i]-1], "zone %d", i)
	}
}

func TestRunDepthStats(t *testing.T) {
	grid := depthGrid(t, 3, 1, 10, []float64{0, 0.4, 3.2})

	agg := &Aggregator{Thresholds: DefaultThresholds(), Unit: UnitSquareMeter, DepthStats: true}
	report, err := agg.Run(context.Background(), grid, []Feature{
		{ID: "wet", Geometry: zoneRect(0, 0, 30, 10)},
		{ID: "dry", Geometry: zoneRect(0, 0, 10, 10)},
	})
	require.NoError(t, err)

	wet := report.Rows[0]
	require.NotNil(t, wet.Stats)
	assert.Equal(t, 0.4, wet.Stats.Min)
	assert.Equal(t, 3.2, wet.Stats.Max)
	assert.InDelta(t, 1.8, wet.Stats.Mean, 1e-9)

	// A zone with no wet cells carries no stats.
	assert.Nil(t, report.Rows[1].Stats)
}

func TestRunInvalidConfig(t *testing.T) {
	grid := depthGrid(t, 1, 1, 10, []float64{0})
	zones := []Feature{{Geometry: zoneRect(0, 0, 10, 10)}}

	_, err := (&Aggregator{Thresholds: nil, Unit: UnitSquareMeter}).Run(context.Background(), grid, zones)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = (&Aggregator{Thresholds: DefaultThresholds(), Unit: Unit("acre")}).Run(context.Background(), grid, zones)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRunCanceledContext(t *testing.T) {
	grid := depthGrid(t, 1, 1, 10, []float64{0})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := &Aggregator{Thresholds: DefaultThresholds(), Unit: UnitSquareMeter}
	_, err := agg.Run(ctx, grid, []Feature{{Geometry: zoneRect(0, 0, 10, 10)}})
	require.Error(t, err)
}
