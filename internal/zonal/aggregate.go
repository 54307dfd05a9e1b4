// Package zonal classifies flood depths into bands and aggregates band areas
// per administrative zone.
package zonal

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/floodlab/floodarea/internal/raster"
)

// Feature is one zone polygon with its identifying attributes. Empty ID or
// Name fall back to the feature's position in the layer.
type Feature struct {
	ID       string
	Name     string
	Geometry geom.T
}

// Row is the aggregated result for one zone. Areas are expressed in the
// run's output unit; BandAreas aligns with the report's band table. The
// areas satisfy NoFlood + sum(BandAreas) + NoData == TotalArea.
type Row struct {
	ID        string
	Name      string
	TotalArea float64
	NoFlood   float64
	BandAreas []float64
	NoData    float64
	Flooded   float64
	Stats     *DepthStats
}

// Summary carries run-level counters for logging and the HTTP response.
type Summary struct {
	RunID       string
	Zones       int
	NoOverlap   int
	Failed      int
	NoDataCells int64
}

// Report is the output of one aggregation run. HasDepthStats records
// whether the run computed depth statistics, so writers emit the stat
// columns even when every zone came up dry.
type Report struct {
	Bands         []Band
	Unit          Unit
	Rows          []Row
	Summary       Summary
	HasDepthStats bool
}

// Aggregator computes per-zone flooded areas for a fixed parameter set.
type Aggregator struct {
	Thresholds []float64
	Unit       Unit
	Workers    int
	DepthStats bool
}

// Run classifies the grid once per zone and sums cell counts into band
// areas. Rows come back in zone order regardless of worker interleaving.
// Zones that miss the raster extent, and zones whose clip fails, yield
// all-zero rows instead of aborting the batch; only invalid parameters and
// context cancellation end the run early.
func (a *Aggregator) Run(ctx context.Context, grid *raster.Grid, zones []Feature) (*Report, error) {
	if err := ValidateThresholds(a.Thresholds); err != nil {
		return nil, err
	}
	if _, ok := unitDivisors[a.Unit]; !ok {
		return nil, eris.Wrapf(ErrConfig, "unknown area unit %q", a.Unit)
	}
	workers := a.Workers
	if workers <= 0 {
		workers = 1
	}

	bands := MakeBands(a.Thresholds)
	report := &Report{
		Bands:         bands,
		Unit:          a.Unit,
		Rows:          make([]Row, len(zones)),
		HasDepthStats: a.DepthStats,
		Summary: Summary{
			RunID: uuid.New().String(),
			Zones: len(zones),
		},
	}

	var noOverlap, failed, noDataCells atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, zone := range zones {
		i, zone := i, zone // per-iteration copies; go.mod pins go 1.21 (pre-loopvar) semantics
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if zone.ID == "" {
				zone.ID = strconv.Itoa(i)
			}
			if zone.Name == "" {
				zone.Name = "Village_" + strconv.Itoa(i)
			}

			row, nodata, err := a.processOne(grid, zone, bands)
			switch {
			case err == nil:
				noDataCells.Add(nodata)
			case eris.Is(err, raster.ErrNoOverlap):
				noOverlap.Add(1)
				zap.L().Warn("zonal: zone outside raster extent",
					zap.String("zone", zone.ID),
					zap.String("name", zone.Name),
				)
			default:
				failed.Add(1)
				zap.L().Error("zonal: zone failed",
					zap.String("zone", zone.ID),
					zap.Error(err),
				)
			}
			report.Rows[i] = row
			return nil // don't abort batch on individual zone failure
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "zonal: run canceled")
	}

	report.Summary.NoOverlap = int(noOverlap.Load())
	report.Summary.Failed = int(failed.Load())
	report.Summary.NoDataCells = noDataCells.Load()

	zap.L().Info("zonal: aggregation complete",
		zap.String("run_id", report.Summary.RunID),
		zap.Int("zones", report.Summary.Zones),
		zap.Int("no_overlap", report.Summary.NoOverlap),
		zap.Int("failed", report.Summary.Failed),
		zap.Int64("nodata_cells", report.Summary.NoDataCells),
	)
	return report, nil
}

// processOne clips, classifies, and sums one zone. The returned row carries
// the zone's identity even on error so the caller can emit it as all zeros.
func (a *Aggregator) processOne(grid *raster.Grid, zone Feature, bands []Band) (Row, int64, error) {
	row := Row{
		ID:        zone.ID,
		Name:      zone.Name,
		BandAreas: make([]float64, len(bands)),
	}

	clip, err := grid.Clip(zone.Geometry)
	if err != nil {
		return row, 0, err
	}

	cats := Classify(clip, a.Thresholds)
	bandCells := make([]int64, len(bands))
	var dry, nodata, total int64
	var depths []float64
	for i, c := range cats {
		switch {
		case c == CatOutside:
			continue
		case c == CatNoData:
			nodata++
		case c == CatDry:
			dry++
		default:
			bandCells[c-1]++
			if a.DepthStats {
				depths = append(depths, clip.Values[i])
			}
		}
		total++
	}

	scale := clip.PixelArea() / a.Unit.Divisor()
	row.TotalArea = float64(total) * scale
	row.NoFlood = float64(dry) * scale
	row.NoData = float64(nodata) * scale
	for b, n := range bandCells {
		area := float64(n) * scale
		row.BandAreas[b] = area
		row.Flooded += area
	}
	if a.DepthStats {
		row.Stats = NewDepthStats(depths)
	}
	return row, nodata, nil
}
