// Package pipeline wires the flood report together: read the depth
// raster, load the zone layer, aggregate per zone, and hand the result
// to a report writer.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/floodlab/floodarea/internal/geotiff"
	"github.com/floodlab/floodarea/internal/report"
	"github.com/floodlab/floodarea/internal/vector"
	"github.com/floodlab/floodarea/internal/zonal"
)

// Params drives one report run.
type Params struct {
	RasterPath string
	ZonesPath  string

	// Thresholds in metres, strictly increasing. Nil means the default
	// band edges.
	Thresholds []float64
	// Unit for all area columns. Empty means square metres.
	Unit zonal.Unit

	// Zone layer options.
	IDField   string
	NameField string
	Encoding  string
	Layer     string

	Workers    int
	DepthStats bool

	// Output. Used by Execute, ignored by Run.
	OutputPath string
	Format     string
}

// Result carries everything one run produced. Zones are kept alongside
// the report so GeoJSON output can pair rows with their geometries.
type Result struct {
	Report   *zonal.Report
	Zones    []zonal.Feature
	Info     geotiff.Info
	Duration time.Duration
}

func (p *Params) normalize() {
	if p.Thresholds == nil {
		p.Thresholds = zonal.DefaultThresholds()
	}
	if p.Unit == "" {
		p.Unit = zonal.UnitSquareMeter
	}
}

// validate fails fast on bad configuration so nothing is read from disk
// for a run that cannot produce output.
func (p Params) validate() error {
	if p.RasterPath == "" {
		return eris.Wrap(zonal.ErrConfig, "pipeline: raster path is required")
	}
	if p.ZonesPath == "" {
		return eris.Wrap(zonal.ErrConfig, "pipeline: zones path is required")
	}
	if err := zonal.ValidateThresholds(p.Thresholds); err != nil {
		return err
	}
	if p.Unit.Divisor() == 0 {
		return eris.Wrapf(zonal.ErrConfig, "unknown area unit %q", string(p.Unit))
	}
	return report.ValidateFormat(p.Format)
}

// Run loads both inputs and aggregates flood areas per zone. It writes
// nothing; callers choose what to do with the result.
func Run(ctx context.Context, p Params) (*Result, error) {
	p.normalize()
	if err := p.validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("raster", p.RasterPath),
		zap.String("zones", p.ZonesPath),
	)
	start := time.Now()

	ds, err := geotiff.Open(p.RasterPath)
	if err != nil {
		return nil, err
	}
	log.Debug("pipeline: raster loaded",
		zap.Int("width", ds.Grid.Width),
		zap.Int("height", ds.Grid.Height),
		zap.String("crs", ds.Grid.CRS.String()),
	)

	layer, err := vector.Open(p.ZonesPath, vector.Options{
		IDField:   p.IDField,
		NameField: p.NameField,
		Encoding:  p.Encoding,
		Layer:     p.Layer,
	})
	if err != nil {
		return nil, err
	}
	if len(layer.Features) == 0 {
		return nil, eris.Wrapf(vector.ErrUnsupported, "pipeline: no polygon features in %s", p.ZonesPath)
	}
	switch {
	case !ds.Grid.CRS.Known() || !layer.CRS.Known():
		log.Warn("pipeline: cannot verify coordinate systems match",
			zap.String("raster_crs", ds.Grid.CRS.String()),
			zap.String("zones_crs", layer.CRS.String()),
		)
	case !ds.Grid.CRS.Matches(layer.CRS):
		log.Warn("pipeline: raster and zone layer use different coordinate systems",
			zap.String("raster_crs", ds.Grid.CRS.String()),
			zap.String("zones_crs", layer.CRS.String()),
		)
	}

	agg := zonal.Aggregator{
		Thresholds: p.Thresholds,
		Unit:       p.Unit,
		Workers:    p.Workers,
		DepthStats: p.DepthStats,
	}
	rep, err := agg.Run(ctx, ds.Grid, layer.Features)
	if err != nil {
		return nil, err
	}
	if n := rep.Summary.NoDataCells; n > 0 {
		log.Warn("pipeline: no-data cells inside zones", zap.Int64("cells", n))
	}

	res := &Result{
		Report:   rep,
		Zones:    layer.Features,
		Info:     ds.Info,
		Duration: time.Since(start),
	}
	log.Info("pipeline: run complete",
		zap.String("run_id", rep.Summary.RunID),
		zap.Int("zones", rep.Summary.Zones),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Execute is Run plus output: the report lands at Params.OutputPath in
// Params.Format. This is the whole CLI code path.
func Execute(ctx context.Context, p Params) (*Result, error) {
	res, err := Run(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := report.Save(res.Report, res.Zones, p.OutputPath, p.Format); err != nil {
		return nil, err
	}
	return res, nil
}
