package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/floodlab/floodarea/internal/zonal"
)

// WriteGeoJSON emits a FeatureCollection pairing each zone geometry with
// its row of aggregated areas, ready for a web map. Zones must line up
// with the report rows, which Save guarantees when both come from the
// same run.
func WriteGeoJSON(rep *zonal.Report, zones []zonal.Feature, w io.Writer) error {
	if len(zones) != len(rep.Rows) {
		return eris.Errorf("report: %d zones for %d result rows", len(zones), len(rep.Rows))
	}

	fc := &geojson.FeatureCollection{}
	skipped := 0
	for i, row := range rep.Rows {
		if zones[i].Geometry == nil {
			skipped++
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         row.ID,
			Geometry:   zones[i].Geometry,
			Properties: properties(rep, row),
		})
	}
	if skipped > 0 {
		zap.L().Debug("report: zones without geometry left out of geojson",
			zap.Int("skipped", skipped))
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(fc); err != nil {
		return eris.Wrap(err, "report: encode geojson")
	}
	return nil
}

func properties(rep *zonal.Report, row zonal.Row) map[string]interface{} {
	props := map[string]interface{}{
		"id":                 row.ID,
		"name":               row.Name,
		"unit":               string(rep.Unit),
		"total_area":         row.TotalArea,
		"no_flood_area":      row.NoFlood,
		"nodata_area":        row.NoData,
		"total_flooded_area": row.Flooded,
	}
	for i, a := range row.BandAreas {
		props[rep.Bands[i].Label] = a
	}
	if row.Stats != nil {
		props["min_depth"] = row.Stats.Min
		props["mean_depth"] = row.Stats.Mean
		props["max_depth"] = row.Stats.Max
	}
	return props
}
