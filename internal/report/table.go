package report

import (
	"strconv"

	"github.com/floodlab/floodarea/internal/zonal"
)

// Columns returns the ordered header for a report: identity and totals
// first, one column per depth band labelled by its depth range, then the
// no-data and flooded sums. The set is fixed once per run by the
// threshold list, so every row projects into the same shape.
func Columns(rep *zonal.Report) []string {
	cols := []string{"id", "name", "total_area", "no_flood_area"}
	for _, b := range rep.Bands {
		cols = append(cols, b.Label)
	}
	cols = append(cols, "nodata_area", "total_flooded_area")
	if rep.HasDepthStats {
		cols = append(cols, "min_depth", "mean_depth", "max_depth")
	}
	return cols
}

// Values projects one row into the Columns order. Zones without any
// flooded cell have no depth statistics and get empty stat cells.
func Values(rep *zonal.Report, row zonal.Row) []string {
	vals := []string{row.ID, row.Name, num(row.TotalArea), num(row.NoFlood)}
	for _, a := range row.BandAreas {
		vals = append(vals, num(a))
	}
	vals = append(vals, num(row.NoData), num(row.Flooded))
	if rep.HasDepthStats {
		if row.Stats == nil {
			vals = append(vals, "", "", "")
		} else {
			vals = append(vals, num(row.Stats.Min), num(row.Stats.Mean), num(row.Stats.Max))
		}
	}
	return vals
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
