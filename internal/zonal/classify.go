package zonal

import (
	"sort"

	"github.com/floodlab/floodarea/internal/raster"
)

// Cell categories. Positive values are 1-based indices into the band table,
// with len(thresholds)+1 for depths beyond the last boundary.
const (
	// CatOutside marks cells whose center falls outside the zone polygon.
	CatOutside = -2
	// CatNoData marks in-zone cells with no usable depth: declared fill
	// values, NaN, and negative readings.
	CatNoData = -1
	// CatDry marks in-zone cells with exactly zero depth.
	CatDry = 0
)

// Classify assigns a category to every cell of a clipped grid. Band
// membership follows the open-lower, closed-upper rule: a depth equal to a
// boundary lands in the band below it.
func Classify(g *raster.Grid, thresholds []float64) []int {
	cats := make([]int, len(g.Values))
	for i, v := range g.Values {
		switch {
		case !g.InZone(i):
			cats[i] = CatOutside
		case g.IsNoData(v) || v < 0:
			cats[i] = CatNoData
		case v == 0:
			cats[i] = CatDry
		default:
			cats[i] = sort.SearchFloat64s(thresholds, v) + 1
		}
	}
	return cats
}
