package zonal

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DepthStats summarizes the wet-cell depths of one zone.
type DepthStats struct {
	Min  float64
	Mean float64
	Max  float64
}

// NewDepthStats computes min, mean, and max over wet-cell depths. A zone
// with no wet cells gets nil, so downstream columns stay empty.
func NewDepthStats(depths []float64) *DepthStats {
	if len(depths) == 0 {
		return nil
	}
	return &DepthStats{
		Min:  floats.Min(depths),
		Mean: stat.Mean(depths, nil),
		Max:  floats.Max(depths),
	}
}
