// Package raster holds the in-memory grid model shared by the readers and the
// zonal aggregation: cell values, the affine georeference, and per-cell zone
// masks produced by clipping.
package raster

import (
	"math"
	"strconv"
)

// CRS identifies the coordinate reference system a grid or layer is
// expressed in. EPSG 0 means the source carried no usable code.
type CRS struct {
	EPSG int
	Name string
}

// Known reports whether the source declared an EPSG code.
func (c CRS) Known() bool { return c.EPSG != 0 }

// Matches reports whether two systems are known to be the same. Unknown
// systems never match, so callers can decide how loud to be about it.
func (c CRS) Matches(o CRS) bool { return c.Known() && o.Known() && c.EPSG == o.EPSG }

func (c CRS) String() string {
	if c.Name != "" {
		return c.Name
	}
	if c.EPSG != 0 {
		return "EPSG:" + strconv.Itoa(c.EPSG)
	}
	return "unknown"
}

// Affine maps pixel space to world space:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// For north-up imagery B and D are zero and E is negative.
type Affine struct {
	A, B, C, D, E, F float64
}

// Apply converts fractional pixel coordinates to world coordinates.
func (t Affine) Apply(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

// PixelArea returns the world-space area covered by one cell.
func (t Affine) PixelArea() float64 {
	return math.Abs(t.A*t.E - t.B*t.D)
}

// Rectilinear reports whether the grid axes align with the world axes.
func (t Affine) Rectilinear() bool { return t.B == 0 && t.D == 0 }

// shift returns the transform of a window whose origin sits at pixel
// (col, row) of the receiver.
func (t Affine) shift(col, row int) Affine {
	c, r := float64(col), float64(row)
	return Affine{
		A: t.A, B: t.B, C: t.A*c + t.B*r + t.C,
		D: t.D, E: t.E, F: t.D*c + t.E*r + t.F,
	}
}

// Extent is a world-space bounding box.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// Intersects reports whether the two boxes share interior area. Boxes that
// only touch along an edge do not intersect.
func (e Extent) Intersects(o Extent) bool {
	return e.MinX < o.MaxX && o.MinX < e.MaxX && e.MinY < o.MaxY && o.MinY < e.MaxY
}

// Grid is a single-band raster held row-major in Values. Mask, when present,
// marks the cells that belong to the zone a clip produced; a nil mask means
// every cell counts.
type Grid struct {
	Width, Height int
	Values        []float64
	Mask          []bool
	NoData        *float64
	Transform     Affine
	CRS           CRS
}

// At returns the value at (col, row) without bounds checking.
func (g *Grid) At(col, row int) float64 { return g.Values[row*g.Width+col] }

// Extent returns the world-space bounding box of the grid.
func (g *Grid) Extent() Extent {
	x0, y0 := g.Transform.Apply(0, 0)
	x1, y1 := g.Transform.Apply(float64(g.Width), float64(g.Height))
	return Extent{
		MinX: math.Min(x0, x1), MinY: math.Min(y0, y1),
		MaxX: math.Max(x0, x1), MaxY: math.Max(y0, y1),
	}
}

// PixelArea returns the world-space area of one cell.
func (g *Grid) PixelArea() float64 { return g.Transform.PixelArea() }

// IsNoData reports whether v is a fill value. NaN is always no-data, whether
// or not the source declared a sentinel.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return g.NoData != nil && v == *g.NoData
}

// InZone reports whether flat index i belongs to the clip zone.
func (g *Grid) InZone(i int) bool { return g.Mask == nil || g.Mask[i] }
