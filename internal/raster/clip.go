package raster

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// ErrNoOverlap reports a clip geometry that shares no area with the grid.
var ErrNoOverlap = eris.New("raster: geometry does not overlap raster extent")

// Clip crops the grid to the bounding box of geometry and marks every cell
// whose center falls inside the geometry. Cells outside the geometry stay in
// the returned grid but carry a false Mask entry; an all-false mask is a
// valid result when the bounding boxes touch without any center inside.
//
// Clip never mutates the receiver, so concurrent clips of one grid are safe.
func (g *Grid) Clip(geometry geom.T) (*Grid, error) {
	if !g.Transform.Rectilinear() {
		return nil, eris.New("raster: clip requires an axis-aligned transform")
	}
	polys, err := asPolygons(geometry)
	if err != nil {
		return nil, err
	}

	b := geometry.Bounds()
	box := Extent{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}
	if !g.Extent().Intersects(box) {
		return nil, eris.Wrapf(ErrNoOverlap, "bounds %+v", box)
	}

	c0, r0, c1, r1 := g.window(box)
	if c1 <= c0 || r1 <= r0 {
		return nil, eris.Wrapf(ErrNoOverlap, "bounds %+v", box)
	}

	w, h := c1-c0, r1-r0
	out := &Grid{
		Width:     w,
		Height:    h,
		Values:    make([]float64, w*h),
		Mask:      make([]bool, w*h),
		NoData:    g.NoData,
		Transform: g.Transform.shift(c0, r0),
		CRS:       g.CRS,
	}

	for row := 0; row < h; row++ {
		srcOff := (r0+row)*g.Width + c0
		copy(out.Values[row*w:(row+1)*w], g.Values[srcOff:srcOff+w])
		for col := 0; col < w; col++ {
			cx, cy := out.Transform.Apply(float64(col)+0.5, float64(row)+0.5)
			out.Mask[row*w+col] = containsPoint(polys, cx, cy)
		}
	}
	return out, nil
}

// window maps a bounding box onto a clamped half-open pixel window
// [c0,c1)×[r0,r1) of the receiver.
func (g *Grid) window(box Extent) (c0, r0, c1, r1 int) {
	t := g.Transform
	colAt := func(x float64) float64 { return (x - t.C) / t.A }
	rowAt := func(y float64) float64 { return (y - t.F) / t.E }

	cA, cB := colAt(box.MinX), colAt(box.MaxX)
	rA, rB := rowAt(box.MinY), rowAt(box.MaxY)
	if cA > cB {
		cA, cB = cB, cA
	}
	if rA > rB {
		rA, rB = rB, rA
	}

	c0 = clamp(int(math.Floor(cA)), 0, g.Width)
	c1 = clamp(int(math.Ceil(cB)), 0, g.Width)
	r0 = clamp(int(math.Floor(rA)), 0, g.Height)
	r1 = clamp(int(math.Ceil(rB)), 0, g.Height)
	return c0, r0, c1, r1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func asPolygons(geometry geom.T) ([]*geom.Polygon, error) {
	switch t := geometry.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{t}, nil
	case *geom.MultiPolygon:
		polys := make([]*geom.Polygon, t.NumPolygons())
		for i := range polys {
			polys[i] = t.Polygon(i)
		}
		return polys, nil
	default:
		return nil, eris.Errorf("raster: unsupported clip geometry %T", geometry)
	}
}

// containsPoint applies the even-odd rule over every ring, so holes punch
// through their outer ring.
func containsPoint(polys []*geom.Polygon, x, y float64) bool {
	pt := geom.Coord{x, y}
	for _, p := range polys {
		crossings := 0
		for i := 0; i < p.NumLinearRings(); i++ {
			if xy.IsPointInRing(p.Layout(), pt, p.LinearRing(i).FlatCoords()) {
				crossings++
			}
		}
		if crossings%2 == 1 {
			return true
		}
	}
	return false
}
