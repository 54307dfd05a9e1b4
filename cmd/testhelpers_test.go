//go:build !integration

package main

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// writeDepthTIFF writes an uncompressed float32 GeoTIFF where each entry of
// depths covers a block x block square of one-metre pixels. The grid sits at
// origin with EPSG:32647 and a -9999 fill value.
func writeDepthTIFF(t *testing.T, path string, depths [][]float64, block int) {
	t.Helper()

	gridRows, gridCols := len(depths), len(depths[0])
	width, height := gridCols*block, gridRows*block

	pix := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			bits := math.Float32bits(float32(depths[y/block][x/block]))
			binary.LittleEndian.PutUint32(pix[(y*width+x)*4:], bits)
		}
	}

	scale := []float64{1, 1, 0}
	tiepoint := []float64{0, 0, 0, 0, float64(height), 0}
	geokeys := []uint16{1, 1, 0, 1, 3072, 0, 1, 32647}
	nodata := "-9999\x00"

	ifdOff := 8 + len(pix)
	type field struct {
		tag, typ uint16
		count    uint32
		value    uint32
	}
	const nFields = 14
	scaleOff := ifdOff + 2 + nFields*12 + 4
	tieOff := scaleOff + 8*len(scale)
	keysOff := tieOff + 8*len(tiepoint)
	nodataOff := keysOff + 2*len(geokeys)

	fields := []field{
		{256, 3, 1, uint32(width)},
		{257, 3, 1, uint32(height)},
		{258, 3, 1, 32},
		{259, 3, 1, 1},
		{262, 3, 1, 1},
		{273, 4, 1, 8},
		{277, 3, 1, 1},
		{278, 4, 1, uint32(height)},
		{279, 4, 1, uint32(len(pix))},
		{339, 3, 1, 3},
		{33550, 12, uint32(len(scale)), uint32(scaleOff)},
		{33922, 12, uint32(len(tiepoint)), uint32(tieOff)},
		{34735, 3, uint32(len(geokeys)), uint32(keysOff)},
		{42113, 2, uint32(len(nodata)), uint32(nodataOff)},
	}
	require.Len(t, fields, nFields)

	le := binary.LittleEndian
	buf := new(bytes.Buffer)
	buf.WriteString("II")
	_ = binary.Write(buf, le, uint16(42))
	_ = binary.Write(buf, le, uint32(ifdOff))
	buf.Write(pix)
	_ = binary.Write(buf, le, uint16(len(fields)))
	for _, f := range fields {
		_ = binary.Write(buf, le, f.tag)
		_ = binary.Write(buf, le, f.typ)
		_ = binary.Write(buf, le, f.count)
		if f.typ == 3 && f.count == 1 {
			_ = binary.Write(buf, le, uint16(f.value))
			_ = binary.Write(buf, le, uint16(0))
		} else {
			_ = binary.Write(buf, le, f.value)
		}
	}
	_ = binary.Write(buf, le, uint32(0))
	_ = binary.Write(buf, le, scale)
	_ = binary.Write(buf, le, tiepoint)
	_ = binary.Write(buf, le, geokeys)
	buf.WriteString(nodata)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func shpSquare(x0, y0, side float64) *shp.Polygon {
	// Clockwise, as shapefile outer rings are wound.
	pts := []shp.Point{
		{X: x0, Y: y0}, {X: x0, Y: y0 + side}, {X: x0 + side, Y: y0 + side}, {X: x0 + side, Y: y0}, {X: x0, Y: y0},
	}
	p := &shp.Polygon{
		Box:       shp.Box{MinX: x0, MinY: y0, MaxX: x0 + side, MaxY: y0 + side},
		NumParts:  1,
		NumPoints: int32(len(pts)),
		Parts:     []int32{0},
		Points:    pts,
	}
	return p
}

// writeZones writes two zones: one covering the whole test raster and
// one far outside it.
func writeZones(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "zones.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("ID", 16),
		shp.StringField("NAME", 32),
	})

	w.Write(shpSquare(0, 0, 30))
	w.WriteAttribute(0, 0, "V001")
	w.WriteAttribute(0, 1, "Ban Nong")

	w.Write(shpSquare(100, 100, 10))
	w.WriteAttribute(1, 0, "V999")
	w.WriteAttribute(1, 1, "Far Away")

	w.Close()
	return path
}

func depthScenario() [][]float64 {
	return [][]float64{
		{0, 0.3, 0.6},
		{1.5, 2.5, 3.5},
		{0, 0, 0},
	}
}

// chtemp switches the working directory to a fresh temp dir so commands
// that read config.yaml from the current directory see a clean slate.
func chtemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
	return dir
}
