package vector

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/floodlab/floodarea/internal/zonal"
)

func readShapefile(path string, opts Options) (*Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open shapefile %s", path)
	}
	defer reader.Close() //nolint:errcheck

	dec, err := attributeDecoder(path, opts.Encoding)
	if err != nil {
		return nil, err
	}

	// Build field name to index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	idIdx, hasID := fieldIdx[strings.ToLower(opts.IDField)]
	nameIdx, hasName := fieldIdx[strings.ToLower(opts.NameField)]

	var feats []zonal.Feature
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonFeature(poly)
		if g == nil {
			skipped++
			continue
		}

		var f zonal.Feature
		f.Geometry = g
		if hasID {
			f.ID = attribute(reader, idIdx, dec)
		}
		if hasName {
			f.Name = attribute(reader, nameIdx, dec)
		}
		feats = append(feats, f)
	}
	if skipped > 0 {
		zap.L().Debug("vector: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return &Layer{Features: feats, CRS: crsFromPrj(path), Format: "shapefile"}, nil
}

// attribute reads one DBF value, trimmed and decoded to UTF-8.
func attribute(r *shp.Reader, idx int, dec *encoding.Decoder) string {
	val := strings.TrimRight(r.Attribute(idx), "\x00")
	val = strings.TrimSpace(val)
	if val == "" || dec == nil {
		return val
	}
	decoded, err := dec.String(val)
	if err != nil {
		return val
	}
	return strings.TrimSpace(decoded)
}

// attributeDecoder resolves the DBF text encoding: an explicit override
// wins, then the .cpg sidecar, then UTF-8 passthrough. An override the
// registry does not know is a configuration error; a strange .cpg only
// warns, because the file may still be plain ASCII.
func attributeDecoder(shpPath, override string) (*encoding.Decoder, error) {
	if override != "" {
		enc, err := htmlindex.Get(normalizeEncoding(override))
		if err != nil {
			return nil, eris.Wrapf(zonal.ErrConfig, "unknown attribute encoding %q", override)
		}
		return enc.NewDecoder(), nil
	}

	cpg := sidecar(shpPath, ".cpg")
	b, err := os.ReadFile(cpg)
	if err != nil {
		return nil, nil
	}
	name := strings.TrimSpace(string(b))
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return nil, nil
	}
	enc, err := htmlindex.Get(normalizeEncoding(name))
	if err != nil {
		zap.L().Warn("vector: unknown codepage in .cpg, assuming utf-8",
			zap.String("codepage", name),
			zap.String("path", cpg),
		)
		return nil, nil
	}
	return enc.NewDecoder(), nil
}

// normalizeEncoding maps common DBF codepage spellings onto registry labels.
func normalizeEncoding(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "tis620":
		return "tis-620"
	case "cp874", "874":
		return "windows-874"
	case "cp1252", "1252":
		return "windows-1252"
	}
	return n
}

func sidecar(shpPath, ext string) string {
	return strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ext
}

// polygonFeature converts shapefile polygon parts into a MultiPolygon.
// Outer rings arrive clockwise per the shapefile spec; counter-clockwise
// parts are holes belonging to the outer ring they follow.
func polygonFeature(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var cur *geom.Polygon
	flush := func() {
		if cur == nil {
			return
		}
		if err := mp.Push(cur); err != nil {
			zap.L().Debug("vector: skipping malformed polygon part", zap.Error(err))
		}
		cur = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 {
			// A closed ring needs at least four points.
			continue
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if cur != nil && ringArea(flat) > 0 {
			if err := cur.Push(ring); err != nil {
				zap.L().Debug("vector: skipping malformed hole ring", zap.Error(err))
			}
			continue
		}
		flush()
		cur = geom.NewPolygon(geom.XY)
		if err := cur.Push(ring); err != nil {
			zap.L().Debug("vector: skipping malformed outer ring", zap.Error(err))
			cur = nil
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// ringArea is the shoelace signed area: negative for the clockwise outer
// rings shapefiles use, positive for counter-clockwise holes.
func ringArea(flat []float64) float64 {
	var sum float64
	n := len(flat)
	for i := 0; i < n; i += 2 {
		x1, y1 := flat[i], flat[i+1]
		x2, y2 := flat[(i+2)%n], flat[(i+3)%n]
		sum += x1*y2 - x2*y1
	}
	return sum / 2
}
