package geotiff

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/floodlab/floodarea/internal/raster"
)

// GeoKey IDs from the GeoKeyDirectory tag.
const (
	keyModelType      = 1024
	keyCitation       = 1026
	keyGeographicType = 2048
	keyGeogCitation   = 2049
	keyProjectedCS    = 3072
	keyProjCitation   = 3073
)

// userDefined is the GeoTIFF sentinel for codes with no registry entry.
const userDefined = 32767

// parseTransform derives the pixel-to-world mapping. Pixel scale plus a
// tiepoint is the common encoding; a full model transformation matrix wins
// when present.
func parseTransform(dir ifd) (raster.Affine, error) {
	if m := dir.floats(tagModelTransform); len(m) >= 16 {
		return checkTransform(raster.Affine{A: m[0], B: m[1], C: m[3], D: m[4], E: m[5], F: m[7]})
	}
	scale := dir.floats(tagModelPixelScale)
	tie := dir.floats(tagModelTiepoint)
	if len(scale) >= 2 && len(tie) >= 6 {
		sx, sy := scale[0], scale[1]
		return checkTransform(raster.Affine{
			A: sx, C: tie[3] - tie[0]*sx,
			E: -sy, F: tie[4] + tie[1]*sy,
		})
	}
	return raster.Affine{}, eris.Wrap(ErrNoGeoreference, "no pixel scale, tiepoint, or transformation tag")
}

// checkTransform rejects mappings that give cells zero or non-finite
// area.
func checkTransform(t raster.Affine) (raster.Affine, error) {
	pa := t.PixelArea()
	if pa == 0 || math.IsInf(pa, 0) || math.IsNaN(pa) {
		return raster.Affine{}, eris.Wrapf(ErrNoGeoreference, "degenerate pixel scale (cell area %v)", pa)
	}
	return t, nil
}

// parseCRS pulls the EPSG code and citation out of the GeoKey directory.
// A raster without keys gets the zero CRS; callers decide how loud a
// missing or mismatched system should be.
func parseCRS(dir ifd) raster.CRS {
	keys := dir.values(tagGeoKeyDirectory)
	if len(keys) < 4 {
		return raster.CRS{}
	}
	ascii := dir.text(tagGeoASCIIParams)

	var modelType, projCS, geogCS int
	var citation string
	n := keys[3]
	for k := 0; k < n; k++ {
		base := 4 + k*4
		if base+4 > len(keys) {
			break
		}
		id, loc, cnt, val := keys[base], keys[base+1], keys[base+2], keys[base+3]
		switch id {
		case keyModelType:
			if loc == 0 {
				modelType = val
			}
		case keyProjectedCS:
			if loc == 0 {
				projCS = val
			}
		case keyGeographicType:
			if loc == 0 {
				geogCS = val
			}
		case keyCitation, keyGeogCitation, keyProjCitation:
			if loc == tagGeoASCIIParams && val >= 0 && val+cnt <= len(ascii) {
				s := strings.TrimRight(ascii[val:val+cnt], "|\x00 ")
				if citation == "" {
					citation = s
				}
			}
		}
	}

	crs := raster.CRS{Name: citation}
	usable := func(code int) bool { return code > 0 && code != userDefined }
	if modelType == 2 {
		// Geographic model: the geographic key is authoritative.
		if usable(geogCS) {
			crs.EPSG = geogCS
		}
		return crs
	}
	switch {
	case usable(projCS):
		crs.EPSG = projCS
	case usable(geogCS):
		crs.EPSG = geogCS
	}
	return crs
}

// parseNoData reads GDAL's fill-value tag. The value arrives as text and
// "nan" is a legitimate spelling.
func parseNoData(dir ifd) *float64 {
	s := strings.TrimSpace(dir.text(tagGDALNoData))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		zap.L().Warn("geotiff: unparsable GDAL_NODATA value", zap.String("value", s))
		return nil
	}
	return &v
}
