package vector

import (
	"os"
	"regexp"
	"strconv"

	"github.com/floodlab/floodarea/internal/raster"
)

var (
	wktAuthorityRe = regexp.MustCompile(`AUTHORITY\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]`)
	wktNameRe      = regexp.MustCompile(`^\s*(?:PROJCS|GEOGCS|PROJCRS|GEOGCRS)\[\s*"([^"]+)"`)
)

// crsFromPrj sniffs the coordinate system from the .prj sidecar. A missing
// or unparsable projection file leaves the CRS unknown.
func crsFromPrj(shpPath string) raster.CRS {
	b, err := os.ReadFile(sidecar(shpPath, ".prj"))
	if err != nil {
		return raster.CRS{}
	}
	return ParseWKT(string(b))
}

// ParseWKT extracts the CRS identity from a WKT definition. The last
// AUTHORITY clause names the whole system; earlier ones belong to nested
// datum and spheroid definitions.
func ParseWKT(wkt string) raster.CRS {
	var crs raster.CRS
	if m := wktNameRe.FindStringSubmatch(wkt); m != nil {
		crs.Name = m[1]
	}
	ms := wktAuthorityRe.FindAllStringSubmatch(wkt, -1)
	if len(ms) > 0 {
		if code, err := strconv.Atoi(ms[len(ms)-1][1]); err == nil {
			crs.EPSG = code
		}
	}
	return crs
}
