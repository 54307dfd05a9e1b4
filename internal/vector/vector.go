// Package vector loads administrative zone polygons from shapefiles and
// GeoPackages into the aggregation's feature model.
package vector

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/floodlab/floodarea/internal/raster"
	"github.com/floodlab/floodarea/internal/zonal"
)

// ErrUnsupported marks vector formats the loader does not read.
var ErrUnsupported = eris.New("vector: unsupported vector format")

// Options control attribute extraction and layer selection.
type Options struct {
	// IDField and NameField are matched against attribute columns
	// case-insensitively; features without them fall back to positional
	// identifiers downstream.
	IDField   string
	NameField string
	// Encoding overrides the DBF text encoding, e.g. "tis-620". Empty
	// means honor the .cpg sidecar and otherwise assume UTF-8.
	Encoding string
	// Layer names the GeoPackage feature table. Empty picks the first.
	Layer string
}

// Layer is a loaded zone layer.
type Layer struct {
	Features []zonal.Feature
	CRS      raster.CRS
	Format   string
}

// Open reads the zone layer at path, dispatching on the file extension.
func Open(path string, opts Options) (*Layer, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".shp":
		return readShapefile(path, opts)
	case ".gpkg":
		return readGeoPackage(path, opts)
	default:
		return nil, eris.Wrapf(ErrUnsupported, "extension %q", ext)
	}
}
