package vector

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/floodlab/floodarea/internal/raster"
	"github.com/floodlab/floodarea/internal/zonal"
)

func readGeoPackage(path string, opts Options) (*Layer, error) {
	// sql.Open would silently create an empty database for a bad path.
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "vector: geopackage %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open geopackage %s", path)
	}
	defer db.Close() //nolint:errcheck

	table, geomCol, srsID, err := pickLayer(db, opts.Layer)
	if err != nil {
		return nil, err
	}

	var crs raster.CRS
	if srsID > 0 {
		crs.EPSG = srsID
	}
	var srsName string
	if err := db.QueryRow(
		`SELECT srs_name FROM gpkg_spatial_ref_sys WHERE srs_id = ?`, srsID,
	).Scan(&srsName); err == nil {
		crs.Name = srsName
	}

	feats, err := readFeatures(db, table, geomCol, opts)
	if err != nil {
		return nil, err
	}
	return &Layer{Features: feats, CRS: crs, Format: "geopackage"}, nil
}

// pickLayer resolves the feature table to read from the GeoPackage
// registry tables.
func pickLayer(db *sql.DB, want string) (table, geomCol string, srsID int, err error) {
	const q = `
		SELECT c.table_name, g.column_name, g.srs_id
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features'
		ORDER BY c.table_name
	`
	rows, err := db.Query(q)
	if err != nil {
		return "", "", 0, eris.Wrap(err, "vector: read geopackage layer registry")
	}
	defer rows.Close()

	type layer struct {
		table, col string
		srs        int
	}
	var layers []layer
	for rows.Next() {
		var l layer
		if err := rows.Scan(&l.table, &l.col, &l.srs); err != nil {
			return "", "", 0, eris.Wrap(err, "vector: scan layer registry row")
		}
		layers = append(layers, l)
	}
	if err := rows.Err(); err != nil {
		return "", "", 0, eris.Wrap(err, "vector: iterate layer registry rows")
	}
	if len(layers) == 0 {
		return "", "", 0, eris.New("vector: geopackage has no feature layers")
	}

	if want == "" {
		return layers[0].table, layers[0].col, layers[0].srs, nil
	}
	for _, l := range layers {
		if strings.EqualFold(l.table, want) {
			return l.table, l.col, l.srs, nil
		}
	}
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.table
	}
	return "", "", 0, eris.Wrapf(zonal.ErrConfig,
		"layer %q not in geopackage (have %s)", want, strings.Join(names, ", "))
}

func readFeatures(db *sql.DB, table, geomCol string, opts Options) ([]zonal.Feature, error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT * FROM %q`, table))
	if err != nil {
		return nil, eris.Wrapf(err, "vector: read layer %s", table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "vector: read layer columns")
	}
	geomIdx, idIdx, nameIdx := -1, -1, -1
	for i, c := range cols {
		switch {
		case strings.EqualFold(c, geomCol):
			geomIdx = i
		case strings.EqualFold(c, opts.IDField):
			idIdx = i
		case strings.EqualFold(c, opts.NameField):
			nameIdx = i
		}
	}
	if geomIdx < 0 {
		return nil, eris.Errorf("vector: geometry column %s missing from table %s", geomCol, table)
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	var feats []zonal.Feature
	var skipped int
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "vector: scan feature row")
		}
		blob, _ := vals[geomIdx].([]byte)
		g, err := parseGpkgBlob(blob)
		if err != nil || g == nil || !isAreal(g) {
			skipped++
			continue
		}

		var f zonal.Feature
		f.Geometry = g
		if idIdx >= 0 {
			f.ID = asString(vals[idIdx])
		}
		if nameIdx >= 0 {
			f.Name = asString(vals[nameIdx])
		}
		feats = append(feats, f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "vector: iterate feature rows")
	}
	if skipped > 0 {
		zap.L().Debug("vector: skipped geopackage records",
			zap.String("table", table),
			zap.Int("skipped", skipped),
		)
	}
	return feats, nil
}

// parseGpkgBlob strips the GeoPackage binary header and decodes the WKB
// payload. The header is "GP", a version byte, a flags byte, an int32
// srs id, then an envelope whose size the flags declare.
func parseGpkgBlob(b []byte) (geom.T, error) {
	if len(b) < 8 || b[0] != 'G' || b[1] != 'P' {
		return nil, eris.New("vector: not a geopackage geometry blob")
	}
	flags := b[3]
	if flags&0x20 != 0 {
		return nil, eris.New("vector: extended geopackage geometry not supported")
	}
	if flags&0x10 != 0 {
		// Empty-geometry flag.
		return nil, nil
	}
	envSizes := [...]int{0, 32, 48, 48, 64}
	envType := int(flags>>1) & 0x07
	if envType >= len(envSizes) {
		return nil, eris.Errorf("vector: invalid envelope indicator %d", envType)
	}
	off := 8 + envSizes[envType]
	if len(b) < off {
		return nil, eris.New("vector: truncated geopackage geometry blob")
	}
	g, err := wkb.Unmarshal(b[off:])
	if err != nil {
		return nil, eris.Wrap(err, "vector: decode wkb geometry")
	}
	return g, nil
}

func isAreal(g geom.T) bool {
	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
		return true
	}
	return false
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
