// Package report renders aggregation results as CSV, XLSX, or GeoJSON.
// All formats share one column layout so a run looks the same no matter
// where it lands.
package report

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/floodlab/floodarea/internal/zonal"
)

// Formats lists the supported output formats in display order.
func Formats() []string {
	return []string{FormatCSV, FormatXLSX, FormatGeoJSON}
}

const (
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatGeoJSON = "geojson"
)

// ValidateFormat checks an output format token without touching any
// I/O, so a bad one fails a run before the inputs are read.
func ValidateFormat(format string) error {
	_, err := normalizeFormat(format)
	return err
}

func normalizeFormat(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatGeoJSON:
		return f, nil
	default:
		return "", eris.Wrapf(zonal.ErrConfig, "unknown output format %q (want csv, xlsx, or geojson)", format)
	}
}

// Save renders the report at path in the named format. An empty format
// means CSV, and an empty or "-" path sends CSV and GeoJSON to stdout.
// XLSX always needs a real path. The zones supply geometries for the
// GeoJSON output and are ignored by the tabular formats.
func Save(rep *zonal.Report, zones []zonal.Feature, path, format string) error {
	f, err := normalizeFormat(format)
	if err != nil {
		return err
	}
	switch f {
	case FormatCSV:
		return saveStream(path, func(f *os.File) error { return WriteCSV(rep, f) })
	case FormatXLSX:
		if path == "" || path == "-" {
			return eris.Wrap(zonal.ErrConfig, "report: xlsx output requires a file path")
		}
		return WriteXLSX(rep, path)
	default:
		return saveStream(path, func(f *os.File) error { return WriteGeoJSON(rep, zones, f) })
	}
}

func saveStream(path string, write func(*os.File) error) error {
	if path == "" || path == "-" {
		return write(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := write(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "report: close %s", path)
	}
	return nil
}
