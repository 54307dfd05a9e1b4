package report

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/floodlab/floodarea/internal/zonal"
)

// WriteCSV serializes the report as delimited text: a header row of
// column names, then one data row per zone in zone order. No index
// column is written.
func WriteCSV(rep *zonal.Report, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns(rep)); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, row := range rep.Rows {
		if err := cw.Write(Values(rep, row)); err != nil {
			return eris.Wrapf(err, "report: write csv row %s", row.ID)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}
