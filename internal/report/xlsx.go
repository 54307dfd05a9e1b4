package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/floodlab/floodarea/internal/zonal"
)

// SheetName is the single worksheet written by WriteXLSX.
const SheetName = "flood_area"

// WriteXLSX renders the report as a one-sheet workbook with the same
// layout as the CSV. Area and depth cells stay numeric so spreadsheet
// formulas can sum them directly.
func WriteXLSX(rep *zonal.Report, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "report: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, name := range Columns(rep) {
		header.AddCell().SetString(name)
	}

	for _, row := range rep.Rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.ID)
		r.AddCell().SetString(row.Name)
		r.AddCell().SetFloat(row.TotalArea)
		r.AddCell().SetFloat(row.NoFlood)
		for _, a := range row.BandAreas {
			r.AddCell().SetFloat(a)
		}
		r.AddCell().SetFloat(row.NoData)
		r.AddCell().SetFloat(row.Flooded)
		if rep.HasDepthStats {
			if row.Stats == nil {
				r.AddCell()
				r.AddCell()
				r.AddCell()
			} else {
				r.AddCell().SetFloat(row.Stats.Min)
				r.AddCell().SetFloat(row.Stats.Mean)
				r.AddCell().SetFloat(row.Stats.Max)
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save xlsx %s", path)
	}
	return nil
}
