package export

import (
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

// ContentTypeXLSX is served with spreadsheet downloads.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheetName = "Workouts"

// WriteXLSX writes the same table as WriteCSV as a single-sheet workbook.
// Reps and Daily Total are stored as numbers.
func WriteXLSX(w io.Writer, rec domain.FamilyRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	rows := append([][]string{Header}, Rows(rec)...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
			if i > 0 && (j == 3 || j == 5) && v != "" {
				if n, convErr := strconv.Atoi(v); convErr == nil {
					values[j] = n
				}
			}
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}
