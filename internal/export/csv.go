package export

import (
	"encoding/csv"
	"io"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

// ContentTypeCSV is served with CSV downloads.
const ContentTypeCSV = "text/csv; charset=utf-8"

// WriteCSV writes the header and every row of rec to w.
func WriteCSV(w io.Writer, rec domain.FamilyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	if err := cw.WriteAll(Rows(rec)); err != nil {
		return err
	}
	return cw.Error()
}
