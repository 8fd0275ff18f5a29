package attendance

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"rushweb/internal/datefmt"
)

// SheetName is the worksheet holding the exported matrix.
const SheetName = "출석"

// ExportXLSX writes the matrix as a workbook.
//
// Row 1 holds 이름, 기수, 총점 and the session names; row 2 holds the session start
// times under the session names. Each following row is one user. Sessions the user
// did not score in are left blank.
func ExportXLSX(w io.Writer, m Matrix, f datefmt.Formatter) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName(book.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	names := []interface{}{"이름", "기수", "총점"}
	dates := []interface{}{"", "", ""}
	for _, c := range m.Columns {
		names = append(names, c.Name)
		dates = append(dates, f.Slash(c.StartedAt))
	}
	if err := book.SetSheetRow(SheetName, "A1", &names); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := book.SetSheetRow(SheetName, "A2", &dates); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range m.Rows {
		values := []interface{}{r.Name, r.Generation, r.Total}
		for _, cell := range r.Cells {
			if cell.Score > 0 {
				values = append(values, cell.Score)
			} else {
				values = append(values, "")
			}
		}
		axis, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(SheetName, axis, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+3, err)
		}
	}

	if _, err := book.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

var unsafeFileChars = strings.NewReplacer("/", "-", ":", "-")

// ExportFileName is "출석_<YYYY/MM/DD HH:MM>.xlsx" with path separators and colons
// replaced so that it is a valid file name everywhere.
func ExportFileName(now time.Time, f datefmt.Formatter) string {
	return unsafeFileChars.Replace("출석_" + f.Slash(now) + ".xlsx")
}
