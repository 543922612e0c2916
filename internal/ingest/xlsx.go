package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet name previously exported summaries use.
const defaultSheet = "Sheet1"

// readXLSX reads the first data sheet of a spreadsheet into a header row and
// data rows. "Sheet1" is preferred when present; otherwise the workbook's
// first sheet is used.
func readXLSX(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := defaultSheet
	if idx, err := f.GetSheetIndex(defaultSheet); err != nil || idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("spreadsheet has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	return rows[0], rows[1:], nil
}
