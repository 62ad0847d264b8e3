package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WorkbookText renders the first sheet of an xlsx workbook as tab-separated text.
func WorkbookText(r io.Reader) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return "", errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return "", fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	var b strings.Builder
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = flattenCell(cell)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func flattenCell(s string) string {
	return strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
