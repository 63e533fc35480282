package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetExtractor handles .csv, .xlsx and .xls workbooks. Excel files
// produce one unit per sheet so retrieval can point at individual sheets.
type SpreadsheetExtractor struct{}

func (e *SpreadsheetExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return e.extractCSV(path)
	}
	return e.extractExcel(path)
}

func (e *SpreadsheetExtractor) extractCSV(path string) ([]Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return []Unit{{Text: tableText(rows)}}, nil
}

func (e *SpreadsheetExtractor) extractExcel(path string) ([]Unit, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	var units []Unit
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		units = append(units, Unit{
			Text: fmt.Sprintf("Sheet: %s\n%s", sheet, tableText(rows)),
		})
	}
	return units, nil
}

func tableText(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, "\t"))
	}
	return strings.Join(lines, "\n")
}
