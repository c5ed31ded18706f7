package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/pavecheck-cli/internal/table"
	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Load reads the selected sheet. The first non-empty row is the header.
func (xlsxLoader) Load(path string, opt Options) (*table.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	name := filepath.Base(path)
	if opt.SheetName != "" || opt.SheetIndex > 1 {
		name = fmt.Sprintf("%s (sheet: %s)", name, sheet)
	}
	start := 0
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return table.New(name, nil), nil
	}
	ds := table.New(name, rows[start])
	for _, rec := range rows[start+1:] {
		if blank(rec) {
			continue
		}
		ds.AppendStrings(rec, opt.Number)
	}
	return ds, nil
}

// pickSheet resolves a sheet by name, then by 1-based index, then the first sheet.
func pickSheet(f *excelize.File, name string, index int) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("no sheets found in workbook")
	}
	if name != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, name) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found; available sheets: %s", name, strings.Join(sheets, ", "))
	}
	if index <= 0 {
		index = 1
	}
	if index > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", index, len(sheets))
	}
	return sheets[index-1], nil
}
