package parser_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/pavecheck-cli/internal/parser"
	"github.com/KaramelBytes/pavecheck-cli/internal/table"
	"github.com/xuri/excelize/v2"
)

func write(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadFileCSV(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "survey_2023.csv", []byte("\ufeffsection_id,pci,survey_date\n"+
		"101,72.5,2023-06-01\n"+
		"\n"+
		"102,,2023-06-02\n"))
	ds, err := parser.LoadFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Name != "survey_2023.csv" || ds.Len() != 2 {
		t.Fatalf("dataset = %s with %d rows", ds.Name, ds.Len())
	}
	if ds.Columns[0] != "section_id" {
		t.Fatalf("BOM not stripped: %q", ds.Columns[0])
	}
	if f, ok := ds.Get(0, "pci").Float(); !ok || f != 72.5 {
		t.Fatalf("pci = %v", ds.Get(0, "pci"))
	}
	if !ds.Get(1, "pci").IsMissing() {
		t.Fatalf("empty pci should be missing")
	}
	if ds.Get(1, "survey_date").Kind != table.KindDate {
		t.Fatalf("date kind = %v", ds.Get(1, "survey_date").Kind)
	}
}

func TestLoadFileSniffsSemicolonAndDecimalComma(t *testing.T) {
	p := write(t, t.TempDir(), "eu.csv", []byte("section_id;pci\nA-1;72,5\n"))
	ds, err := parser.LoadFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ds.Columns) != 2 {
		t.Fatalf("columns = %v", ds.Columns)
	}
	if f, _ := ds.Get(0, "pci").Float(); f != 72.5 {
		t.Fatalf("pci = %v", ds.Get(0, "pci"))
	}
}

func TestLoadFileTSV(t *testing.T) {
	p := write(t, t.TempDir(), "h.tsv", []byte("section_id\tpci\n1\t80\n"))
	ds, err := parser.LoadFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Get(0, "pci").Key() != "80" {
		t.Fatalf("row = %v", ds.Rows[0])
	}
}

func TestLoadFileLegacyEncoding(t *testing.T) {
	// "Café Rd" in windows-1252
	data := []byte("section_id,street,pci\n1,Caf\xe9 Rd,60\n")
	p := write(t, t.TempDir(), "legacy.csv", data)
	ds, err := parser.LoadFile(p, parser.Options{Encoding: "windows-1252"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := ds.Get(0, "street").String(); got != "Café Rd" {
		t.Fatalf("street = %q", got)
	}
	if _, err := parser.LoadFile(p, parser.Options{Encoding: "ebcdic"}); err == nil {
		t.Fatalf("expected unknown encoding error")
	}
	if !parser.ValidEncoding("ISO-8859-1") || parser.ValidEncoding("ebcdic") {
		t.Fatalf("ValidEncoding mismatch")
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	p := write(t, t.TempDir(), "notes.txt", []byte("hello"))
	if _, err := parser.LoadFile(p, parser.Options{}); !errors.Is(err, parser.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestLoadFileEmptyCSV(t *testing.T) {
	p := write(t, t.TempDir(), "empty.csv", nil)
	ds, err := parser.LoadFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ds.Empty() || len(ds.Columns) != 0 {
		t.Fatalf("expected empty dataset, got %v", ds)
	}
}

func writeWorkbook(t *testing.T, path string, sheets map[string][][]interface{}, order []string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			row := row
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestLoadFileXLSX(t *testing.T) {
	p := filepath.Join(t.TempDir(), "survey.xlsx")
	writeWorkbook(t, p, map[string][][]interface{}{
		"Current": {
			{"section_id", "pci", "treatment_type"},
			{101, 72.5, "Overlay"},
			{102, 40, "Crack Seal"},
		},
		"Maintenance": {
			{"section_id", "date_completed"},
			{101, "2022-06-01"},
		},
	}, []string{"Current", "Maintenance"})

	ds, err := parser.LoadFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Len() != 2 || ds.Get(0, "pci").Key() != "72.5" || ds.Get(1, "treatment_type").String() != "Crack Seal" {
		t.Fatalf("rows = %v", ds.Rows)
	}

	m, err := parser.LoadFile(p, parser.Options{SheetName: "maintenance"})
	if err != nil {
		t.Fatalf("load by name: %v", err)
	}
	if !strings.Contains(m.Name, "sheet: Maintenance") || m.Get(0, "date_completed").Kind != table.KindDate {
		t.Fatalf("maintenance sheet = %s %v", m.Name, m.Rows)
	}
	if _, err := parser.LoadFile(p, parser.Options{SheetIndex: 2}); err != nil {
		t.Fatalf("load by index: %v", err)
	}
	if _, err := parser.LoadFile(p, parser.Options{SheetName: "Nope"}); err == nil || !strings.Contains(err.Error(), "available sheets: Current, Maintenance") {
		t.Fatalf("missing sheet err = %v", err)
	}
	if _, err := parser.LoadFile(p, parser.Options{SheetIndex: 9}); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestLoadFilesMergesAndSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	a := write(t, dir, "a.csv", []byte("section_id,pci\n1,80\n2,60\n"))
	b := write(t, dir, "b.csv", []byte("section_id,survey_date\n2,2023-05-01\n3,2023-05-02\n"))
	var buf bytes.Buffer
	opt := parser.Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	ds, err := parser.LoadFiles([]string{a, filepath.Join(dir, "missing.csv"), b}, opt)
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if ds.Len() != 3 || len(ds.Columns) != 3 {
		t.Fatalf("merged = %d rows, columns %v", ds.Len(), ds.Columns)
	}
	if ds.Get(1, "survey_date").String() != "2023-05-01" {
		t.Fatalf("join mismatch: %v", ds.Rows[1])
	}
	if !strings.Contains(buf.String(), "skipping file") {
		t.Fatalf("expected skip warning, got %q", buf.String())
	}

	if _, err := parser.LoadFiles([]string{filepath.Join(dir, "x.csv")}, opt); err == nil {
		t.Fatalf("expected error when every file fails")
	}
	if ds, err := parser.LoadFiles(nil, opt); ds != nil || err != nil {
		t.Fatalf("no paths = %v, %v", ds, err)
	}
}
