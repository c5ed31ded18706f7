package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/pavecheck-cli/internal/detect"
	"github.com/KaramelBytes/pavecheck-cli/internal/table"
	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func sampleReport() *detect.Report {
	as := []detect.Anomaly{
		{SectionID: table.Number(101), Reason: "PCI value (10) is outside normal range (20.0-80.0)", ReviewType: detect.ReviewDesktop, Confidence: detect.ConfidenceHigh, Rule: detect.RuleOutlier, PCI: table.Number(10)},
		{SectionID: table.Text("S-7"), Reason: "Recent Overlay but PCI only 70. Expected > 85", ReviewType: detect.ReviewField, Confidence: detect.ConfidenceHigh, Rule: detect.RuleMaintenance, PCI: table.Number(70)},
		{SectionID: table.Number(12), Reason: "Inconsistent distress pattern: high transverse cracking (5) without longitudinal cracking (max 0)", ReviewType: detect.ReviewField, Confidence: detect.ConfidenceMedium, Rule: detect.RuleDistress},
	}
	return &detect.Report{
		Name:        "survey.csv",
		GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Summary:     detect.Summarize(4, as),
		Current:     detect.Roles{SectionID: "section_id", PCI: "pci"},
		Anomalies:   as,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "MD": FormatMarkdown, "json": FormatJSON, "csv": FormatCSV, "Excel": FormatXLSX, "Minitab": FormatMinitab} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatalf("expected error for pdf")
	}
	if f, ok := FormatFromPath("out/Anomalies.XLSX"); !ok || f != FormatXLSX {
		t.Fatalf("FormatFromPath = %q, %v", f, ok)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got struct {
		Summary struct {
			AnomaliesCount   int     `json:"anomalies_count"`
			ReviewPercentage float64 `json:"review_percentage"`
		} `json:"summary"`
		Anomalies []map[string]any `json:"anomalies"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if got.Summary.AnomaliesCount != 3 || got.Summary.ReviewPercentage != 75 {
		t.Fatalf("summary = %+v", got.Summary)
	}
	if got.Anomalies[0]["section_id"] != float64(101) || got.Anomalies[1]["section_id"] != "S-7" {
		t.Fatalf("section ids = %v, %v", got.Anomalies[0]["section_id"], got.Anomalies[1]["section_id"])
	}
	if got.Anomalies[1]["review_type"] != "field" || got.Anomalies[1]["pci"] != float64(70) || got.Anomalies[2]["pci"] != nil {
		t.Fatalf("anomaly = %v", got.Anomalies[1])
	}

	buf.Reset()
	empty := sampleReport()
	empty.Anomalies = nil
	if err := Write(&buf, FormatJSON, empty); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), `"anomalies": []`) {
		t.Fatalf("empty list should encode as []: %s", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := [][]string{
		Header,
		{"101", "outlier", "desktop", "high", "PCI value (10) is outside normal range (20.0-80.0)", "10"},
		{"S-7", "maintenance", "field", "high", "Recent Overlay but PCI only 70. Expected > 85", "70"},
		{"12", "distress", "field", "medium", "Inconsistent distress pattern: high transverse cracking (5) without longitudinal cracking (max 0)", ""},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if diff := cmp.Diff([]string{"Anomalies", "Summary"}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheets (-want +got):\n%s", diff)
	}
	rows, err := f.GetRows("Anomalies")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 || rows[1][0] != "101" || rows[2][0] != "S-7" || rows[2][1] != "maintenance" || rows[2][5] != "70" {
		t.Fatalf("rows = %v", rows)
	}
	total, _ := f.GetCellValue("Summary", "B2")
	if total != "4" {
		t.Fatalf("total_sections = %q", total)
	}
}

func TestWriteMinitab(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatMinitab, sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := [][]string{
		MinitabHeader,
		{"101", "PCI value (10) is outside normal range (20.0-80.0)", "desktop", "1", "high", "3", "10"},
		{"S-7", "Recent Overlay but PCI only 70. Expected > 85", "field", "2", "high", "3", "70"},
		{"12", "Inconsistent distress pattern: high transverse cracking (5) without longitudinal cracking (max 0)", "field", "2", "medium", "2", ""},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Fatalf("minitab mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	rep := sampleReport()
	rep.Anomalies = []detect.Anomaly{{SectionID: table.Text("A"), Reason: "x, y, z", ReviewType: detect.ReviewDesktop, Confidence: detect.ConfidenceLow}}
	if err := Write(&buf, FormatMinitab, rep); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[1] != "A,x; y; z,desktop,1,low,1," {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatMarkdown, sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "[ANALYSIS SUMMARY]") {
		t.Fatalf("markdown = %s", buf.String())
	}
}
