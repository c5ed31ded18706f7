package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KaramelBytes/pavecheck-cli/internal/detect"
	"github.com/xuri/excelize/v2"
)

// Format names an output rendering of a report.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	// FormatMinitab is a CSV shaped for statistical packages: numeric codes
	// for review type and confidence, and no commas inside fields.
	FormatMinitab Format = "minitab"
)

// Formats lists every supported format.
var Formats = []Format{FormatMarkdown, FormatJSON, FormatCSV, FormatXLSX, FormatMinitab}

// ParseFormat accepts a format name or a common alias ("md").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "minitab", "mtb":
		return FormatMinitab, nil
	}
	return "", fmt.Errorf("unknown format %q (want markdown, json, csv, xlsx or minitab)", s)
}

// FormatFromPath guesses a format from an output file extension.
func FormatFromPath(path string) (Format, bool) {
	lp := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lp, ".json"):
		return FormatJSON, true
	case strings.HasSuffix(lp, ".csv"):
		return FormatCSV, true
	case strings.HasSuffix(lp, ".xlsx"):
		return FormatXLSX, true
	case strings.HasSuffix(lp, ".md"):
		return FormatMarkdown, true
	}
	return "", false
}

// Write renders rep to w in the given format.
func Write(w io.Writer, f Format, rep *detect.Report) error {
	switch f {
	case FormatMarkdown, "":
		_, err := io.WriteString(w, rep.Markdown())
		return err
	case FormatJSON:
		return writeJSON(w, rep)
	case FormatCSV:
		return writeCSV(w, rep.Anomalies)
	case FormatXLSX:
		return writeXLSX(w, rep)
	case FormatMinitab:
		return writeMinitab(w, rep.Anomalies)
	}
	return fmt.Errorf("unknown format %q", f)
}

type jsonRoles struct {
	Current     detect.Roles  `json:"current"`
	Historical  *detect.Roles `json:"historical,omitempty"`
	Maintenance *detect.Roles `json:"maintenance,omitempty"`
}

type jsonReport struct {
	Name        string           `json:"name,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	Summary     detect.Summary   `json:"summary"`
	Columns     jsonRoles        `json:"columns"`
	Anomalies   []detect.Anomaly `json:"anomalies"`
	Notes       []string         `json:"notes,omitempty"`
}

func writeJSON(w io.Writer, rep *detect.Report) error {
	out := jsonReport{
		Name:        rep.Name,
		GeneratedAt: rep.GeneratedAt.UTC(),
		Summary:     rep.Summary,
		Columns:     jsonRoles{Current: rep.Current, Historical: rep.Historical, Maintenance: rep.Maintenance},
		Anomalies:   rep.Anomalies,
		Notes:       rep.Notes,
	}
	if out.Anomalies == nil {
		out.Anomalies = []detect.Anomaly{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Header is the column order of tabular exports.
var Header = []string{"section_id", "rule", "review_type", "confidence", "reason", "pci"}

func record(a detect.Anomaly) []string {
	return []string{a.SectionID.String(), a.Rule, string(a.ReviewType), string(a.Confidence), a.Reason, a.PCI.String()}
}

func writeCSV(w io.Writer, anomalies []detect.Anomaly) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	for _, a := range anomalies {
		if err := cw.Write(record(a)); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	anomalySheet = "Anomalies"
	summarySheet = "Summary"
)

func writeXLSX(w io.Writer, rep *detect.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", anomalySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(anomalySheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(anomalySheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for r, a := range rep.Anomalies {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		row := []interface{}{cellValue(a), a.Rule, string(a.ReviewType), string(a.Confidence), a.Reason, pciCell(a)}
		if err := f.SetSheetRow(anomalySheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	widths := []float64{14, 15, 12, 12, 70, 8}
	for i, wd := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(anomalySheet, col, col, wd); err != nil {
			return fmt.Errorf("set width: %w", err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	s := rep.Summary
	summary := [][]interface{}{
		{"dataset", rep.Name},
		{"total_sections", s.TotalSections},
		{"anomalies_count", s.AnomaliesCount},
		{"flagged_sections", s.FlaggedSections},
		{"review_percentage", s.ReviewPercentage},
		{"field_review", s.ByReviewType[detect.ReviewField]},
		{"desktop_review", s.ByReviewType[detect.ReviewDesktop]},
	}
	for r, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		row := row
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// cellValue keeps numeric section ids numeric in the workbook.
func cellValue(a detect.Anomaly) interface{} {
	if x, ok := a.SectionID.Float(); ok {
		return x
	}
	return a.SectionID.String()
}

// pciCell leaves the cell empty when the anomaly carries no PCI.
func pciCell(a detect.Anomaly) interface{} {
	if x, ok := a.PCI.Float(); ok {
		return x
	}
	return nil
}

// MinitabHeader is the column order of the minitab format.
var MinitabHeader = []string{
	"Section ID", "Reason", "Review Type", "Review Type Value (1=Desktop;2=Field)",
	"Confidence", "Confidence Value (1=Low;2=Medium;3=High)", "PCI",
}

func reviewCode(r detect.ReviewType) string {
	if r == detect.ReviewField {
		return "2"
	}
	return "1"
}

func confidenceCode(c detect.Confidence) string {
	switch c {
	case detect.ConfidenceHigh:
		return "3"
	case detect.ConfidenceMedium:
		return "2"
	case detect.ConfidenceLow:
		return "1"
	}
	return "0"
}

func writeMinitab(w io.Writer, anomalies []detect.Anomaly) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MinitabHeader); err != nil {
		return fmt.Errorf("write minitab: %w", err)
	}
	for _, a := range anomalies {
		rec := []string{
			a.SectionID.String(),
			strings.ReplaceAll(a.Reason, ",", ";"),
			string(a.ReviewType),
			reviewCode(a.ReviewType),
			string(a.Confidence),
			confidenceCode(a.Confidence),
			a.PCI.String(),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write minitab: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
