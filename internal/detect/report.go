package detect

import (
	"fmt"
	"strings"
	"time"
)

// Report is a Markdown-friendly view of one analysis.
type Report struct {
	Name        string
	GeneratedAt time.Time
	Summary     Summary
	Current     Roles
	Historical  *Roles
	Maintenance *Roles
	Anomalies   []Anomaly
	Notes       []string
}

// NewReport assembles a report from a detection result. Roles of datasets
// that were not supplied are left nil.
func NewReport(name string, in Input, res *Result) *Report {
	r := &Report{
		Name:        name,
		GeneratedAt: time.Now(),
		Summary:     Summarize(res.Sections, res.Anomalies),
		Current:     res.Current,
		Anomalies:   res.Anomalies,
		Notes:       res.Notes,
	}
	if in.Historical != nil {
		h := res.Historical
		r.Historical = &h
	}
	if in.Maintenance != nil {
		m := res.Maintenance
		r.Maintenance = &m
	}
	return r
}

// Markdown renders the report in bracketed sections.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[ANALYSIS SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Dataset: %s\n", r.Name))
	}
	s := r.Summary
	b.WriteString(fmt.Sprintf("Sections: %d\n", s.TotalSections))
	b.WriteString(fmt.Sprintf("Anomalies: %d (%.2f%% of sections, %d distinct)\n", s.AnomaliesCount, s.ReviewPercentage, s.FlaggedSections))
	if s.AnomaliesCount > 0 {
		b.WriteString(fmt.Sprintf("Review: field %d, desktop %d\n", s.ByReviewType[ReviewField], s.ByReviewType[ReviewDesktop]))
		b.WriteString(fmt.Sprintf("Confidence: high %d, medium %d, low %d\n",
			s.ByConfidence[ConfidenceHigh], s.ByConfidence[ConfidenceMedium], s.ByConfidence[ConfidenceLow]))
	}

	b.WriteString("\n[RESOLVED COLUMNS]\n")
	writeRoles(&b, "current", &r.Current)
	writeRoles(&b, "historical", r.Historical)
	writeRoles(&b, "maintenance", r.Maintenance)

	b.WriteString("\n[ANOMALIES]\n")
	if len(r.Anomalies) == 0 {
		b.WriteString("(none)\n")
	} else {
		b.WriteString("| section | rule | review | confidence | reason |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, a := range r.Anomalies {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				safeVal(a.SectionID.String()), a.Rule, a.ReviewType, a.Confidence, safeVal(a.Reason)))
		}
	}
	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeRoles(b *strings.Builder, label string, r *Roles) {
	if r == nil {
		return
	}
	id := r.SectionID
	if id == "" {
		id = "(row index)"
	}
	pci := r.PCI
	if pci == "" {
		pci = "(none)"
	}
	b.WriteString(fmt.Sprintf("- %s: section=%s, pci=%s, dates=%s, distress=%s, category=%s\n",
		label, id, pci, list(r.Dates), list(r.Distress), list(r.Category)))
}

func list(cols []string) string {
	if len(cols) == 0 {
		return "(none)"
	}
	return strings.Join(cols, ",")
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// Filtered returns a copy of r holding only the anomalies f keeps, with the
// summary recomputed over them and a note recording the filter.
func (r *Report) Filtered(f Filter) *Report {
	if !f.Active() {
		return r
	}
	out := *r
	out.Anomalies = f.Apply(r.Anomalies)
	out.Summary = Summarize(r.Summary.TotalSections, out.Anomalies)
	out.Notes = append(append([]string(nil), r.Notes...),
		fmt.Sprintf("filtered (%s): %d of %d anomalies shown", f, len(out.Anomalies), len(r.Anomalies)))
	return &out
}
