package detect

import (
	"fmt"
	"slices"
	"strings"

	"github.com/KaramelBytes/pavecheck-cli/internal/table"
)

// Filter narrows an anomaly list for review. Zero fields match everything.
type Filter struct {
	Confidences []Confidence
	ReviewTypes []ReviewType
	// Match is a case-insensitive substring of the section id, rule, review
	// type, confidence or reason.
	Match string
	// MinPCI and MaxPCI bound the triggering PCI inclusively. Anomalies
	// without a PCI value always pass.
	MinPCI *float64
	MaxPCI *float64
}

// ParseConfidence accepts high, medium or low in any case.
func ParseConfidence(s string) (Confidence, error) {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return c, nil
	}
	return "", fmt.Errorf("unknown confidence %q (want high, medium or low)", s)
}

// ParseReviewType accepts field or desktop in any case.
func ParseReviewType(s string) (ReviewType, error) {
	switch r := ReviewType(strings.ToLower(strings.TrimSpace(s))); r {
	case ReviewField, ReviewDesktop:
		return r, nil
	}
	return "", fmt.Errorf("unknown review type %q (want field or desktop)", s)
}

// Active reports whether f excludes anything.
func (f Filter) Active() bool {
	return len(f.Confidences) > 0 || len(f.ReviewTypes) > 0 || strings.TrimSpace(f.Match) != "" || f.MinPCI != nil || f.MaxPCI != nil
}

// Validate rejects an inverted PCI window.
func (f Filter) Validate() error {
	if f.MinPCI != nil && f.MaxPCI != nil && *f.MinPCI > *f.MaxPCI {
		return fmt.Errorf("min PCI %s exceeds max PCI %s", table.FormatFloat(*f.MinPCI), table.FormatFloat(*f.MaxPCI))
	}
	return nil
}

// Keep reports whether a passes every criterion.
func (f Filter) Keep(a Anomaly) bool {
	if len(f.Confidences) > 0 && !slices.Contains(f.Confidences, a.Confidence) {
		return false
	}
	if len(f.ReviewTypes) > 0 && !slices.Contains(f.ReviewTypes, a.ReviewType) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Match)); q != "" {
		text := strings.ToLower(strings.Join([]string{
			a.SectionID.String(), a.Rule, string(a.ReviewType), string(a.Confidence), a.Reason,
		}, " "))
		if !strings.Contains(text, q) {
			return false
		}
	}
	if pci, ok := a.PCI.Float(); ok {
		if f.MinPCI != nil && pci < *f.MinPCI {
			return false
		}
		if f.MaxPCI != nil && pci > *f.MaxPCI {
			return false
		}
	}
	return true
}

// Apply returns the anomalies that pass, in their original order.
func (f Filter) Apply(as []Anomaly) []Anomaly {
	if !f.Active() {
		return as
	}
	out := make([]Anomaly, 0, len(as))
	for _, a := range as {
		if f.Keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// String describes the active criteria, e.g. "confidence=high; pci 0-60".
func (f Filter) String() string {
	var parts []string
	if len(f.Confidences) > 0 {
		parts = append(parts, "confidence="+joinAny(f.Confidences))
	}
	if len(f.ReviewTypes) > 0 {
		parts = append(parts, "review="+joinAny(f.ReviewTypes))
	}
	if q := strings.TrimSpace(f.Match); q != "" {
		parts = append(parts, fmt.Sprintf("match=%q", q))
	}
	if f.MinPCI != nil || f.MaxPCI != nil {
		lo, hi := "*", "*"
		if f.MinPCI != nil {
			lo = table.FormatFloat(*f.MinPCI)
		}
		if f.MaxPCI != nil {
			hi = table.FormatFloat(*f.MaxPCI)
		}
		parts = append(parts, "pci "+lo+"-"+hi)
	}
	return strings.Join(parts, "; ")
}

func joinAny[T ~string](list []T) string {
	ss := make([]string, len(list))
	for i, v := range list {
		ss[i] = string(v)
	}
	return strings.Join(ss, ",")
}
