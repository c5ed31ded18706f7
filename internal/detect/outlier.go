package detect

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/pavecheck-cli/internal/table"
)

// Bounds are the quartile fences of the PCI distribution.
type Bounds struct {
	Q1, Q3   float64
	IQR      float64
	Lower    float64
	Upper    float64
	ExtLower float64
	ExtUpper float64
}

// PCIBounds computes the IQR fences of values; ok is false when empty.
func PCIBounds(values []float64, th Thresholds) (Bounds, bool) {
	if len(values) == 0 {
		return Bounds{}, false
	}
	th = th.withDefaults()
	cp := make([]float64, len(values))
	copy(cp, values)
	sort.Float64s(cp)
	var b Bounds
	b.Q1 = quantile(cp, 0.25)
	b.Q3 = quantile(cp, 0.75)
	b.IQR = b.Q3 - b.Q1
	b.Lower = b.Q1 - th.IQRMultiplier*b.IQR
	b.Upper = b.Q3 + th.IQRMultiplier*b.IQR
	b.ExtLower = b.Q1 - th.ExtendedIQRMultiplier*b.IQR
	b.ExtUpper = b.Q3 + th.ExtendedIQRMultiplier*b.IQR
	return b, true
}

// outliers flags PCI values outside the IQR fences. A section with a manual
// range is flagged only if the value also falls outside that range; the
// manual check never runs for values inside the statistical fences.
func (d *Detector) outliers(s *scan) []Anomaly {
	pciCol := s.cur.PCI
	if pciCol == "" {
		return nil
	}
	cur := s.in.Current
	var values []float64
	for i := range cur.Rows {
		if x, ok := cur.Get(i, pciCol).Float(); ok {
			values = append(values, x)
		}
	}
	b, ok := PCIBounds(values, d.th)
	if !ok {
		return nil
	}

	var out []Anomaly
	for i := range cur.Rows {
		pci, ok := cur.Get(i, pciCol).Float()
		if !ok || (pci >= b.Lower && pci <= b.Upper) {
			continue
		}
		sec := s.section(i)
		if m, has := s.in.ManualRanges.Lookup(sec); has {
			if !m.Contains(pci) {
				out = append(out, Anomaly{
					SectionID:  sec,
					Reason:     fmt.Sprintf("PCI value (%s) is outside manual review range (%s)", table.FormatFloat(pci), m),
					ReviewType: ReviewField,
					Confidence: ConfidenceHigh,
					Rule:       RuleOutlier,
					PCI:        table.Number(pci),
				})
			}
			continue
		}
		conf := ConfidenceMedium
		if pci < b.ExtLower || pci > b.ExtUpper {
			conf = ConfidenceHigh
		}
		out = append(out, Anomaly{
			SectionID:  sec,
			Reason:     fmt.Sprintf("PCI value (%s) is outside normal range (%.1f-%.1f)", table.FormatFloat(pci), b.Lower, b.Upper),
			ReviewType: ReviewDesktop,
			Confidence: conf,
			Rule:       RuleOutlier,
			PCI:        table.Number(pci),
		})
	}
	return out
}

// quantile interpolates linearly between order statistics of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
