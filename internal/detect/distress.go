package detect

import (
	"fmt"
	"slices"
	"strings"

	"github.com/KaramelBytes/pavecheck-cli/internal/table"
)

// DistressRule is one implausible combination of distress measurements.
// Check sees a single row and the resolved distress columns and returns a
// reason when the combination is implausible.
type DistressRule struct {
	Name       string
	ReviewType ReviewType
	Confidence Confidence
	Check      func(row table.Row, distress []string) (reason string, flagged bool)
}

// DistressRules are evaluated in order for every row.
var DistressRules = []DistressRule{
	{
		Name:       "transverse-without-longitudinal",
		ReviewType: ReviewField,
		Confidence: ConfidenceMedium,
		Check:      transverseWithoutLongitudinal,
	},
}

// DistressValue reads a distress measurement. Missing and non-numeric cells
// count as zero.
func DistressValue(row table.Row, col string) float64 {
	if x, ok := row[col].Float(); ok {
		return x
	}
	return 0
}

func transverseWithoutLongitudinal(row table.Row, distress []string) (string, bool) {
	const transverse = "transverse_crack_high"
	const longitudinal = "longitudinal_crack"
	if !slices.Contains(distress, transverse) || !strings.Contains(strings.Join(distress, ""), longitudinal) {
		return "", false
	}
	tv := DistressValue(row, transverse)
	if tv <= 3 {
		return "", false
	}
	var found bool
	var maxLong float64
	for _, c := range distress {
		if !strings.Contains(c, longitudinal) {
			continue
		}
		v := DistressValue(row, c)
		if v >= 1 {
			return "", false
		}
		if !found || v > maxLong {
			maxLong = v
		}
		found = true
	}
	if !found {
		return "", false
	}
	return fmt.Sprintf("Inconsistent distress pattern: high transverse cracking (%s) without longitudinal cracking (max %s)",
		table.FormatFloat(tv), table.FormatFloat(maxLong)), true
}

func (d *Detector) distress(s *scan) []Anomaly {
	cols := s.cur.Distress
	if len(cols) == 0 {
		return nil
	}
	var out []Anomaly
	for i, row := range s.in.Current.Rows {
		for _, r := range DistressRules {
			reason, flagged := r.Check(row, cols)
			if !flagged {
				continue
			}
			out = append(out, Anomaly{
				SectionID:  s.section(i),
				Reason:     reason,
				ReviewType: r.ReviewType,
				Confidence: r.Confidence,
				Rule:       RuleDistress,
				PCI:        s.pci(i),
			})
		}
	}
	return out
}
