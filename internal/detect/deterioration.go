package detect

import (
	"fmt"
	"math"
	"time"

	"github.com/KaramelBytes/pavecheck-cli/internal/table"
)

// deterioration compares the first current and first historical record of
// every section present in both surveys. A loss above MaxDeteriorationRate
// points/year needs a field check. A gain beyond MaxImprovementRate needs a
// desktop check when the maintenance data can be searched for the section and
// holds no record of it; without such data improvements are not judged.
func (d *Detector) deterioration(s *scan) []Anomaly {
	cur, hist := s.in.Current, s.in.Historical
	if !s.sharesHistorical || !s.cur.HasPCI() || !s.hist.HasPCI() {
		return nil
	}
	curDate, histDate := s.cur.PrimaryDate(), s.hist.PrimaryDate()
	if curDate == "" || histDate == "" {
		return nil
	}

	histFirst := firstRowBySection(hist, s.sectionCol)
	var maintained map[string]int
	if s.sharesMaintenance {
		maintained = firstRowBySection(s.in.Maintenance, s.sectionCol)
	}

	var out []Anomaly
	seen := make(map[string]bool)
	for i := range cur.Rows {
		sec := s.section(i)
		key := sec.Key()
		if sec.IsMissing() || seen[key] {
			continue
		}
		seen[key] = true
		j, ok := histFirst[key]
		if !ok {
			continue
		}

		cd, err := cur.Get(i, curDate).Time()
		if err != nil {
			d.log.Warn("date parse failed", "rule", RuleDeterioration, "dataset", "current", "section", key, "column", curDate, "err", err)
			continue
		}
		hd, err := hist.Get(j, histDate).Time()
		if err != nil {
			d.log.Warn("date parse failed", "rule", RuleDeterioration, "dataset", "historical", "section", key, "column", histDate, "err", err)
			continue
		}
		years := yearsBetween(hd, cd, d.th.DaysPerYear)
		if years <= 0 {
			continue
		}
		curPCI, ok1 := cur.Get(i, s.cur.PCI).Float()
		histPCI, ok2 := hist.Get(j, s.hist.PCI).Float()
		if !ok1 || !ok2 {
			continue
		}

		rate := (histPCI - curPCI) / years
		switch {
		case rate > d.th.MaxDeteriorationRate:
			out = append(out, Anomaly{
				SectionID:  sec,
				Reason:     fmt.Sprintf("Excessive deterioration rate: %.1f PCI points/year", rate),
				ReviewType: ReviewField,
				Confidence: ConfidenceHigh,
				Rule:       RuleDeterioration,
				PCI:        table.Number(curPCI),
			})
		case rate < d.th.MaxImprovementRate:
			if !s.sharesMaintenance {
				continue
			}
			if _, has := maintained[key]; has {
				continue
			}
			out = append(out, Anomaly{
				SectionID:  sec,
				Reason:     fmt.Sprintf("PCI improved by %.1f points/year without recorded maintenance", -rate),
				ReviewType: ReviewDesktop,
				Confidence: ConfidenceHigh,
				Rule:       RuleDeterioration,
				PCI:        table.Number(curPCI),
			})
		}
	}
	return out
}

// firstRowBySection maps each section key to its first row index.
func firstRowBySection(ds *table.Dataset, col string) map[string]int {
	out := make(map[string]int, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		v := ds.Get(i, col)
		if v.IsMissing() {
			continue
		}
		if _, ok := out[v.Key()]; !ok {
			out[v.Key()] = i
		}
	}
	return out
}

// yearsBetween counts whole elapsed days from a to b in years.
func yearsBetween(a, b time.Time, daysPerYear float64) float64 {
	days := math.Floor(b.Sub(a).Hours() / 24)
	return days / daysPerYear
}
