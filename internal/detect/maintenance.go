package detect

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/pavecheck-cli/internal/table"
)

// maintenance flags sections whose latest major treatment, recorded within
// MaintenanceWindowYears before the survey, did not lift PCI to the
// expected level.
func (d *Detector) maintenance(s *scan) []Anomaly {
	cur, maint := s.in.Current, s.in.Maintenance
	if !s.sharesMaintenance || !s.cur.HasPCI() {
		return nil
	}
	maintDate, curDate := s.maint.PrimaryDate(), s.cur.PrimaryDate()
	if maintDate == "" || curDate == "" {
		return nil
	}
	typeCol := maintenanceTypeColumn(maint.Columns)
	if typeCol == "" {
		return nil
	}

	bySection := make(map[string][]int)
	for j := range maint.Rows {
		v := maint.Get(j, s.sectionCol)
		if v.IsMissing() {
			continue
		}
		bySection[v.Key()] = append(bySection[v.Key()], j)
	}

	var out []Anomaly
	for i := range cur.Rows {
		sec := s.section(i)
		rows := bySection[sec.Key()]
		if sec.IsMissing() || len(rows) == 0 {
			continue
		}
		surveyed, err := cur.Get(i, curDate).Time()
		if err != nil {
			d.log.Warn("maintenance date parse failed", "dataset", "current", "section", sec.Key(), "column", curDate, "err", err)
			continue
		}
		latest, idx, ok, err := latestTreatment(maint, rows, maintDate)
		if err != nil {
			d.log.Warn("maintenance date parse failed", "dataset", "maintenance", "section", sec.Key(), "column", maintDate, "err", err)
			continue
		}
		if !ok || latest.After(surveyed) || yearsBetween(latest, surveyed, d.th.DaysPerYear) > d.th.MaintenanceWindowYears {
			continue
		}

		treatment := maint.Get(idx, typeCol).String()
		pci, ok := cur.Get(i, s.cur.PCI).Float()
		if !ok || pci >= d.th.ExpectedPCIAfterTreatment || !isMajorTreatment(treatment, d.th.MajorTreatments) {
			continue
		}
		out = append(out, Anomaly{
			SectionID: sec,
			Reason: fmt.Sprintf("Recent %s but PCI only %s. Expected > %s",
				treatment, table.FormatFloat(pci), table.FormatFloat(d.th.ExpectedPCIAfterTreatment)),
			ReviewType: ReviewField,
			Confidence: ConfidenceHigh,
			Rule:       RuleMaintenance,
			PCI:        table.Number(pci),
		})
	}
	return out
}

// latestTreatment returns the maximum date among rows and the first row
// holding it. Missing dates are ignored; any unparseable date is an error.
func latestTreatment(maint *table.Dataset, rows []int, col string) (time.Time, int, bool, error) {
	var best time.Time
	bestIdx := -1
	for _, j := range rows {
		v := maint.Get(j, col)
		if v.IsMissing() {
			continue
		}
		t, err := v.Time()
		if err != nil {
			return time.Time{}, -1, false, err
		}
		if bestIdx < 0 || t.After(best) {
			best, bestIdx = t, j
		}
	}
	return best, bestIdx, bestIdx >= 0, nil
}

func isMajorTreatment(treatment string, major []string) bool {
	lt := strings.ToLower(treatment)
	for _, m := range major {
		if strings.Contains(lt, m) {
			return true
		}
	}
	return false
}
