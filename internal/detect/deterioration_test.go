package detect

import (
	"bytes"
	"strings"
	"testing"

	"github.com/KaramelBytes/pavecheck-cli/internal/table"
)

var survey = []string{"section_id", "pci", "survey_date"}

func TestDeteriorationThreshold(t *testing.T) {
	// 2020-01-01 to 2022-01-01 is 731 days, just over two years.
	cur := ds(survey, []string{"1", "40", "2022-01-01"})
	at := ds(survey, []string{"1", "70", "2020-01-01"})
	if got := onlyRule(detect(t, quiet(), Input{Current: cur, Historical: at}), RuleDeterioration); len(got) != 0 {
		t.Fatalf("15 points/year must not be flagged: %+v", got)
	}

	over := ds(survey, []string{"1", "71", "2020-01-01"})
	got := onlyRule(detect(t, quiet(), Input{Current: cur, Historical: over}), RuleDeterioration)
	if len(got) != 1 {
		t.Fatalf("anomalies = %+v, want 1", got)
	}
	a := got[0]
	if a.ReviewType != ReviewField || a.Confidence != ConfidenceHigh {
		t.Fatalf("anomaly = %+v", a)
	}
	if a.Reason != "Excessive deterioration rate: 15.5 PCI points/year" {
		t.Fatalf("reason = %q", a.Reason)
	}
}

func TestDeteriorationExactlyAtThreshold(t *testing.T) {
	// With 365.5 days per year, 731 days is exactly two years.
	d := quiet(WithThresholds(Thresholds{DaysPerYear: 365.5}))
	cur := ds(survey, []string{"1", "40", "2022-01-01"})
	hist := ds(survey, []string{"1", "70", "2020-01-01"})
	if got := onlyRule(detect(t, d, Input{Current: cur, Historical: hist}), RuleDeterioration); len(got) != 0 {
		t.Fatalf("rate of exactly 15 flagged: %+v", got)
	}
}

func TestDeteriorationImprovementWithoutMaintenance(t *testing.T) {
	cur := ds(survey, []string{"1", "90", "2023-01-01"}, []string{"2", "60", "2023-01-01"})
	hist := ds(survey, []string{"1", "80", "2022-01-01"})
	other := ds(maintHeader, []string{"9", "2022-06-01", "Overlay"})

	got := onlyRule(detect(t, quiet(), Input{Current: cur, Historical: hist, Maintenance: other}), RuleDeterioration)
	if len(got) != 1 {
		t.Fatalf("anomalies = %+v, want 1", got)
	}
	a := got[0]
	if a.ReviewType != ReviewDesktop || a.Confidence != ConfidenceHigh {
		t.Fatalf("anomaly = %+v", a)
	}
	if !strings.Contains(a.Reason, "improved by 10.0 points/year") {
		t.Fatalf("reason = %q", a.Reason)
	}
	if f, ok := a.PCI.Float(); !ok || f != 90 {
		t.Fatalf("pci = %v", a.PCI)
	}

	maint := ds(maintHeader, []string{"1", "2022-06-01", "Crack Seal"})
	got = onlyRule(detect(t, quiet(), Input{Current: cur, Historical: hist, Maintenance: maint}), RuleDeterioration)
	if len(got) != 0 {
		t.Fatalf("improvement explained by maintenance was flagged: %+v", got)
	}
}

func TestDeteriorationImprovementNeedsSearchableMaintenance(t *testing.T) {
	cur := ds(survey, []string{"1", "90", "2023-01-01"})
	hist := ds(survey, []string{"1", "80", "2022-01-01"})
	cases := map[string]*table.Dataset{
		"absent":            nil,
		"empty":             ds(maintHeader),
		"no section column": ds([]string{"segment", "date_completed", "treatment_type"}, []string{"9", "2022-06-01", "Overlay"}),
	}
	for name, maint := range cases {
		in := Input{Current: cur, Historical: hist, Maintenance: maint}
		if got := onlyRule(detect(t, quiet(), in), RuleDeterioration); len(got) != 0 {
			t.Fatalf("%s maintenance: improvement flagged: %+v", name, got)
		}
	}
}

func TestDeteriorationResolvesEachDataset(t *testing.T) {
	cur := ds([]string{"section_id", "pci", "survey_date"}, []string{"S1", "40", "2023-01-01"})
	hist := ds([]string{"section_id", "PCI", "Inspection Date"}, []string{"S1", "80", "2022-01-01"})
	got := onlyRule(detect(t, quiet(), Input{Current: cur, Historical: hist}), RuleDeterioration)
	if len(got) != 1 || got[0].SectionID.Key() != "S1" {
		t.Fatalf("anomalies = %+v", got)
	}
}

func TestDeteriorationUsesFirstRowPerSection(t *testing.T) {
	cur := ds(survey, []string{"1", "60", "2023-01-01"}, []string{"1", "10", "2023-01-01"})
	hist := ds(survey, []string{"1", "65", "2022-01-01"}, []string{"1", "99", "2022-01-01"})
	if got := onlyRule(detect(t, quiet(), Input{Current: cur, Historical: hist}), RuleDeterioration); len(got) != 0 {
		t.Fatalf("later rows must be ignored: %+v", got)
	}
}

func TestDeteriorationSkipsUnparseableDates(t *testing.T) {
	var buf bytes.Buffer
	cur := ds(survey,
		[]string{"1", "40", "sometime in spring"},
		[]string{"2", "40", "2023-01-01"},
	)
	hist := ds(survey,
		[]string{"1", "90", "2022-01-01"},
		[]string{"2", "90", "2022-01-01"},
	)
	got := onlyRule(detect(t, capture(&buf), Input{Current: cur, Historical: hist}), RuleDeterioration)
	if len(got) != 1 || got[0].SectionID.Key() != "2" {
		t.Fatalf("anomalies = %+v", got)
	}
	if !strings.Contains(buf.String(), "date parse failed") || !strings.Contains(buf.String(), "section=1") {
		t.Fatalf("expected parse failure log, got: %s", buf.String())
	}
}

func TestDeteriorationSkipsNonPositiveIntervals(t *testing.T) {
	cur := ds(survey, []string{"1", "10", "2022-01-01"})
	hist := ds(survey, []string{"1", "90", "2023-01-01"})
	if got := onlyRule(detect(t, quiet(), Input{Current: cur, Historical: hist}), RuleDeterioration); len(got) != 0 {
		t.Fatalf("anomalies = %+v", got)
	}
}

func TestDeteriorationPreconditions(t *testing.T) {
	cur := ds(survey, []string{"1", "10", "2023-01-01"})
	noDate := ds([]string{"section_id", "pci"}, []string{"1", "90"})
	otherKey := ds([]string{"segment", "pci", "survey_date"}, []string{"1", "90", "2022-01-01"})
	for name, in := range map[string]Input{
		"no historical date": {Current: cur, Historical: noDate},
		"no shared section":  {Current: cur, Historical: otherKey},
		"no historical":      {Current: cur},
	} {
		if got := onlyRule(detect(t, quiet(), in), RuleDeterioration); len(got) != 0 {
			t.Fatalf("%s: anomalies = %+v", name, got)
		}
	}
}

func TestDeteriorationKeepsZeroPaddedSectionIDs(t *testing.T) {
	cur := ds(survey, []string{"007", "40", "2023-01-01"})
	unpadded := ds(survey, []string{"7", "80", "2022-01-01"})
	if got := onlyRule(detect(t, quiet(), Input{Current: cur, Historical: unpadded}), RuleDeterioration); len(got) != 0 {
		t.Fatalf("007 and 7 matched as one section: %+v", got)
	}

	padded := ds(survey, []string{"007", "80", "2022-01-01"})
	got := onlyRule(detect(t, quiet(), Input{Current: cur, Historical: padded}), RuleDeterioration)
	if len(got) != 1 || got[0].SectionID.String() != "007" {
		t.Fatalf("anomalies = %+v", got)
	}
}
