package detect

import (
	"strconv"
	"strings"
	"testing"
)

func pciRows(values ...string) [][]string {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{strconv.Itoa(i + 1), v}
	}
	return rows
}

func TestPCIBounds(t *testing.T) {
	b, ok := PCIBounds([]float64{90, 10, 40, 45, 50, 55, 60}, DefaultThresholds())
	if !ok {
		t.Fatal("expected bounds")
	}
	if b.Q1 != 42.5 || b.Q3 != 57.5 || b.IQR != 15 {
		t.Fatalf("quartiles = %+v", b)
	}
	if b.Lower != 20 || b.Upper != 80 || b.ExtLower != 12.5 || b.ExtUpper != 87.5 {
		t.Fatalf("fences = %+v", b)
	}
	if _, ok := PCIBounds(nil, DefaultThresholds()); ok {
		t.Fatal("empty input should not produce bounds")
	}
}

func TestOutliersFlagsBothTails(t *testing.T) {
	cur := ds([]string{"section_id", "pci"}, pciRows("10", "40", "45", "50", "55", "60", "90")...)
	got := detect(t, quiet(), Input{Current: cur})
	if len(got) != 2 {
		t.Fatalf("anomalies = %+v, want 2", got)
	}
	if got[0].SectionID.Key() != "1" || got[1].SectionID.Key() != "7" {
		t.Fatalf("sections = %v, %v", got[0].SectionID, got[1].SectionID)
	}
	for _, a := range got {
		if a.ReviewType != ReviewDesktop || a.Confidence != ConfidenceHigh || a.Rule != RuleOutlier {
			t.Fatalf("anomaly = %+v", a)
		}
	}
	if got[0].Reason != "PCI value (10) is outside normal range (20.0-80.0)" {
		t.Fatalf("reason = %q", got[0].Reason)
	}
}

func TestOutliersMediumBetweenFences(t *testing.T) {
	cur := ds([]string{"section_id", "pci"}, pciRows("10", "40", "45", "50", "55", "60", "85")...)
	got := detect(t, quiet(), Input{Current: cur})
	if len(got) != 2 {
		t.Fatalf("anomalies = %+v", got)
	}
	if got[0].Confidence != ConfidenceHigh || got[1].Confidence != ConfidenceMedium {
		t.Fatalf("confidences = %s, %s", got[0].Confidence, got[1].Confidence)
	}
}

func TestOutliersNoneInsideBounds(t *testing.T) {
	cur := ds([]string{"section_id", "pci"}, pciRows("40", "45", "50", "55", "60", "", "n/a", "good")...)
	if got := detect(t, quiet(), Input{Current: cur}); len(got) != 0 {
		t.Fatalf("anomalies = %+v, want none", got)
	}
}

func TestOutliersManualRanges(t *testing.T) {
	cur := ds([]string{"section_id", "pci"}, pciRows("10", "40", "45", "50", "55", "60", "90")...)
	ranges := ManualRanges{}
	for sec, m := range map[string]ManualRange{
		"1": {Min: 20, Max: 80}, // outlier and outside band: field
		"7": {Min: 0, Max: 100}, // outlier but inside band: suppressed
		"2": {Min: 45, Max: 80}, // outside band but not a statistical outlier
	} {
		if err := ranges.Set(sec, m); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	got := detect(t, quiet(), Input{Current: cur, ManualRanges: ranges})
	if len(got) != 1 {
		t.Fatalf("anomalies = %+v, want 1", got)
	}
	a := got[0]
	if a.SectionID.Key() != "1" || a.ReviewType != ReviewField || a.Confidence != ConfidenceHigh {
		t.Fatalf("anomaly = %+v", a)
	}
	if a.Reason != "PCI value (10) is outside manual review range (20-80)" {
		t.Fatalf("reason = %q", a.Reason)
	}
}

func TestOutliersWithoutPCIColumn(t *testing.T) {
	cur := ds([]string{"section_id", "condition"}, pciRows("10", "50", "90")...)
	if got := detect(t, quiet(), Input{Current: cur}); len(got) != 0 {
		t.Fatalf("anomalies = %+v", got)
	}
}

func TestOutliersRowIndexSections(t *testing.T) {
	cur := ds([]string{"pci"}, []string{"10"}, []string{"40"}, []string{"45"}, []string{"50"}, []string{"55"}, []string{"60"}, []string{"90"})
	got := detect(t, quiet(), Input{Current: cur})
	if len(got) != 2 || got[0].SectionID.Key() != "0" || got[1].SectionID.Key() != "6" {
		t.Fatalf("anomalies = %+v", got)
	}
	if !strings.Contains(got[1].Reason, "(90)") {
		t.Fatalf("reason = %q", got[1].Reason)
	}
}
