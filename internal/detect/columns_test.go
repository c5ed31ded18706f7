package detect

import (
	"slices"
	"testing"
)

func TestResolveSectionIDPriority(t *testing.T) {
	cases := []struct {
		cols []string
		want string
	}{
		{[]string{"road_name", "SectionID", "section_id"}, "section_id"},
		{[]string{"segment_id", "SECTIONID"}, "SECTIONID"},
		{[]string{"road_name", "segment_id", "section_no"}, "segment_id"},
		{[]string{"Section Name", "pci"}, "Section Name"},
		{[]string{"pci", "survey_date"}, ""},
	}
	for _, c := range cases {
		if got := Resolve(c.cols).SectionID; got != c.want {
			t.Fatalf("Resolve(%v).SectionID = %q, want %q", c.cols, got, c.want)
		}
	}
}

func TestResolvePCIAndLists(t *testing.T) {
	r := Resolve([]string{
		"section_id", "PCI_2019", "Pci", "pci", "Survey_Date", "date_entered",
		"Alligator_Crack", "rutting_mm", "Road_Class", "surface_type", "longitude",
	})
	if r.PCI != "Pci" {
		t.Fatalf("PCI = %q, want first exact case-insensitive match", r.PCI)
	}
	if !slices.Equal(r.Dates, []string{"Survey_Date", "date_entered"}) {
		t.Fatalf("Dates = %v", r.Dates)
	}
	if r.PrimaryDate() != "Survey_Date" {
		t.Fatalf("PrimaryDate = %q", r.PrimaryDate())
	}
	if !slices.Equal(r.Distress, []string{"Alligator_Crack", "rutting_mm"}) {
		t.Fatalf("Distress = %v", r.Distress)
	}
	if !slices.Equal(r.Category, []string{"Road_Class", "surface_type"}) {
		t.Fatalf("Category = %v", r.Category)
	}
}

func TestResolveEmpty(t *testing.T) {
	r := Resolve(nil)
	if r.HasPCI() || r.SectionID != "" || r.PrimaryDate() != "" || len(r.Distress) != 0 || len(r.Category) != 0 {
		t.Fatalf("Resolve(nil) = %+v", r)
	}
}

func TestMaintenanceTypeColumn(t *testing.T) {
	if got := maintenanceTypeColumn([]string{"section_id", "date_completed", "Treatment_Type", "work_order"}); got != "Treatment_Type" {
		t.Fatalf("type column = %q", got)
	}
	if got := maintenanceTypeColumn([]string{"section_id", "date"}); got != "" {
		t.Fatalf("type column = %q, want none", got)
	}
}
