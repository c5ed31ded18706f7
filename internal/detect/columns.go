package detect

import "strings"

// Keyword sets used to recognize column roles by name.
var (
	DistressKeywords = []string{
		"crack", "rut", "pothole", "patch", "bleed", "rail", "swell",
		"raveling", "weathering", "aggregate", "distress",
	}
	CategoryKeywords        = []string{"class", "category", "function", "type"}
	SectionIDKeywords       = []string{"id", "section"}
	DateKeyword             = "date"
	PCIColumn               = "pci"
	MaintenanceTypeKeywords = []string{"type", "work"}
)

// Roles is the resolved role of each column in one dataset.
// An empty SectionID means the row sequence index identifies sections.
// An empty PCI means no PCI column was found.
type Roles struct {
	SectionID string   `json:"section_id"`
	PCI       string   `json:"pci"`
	Dates     []string `json:"dates"`
	Distress  []string `json:"distress"`
	Category  []string `json:"category"`
}

// HasPCI reports whether a PCI column resolved.
func (r Roles) HasPCI() bool { return r.PCI != "" }

// PrimaryDate is the first date column, or "".
func (r Roles) PrimaryDate() string {
	if len(r.Dates) == 0 {
		return ""
	}
	return r.Dates[0]
}

// Resolve assigns roles from column names alone. It never fails; missing
// roles stay empty.
func Resolve(columns []string) Roles {
	var r Roles
	r.SectionID = resolveSectionID(columns)
	for _, c := range columns {
		lc := strings.ToLower(c)
		if r.PCI == "" && lc == PCIColumn {
			r.PCI = c
		}
		if strings.Contains(lc, DateKeyword) {
			r.Dates = append(r.Dates, c)
		}
		if containsAny(lc, DistressKeywords) {
			r.Distress = append(r.Distress, c)
		}
		if containsAny(lc, CategoryKeywords) {
			r.Category = append(r.Category, c)
		}
	}
	return r
}

func resolveSectionID(columns []string) string {
	for _, c := range columns {
		if c == "section_id" {
			return c
		}
	}
	for _, c := range columns {
		if strings.EqualFold(c, "sectionid") {
			return c
		}
	}
	for _, c := range columns {
		if containsAny(strings.ToLower(c), SectionIDKeywords) {
			return c
		}
	}
	return ""
}

// maintenanceTypeColumn is the first column naming a treatment type or work item.
func maintenanceTypeColumn(columns []string) string {
	for _, c := range columns {
		if containsAny(strings.ToLower(c), MaintenanceTypeKeywords) {
			return c
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
