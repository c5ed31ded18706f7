package detect

import "github.com/KaramelBytes/pavecheck-cli/internal/table"

// ReviewType says how an anomaly should be verified.
type ReviewType string

const (
	// ReviewField warrants a physical re-inspection of the section.
	ReviewField ReviewType = "field"
	// ReviewDesktop can be settled by checking records.
	ReviewDesktop ReviewType = "desktop"
)

// Confidence grades how likely a flag is a genuine data error.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rule names, in evaluation order.
const (
	RuleOutlier       = "outlier"
	RuleDistress      = "distress"
	RuleDeterioration = "deterioration"
	RuleMaintenance   = "maintenance"
)

// Anomaly is one flagged section. A section may be flagged several times.
// PCI is the current-survey value that triggered the flag, missing when the
// survey has no usable PCI for the row.
type Anomaly struct {
	SectionID  table.Value `json:"section_id"`
	Reason     string      `json:"reason"`
	ReviewType ReviewType  `json:"review_type"`
	Confidence Confidence  `json:"confidence"`
	Rule       string      `json:"rule"`
	PCI        table.Value `json:"pci"`
}
