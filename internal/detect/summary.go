package detect

import "math"

// Summary is the headline of an analysis as shown to analysts.
type Summary struct {
	TotalSections    int                `json:"total_sections"`
	AnomaliesCount   int                `json:"anomalies_count"`
	FlaggedSections  int                `json:"flagged_sections"`
	ReviewPercentage float64            `json:"review_percentage"`
	ByReviewType     map[ReviewType]int `json:"by_review_type"`
	ByConfidence     map[Confidence]int `json:"by_confidence"`
	ByRule           map[string]int     `json:"by_rule"`
}

// Summarize counts anomalies against the number of current rows. The
// review percentage is anomalies per row, rounded to two decimals.
func Summarize(totalSections int, anomalies []Anomaly) Summary {
	s := Summary{
		TotalSections:  totalSections,
		AnomaliesCount: len(anomalies),
		ByReviewType:   map[ReviewType]int{},
		ByConfidence:   map[Confidence]int{},
		ByRule:         map[string]int{},
	}
	flagged := map[string]struct{}{}
	for _, a := range anomalies {
		s.ByReviewType[a.ReviewType]++
		s.ByConfidence[a.Confidence]++
		s.ByRule[a.Rule]++
		flagged[a.SectionID.Key()] = struct{}{}
	}
	s.FlaggedSections = len(flagged)
	if totalSections > 0 {
		s.ReviewPercentage = math.Round(float64(len(anomalies))/float64(totalSections)*100*100) / 100
	}
	return s
}
