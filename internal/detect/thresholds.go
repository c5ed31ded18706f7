package detect

// Thresholds holds the tunable constants of every rule.
type Thresholds struct {
	// IQRMultiplier sets the statistical outlier fence: [Q1-k*IQR, Q3+k*IQR].
	IQRMultiplier float64
	// ExtendedIQRMultiplier sets the fence beyond which an outlier is high confidence.
	ExtendedIQRMultiplier float64
	// MaxDeteriorationRate is the PCI points lost per year above which a section is flagged.
	MaxDeteriorationRate float64
	// MaxImprovementRate is the (negative) annual change below which an
	// improvement needs a maintenance record to explain it. Zero or a
	// positive value means unset.
	MaxImprovementRate float64
	// MaintenanceWindowYears bounds how recent a treatment must be to be checked.
	MaintenanceWindowYears float64
	// ExpectedPCIAfterTreatment is the minimum PCI after a major treatment.
	ExpectedPCIAfterTreatment float64
	DaysPerYear               float64
	// MajorTreatments are lowercase substrings of maintenance types that should
	// leave a section in near-new condition.
	MajorTreatments []string
}

// DefaultThresholds returns the standard rule constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		IQRMultiplier:             1.5,
		ExtendedIQRMultiplier:     2.0,
		MaxDeteriorationRate:      15,
		MaxImprovementRate:        -5,
		MaintenanceWindowYears:    2,
		ExpectedPCIAfterTreatment: 85,
		DaysPerYear:               365.25,
		MajorTreatments:           []string{"rehabilitation", "overlay", "reconstruction", "mill and fill"},
	}
}

// withDefaults fills unset fields so a partially populated Thresholds is usable.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.IQRMultiplier <= 0 {
		t.IQRMultiplier = d.IQRMultiplier
	}
	if t.ExtendedIQRMultiplier <= 0 {
		t.ExtendedIQRMultiplier = d.ExtendedIQRMultiplier
	}
	if t.MaxDeteriorationRate <= 0 {
		t.MaxDeteriorationRate = d.MaxDeteriorationRate
	}
	if t.MaxImprovementRate >= 0 {
		t.MaxImprovementRate = d.MaxImprovementRate
	}
	if t.MaintenanceWindowYears <= 0 {
		t.MaintenanceWindowYears = d.MaintenanceWindowYears
	}
	if t.ExpectedPCIAfterTreatment <= 0 {
		t.ExpectedPCIAfterTreatment = d.ExpectedPCIAfterTreatment
	}
	if t.DaysPerYear <= 0 {
		t.DaysPerYear = d.DaysPerYear
	}
	if len(t.MajorTreatments) == 0 {
		t.MajorTreatments = d.MajorTreatments
	}
	return t
}
