package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KaramelBytes/pavecheck-cli/internal/logging"
	"github.com/KaramelBytes/pavecheck-cli/internal/table"
)

// ErrNoCurrentData is returned when the current survey has no rows.
var ErrNoCurrentData = errors.New("no data to analyze")

// Input bundles the datasets of one analysis. Historical and Maintenance may be nil.
type Input struct {
	Current      *table.Dataset
	Historical   *table.Dataset
	Maintenance  *table.Dataset
	ManualRanges ManualRanges
}

// Result is the outcome of Detect: anomalies in rule order, plus what was
// resolved for each dataset and why any rule was skipped.
type Result struct {
	Anomalies   []Anomaly
	Sections    int
	Current     Roles
	Historical  Roles
	Maintenance Roles
	Notes       []string
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger injects the logger used for per-row parse failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithThresholds overrides the rule constants; zero fields keep their defaults.
func WithThresholds(t Thresholds) Option {
	return func(d *Detector) { d.th = t.withDefaults() }
}

// Detector runs the anomaly rules. It holds no per-analysis state and is
// safe for concurrent use.
type Detector struct {
	log   *slog.Logger
	th    Thresholds
	rules []rule
}

type rule struct {
	name string
	run  func(*Detector, *scan) []Anomaly
}

// New returns a Detector with the standard rule order:
// outliers, distress, deterioration, maintenance.
func New(opts ...Option) *Detector {
	d := &Detector{
		log: logging.New("detect"),
		th:  DefaultThresholds(),
		rules: []rule{
			{RuleOutlier, (*Detector).outliers},
			{RuleDistress, (*Detector).distress},
			{RuleDeterioration, (*Detector).deterioration},
			{RuleMaintenance, (*Detector).maintenance},
		},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Thresholds returns the effective rule constants.
func (d *Detector) Thresholds() Thresholds { return d.th }

// scan is the per-call view shared by the rules.
type scan struct {
	in Input
	// section column of the current dataset; "" means row index
	sectionCol        string
	cur, hist, maint  Roles
	sharesHistorical  bool
	sharesMaintenance bool
}

// section returns the section identifier of current row i.
func (s *scan) section(i int) table.Value {
	if s.sectionCol == "" {
		return table.Number(float64(i))
	}
	return s.in.Current.Get(i, s.sectionCol)
}

// pci returns the numeric PCI of current row i, or a missing value.
func (s *scan) pci(i int) table.Value {
	if !s.cur.HasPCI() {
		return table.Missing()
	}
	if x, ok := s.in.Current.Get(i, s.cur.PCI).Float(); ok {
		return table.Number(x)
	}
	return table.Missing()
}

// Detect runs every rule against in and concatenates their anomalies in
// rule order. A rule that panics is logged and contributes nothing.
func (d *Detector) Detect(ctx context.Context, in Input) (*Result, error) {
	if in.Current.Empty() {
		return nil, ErrNoCurrentData
	}
	s := &scan{in: in}
	s.cur = Resolve(in.Current.Columns)
	s.sectionCol = s.cur.SectionID
	if in.Historical != nil {
		s.hist = Resolve(in.Historical.Columns)
	}
	if in.Maintenance != nil {
		s.maint = Resolve(in.Maintenance.Columns)
	}
	s.sharesHistorical = !in.Historical.Empty() && in.Historical.HasColumn(s.sectionCol)
	s.sharesMaintenance = !in.Maintenance.Empty() && in.Maintenance.HasColumn(s.sectionCol)

	res := &Result{
		Sections:    in.Current.Len(),
		Current:     s.cur,
		Historical:  s.hist,
		Maintenance: s.maint,
		Notes:       d.notes(s),
	}
	for _, r := range d.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if (r.name == RuleDeterioration && !s.sharesHistorical) || (r.name == RuleMaintenance && !s.sharesMaintenance) {
			continue
		}
		res.Anomalies = append(res.Anomalies, d.runRule(r, s)...)
	}
	return res, nil
}

func (d *Detector) runRule(r rule, s *scan) (out []Anomaly) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error("rule panicked", "rule", r.name, "panic", fmt.Sprint(p))
			out = nil
		}
	}()
	return r.run(d, s)
}

func (d *Detector) notes(s *scan) []string {
	var notes []string
	col := s.sectionCol
	if col == "" {
		notes = append(notes, "no section id column found in current data; row numbers identify sections")
		col = "(row index)"
	}
	if !s.cur.HasPCI() {
		notes = append(notes, "no PCI column found in current data; outlier, deterioration and maintenance checks skipped")
	}
	switch {
	case s.in.Historical.Empty():
		notes = append(notes, "no historical data; deterioration check skipped")
	case !s.sharesHistorical:
		notes = append(notes, fmt.Sprintf("historical data has no %q column; deterioration check skipped", col))
	case !s.hist.HasPCI() || s.hist.PrimaryDate() == "" || s.cur.PrimaryDate() == "":
		notes = append(notes, "deterioration check needs PCI and date columns in both current and historical data")
	}
	switch {
	case s.in.Maintenance.Empty():
		notes = append(notes, "no maintenance data; maintenance and unexplained improvement checks skipped")
	case !s.sharesMaintenance:
		notes = append(notes, fmt.Sprintf("maintenance data has no %q column; maintenance and unexplained improvement checks skipped", col))
	case s.maint.PrimaryDate() == "":
		notes = append(notes, "maintenance data has no date column; maintenance check skipped")
	case maintenanceTypeColumn(s.in.Maintenance.Columns) == "":
		notes = append(notes, "maintenance data has no type/work column; maintenance check skipped")
	}
	return notes
}
