package table

import (
	"math"
	"sort"
)

// ColumnProfile captures the predominant type and basic statistics of a column.
type ColumnProfile struct {
	Name    string
	Kind    Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
}

// Profile summarizes every column of d in column order.
func Profile(d *Dataset) []ColumnProfile {
	if d == nil {
		return nil
	}
	out := make([]ColumnProfile, 0, len(d.Columns))
	for _, c := range d.Columns {
		p := ColumnProfile{Name: c, Min: math.Inf(1), Max: math.Inf(-1)}
		counts := map[Kind]int{}
		distinct := map[string]struct{}{}
		// Welford
		var n int
		var mean, m2 float64
		for _, r := range d.Rows {
			v := r[c]
			if v.IsMissing() {
				p.Missing++
				continue
			}
			p.NonNull++
			counts[v.Kind]++
			distinct[v.Key()] = struct{}{}
			if x, ok := v.Float(); ok {
				n++
				if x < p.Min {
					p.Min = x
				}
				if x > p.Max {
					p.Max = x
				}
				delta := x - mean
				mean += delta / float64(n)
				m2 += delta * (x - mean)
			}
		}
		p.Kind = predominant(counts)
		p.Unique = len(distinct)
		if n > 0 {
			p.Mean = mean
			if n > 1 {
				p.Std = math.Sqrt(m2 / float64(n-1))
			}
		} else {
			p.Min, p.Max = 0, 0
		}
		out = append(out, p)
	}
	return out
}

func predominant(counts map[Kind]int) Kind {
	if len(counts) == 0 {
		return KindMissing
	}
	kinds := make([]Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	// ties resolve toward the lower Kind (numeric before text before dates)
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] == counts[kinds[j]] {
			return kinds[i] < kinds[j]
		}
		return counts[kinds[i]] > counts[kinds[j]]
	})
	return kinds[0]
}
