package table

import "strings"

// Merge combines two datasets loaded for the same role. When they share
// columns, rows are outer-joined on every shared column: matching rows are
// combined (one output row per match), unmatched rows from both sides are
// kept, left side first. Without shared columns the rows are concatenated.
func Merge(a, b *Dataset) *Dataset {
	switch {
	case a == nil || len(a.Columns) == 0:
		return b.Clone()
	case b == nil || len(b.Columns) == 0:
		return a.Clone()
	}
	name := a.Name
	if b.Name != "" && b.Name != a.Name {
		name = a.Name + "+" + b.Name
	}

	var shared []string
	for _, c := range a.Columns {
		if b.HasColumn(c) {
			shared = append(shared, c)
		}
	}
	cols := append([]string(nil), a.Columns...)
	for _, c := range b.Columns {
		if !a.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	out := &Dataset{Name: name, Columns: cols}

	if len(shared) == 0 {
		for _, r := range a.Rows {
			out.Append(r)
		}
		for _, r := range b.Rows {
			out.Append(r)
		}
		return out
	}

	index := make(map[string][]int, len(b.Rows))
	for i, r := range b.Rows {
		k := joinKey(r, shared)
		index[k] = append(index[k], i)
	}
	used := make([]bool, len(b.Rows))
	for _, ra := range a.Rows {
		matches := index[joinKey(ra, shared)]
		if len(matches) == 0 {
			out.Append(ra)
			continue
		}
		for _, j := range matches {
			used[j] = true
			row := make(Row, len(cols))
			for k, v := range b.Rows[j] {
				row[k] = v
			}
			for k, v := range ra {
				row[k] = v
			}
			out.Append(row)
		}
	}
	for j, rb := range b.Rows {
		if !used[j] {
			out.Append(rb)
		}
	}
	return out
}

func joinKey(r Row, cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		v := r[c]
		parts[i] = v.Kind.String() + ":" + v.Key()
	}
	return strings.Join(parts, "\x1f")
}
