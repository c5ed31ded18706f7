package table

import (
	"fmt"
	"strings"
)

// Row maps a column name to its cell.
type Row map[string]Value

// Dataset is an ordered, in-memory table. Consumers treat it as read-only.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New returns an empty dataset with the given header. Blank and duplicate
// names are made unique ("Unnamed: 2", "pci.1").
func New(name string, columns []string) *Dataset {
	return &Dataset{Name: name, Columns: uniqueColumns(columns)}
}

// FromRecords builds a dataset from a header and raw string records,
// inferring every cell. Short records are padded with missing values.
func FromRecords(name string, header []string, records [][]string, nf NumberFormat) *Dataset {
	d := New(name, header)
	for _, rec := range records {
		d.AppendStrings(rec, nf)
	}
	return d
}

// AppendStrings infers and appends one raw record.
func (d *Dataset) AppendStrings(rec []string, nf NumberFormat) {
	row := make(Row, len(d.Columns))
	for i, c := range d.Columns {
		if i < len(rec) {
			row[c] = Infer(rec[i], nf)
		} else {
			row[c] = Missing()
		}
	}
	d.Rows = append(d.Rows, row)
}

// Append adds a row, keeping only known columns.
func (d *Dataset) Append(r Row) {
	row := make(Row, len(d.Columns))
	for _, c := range d.Columns {
		row[c] = r[c]
	}
	d.Rows = append(d.Rows, row)
}

// Len is the number of rows; a nil dataset has none.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Empty reports whether the dataset has no rows.
func (d *Dataset) Empty() bool { return d.Len() == 0 }

// HasColumn reports whether name is an exact column of d.
func (d *Dataset) HasColumn(name string) bool {
	if d == nil || name == "" {
		return false
	}
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Get returns the cell at row i, column col; absent cells are missing.
func (d *Dataset) Get(i int, col string) Value {
	if i < 0 || i >= d.Len() {
		return Missing()
	}
	return d.Rows[i][col]
}

// Clone copies the dataset so derived columns can be added without touching
// the original.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := &Dataset{Name: d.Name, Columns: append([]string(nil), d.Columns...)}
	out.Rows = make([]Row, len(d.Rows))
	for i, r := range d.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

func uniqueColumns(columns []string) []string {
	out := make([]string, len(columns))
	seen := make(map[string]int, len(columns))
	for i, c := range columns {
		name := strings.TrimSpace(c)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
