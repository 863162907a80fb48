// Package dataset holds the in-memory tabular structure passed between
// pipeline stages: ordered named columns whose values are aligned by row.
package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Column is a named sequence of values.
type Column struct {
	Name   string
	Values []Value
}

// Dataset is an ordered set of equally long columns. Operations never
// modify the receiver; they return a new Dataset.
type Dataset struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New builds an empty dataset with the given column names.
func New(names ...string) *Dataset {
	ds := &Dataset{index: make(map[string]int, len(names))}
	for _, n := range names {
		ds.index[n] = len(ds.columns)
		ds.columns = append(ds.columns, Column{Name: n})
	}
	return ds
}

// FromColumns builds a dataset from prepared columns. All columns must
// have the same length and distinct names.
func FromColumns(cols ...Column) (*Dataset, error) {
	ds := &Dataset{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := ds.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			ds.rows = len(c.Values)
		} else if len(c.Values) != ds.rows {
			return nil, fmt.Errorf("column %q has %d values, expected %d", c.Name, len(c.Values), ds.rows)
		}
		ds.index[c.Name] = i
		ds.columns = append(ds.columns, Column{Name: c.Name, Values: c.Values})
	}
	return ds, nil
}

// Append adds a row. It is only meant for builders that own the dataset
// before it is handed to another component.
func (ds *Dataset) Append(row ...Value) error {
	if len(row) != len(ds.columns) {
		return fmt.Errorf("row has %d values, dataset has %d columns", len(row), len(ds.columns))
	}
	for i := range ds.columns {
		ds.columns[i].Values = append(ds.columns[i].Values, row[i])
	}
	ds.rows++
	return nil
}

// AppendMap adds a row from a name→value map; missing names become Null.
func (ds *Dataset) AppendMap(row map[string]Value) {
	for i := range ds.columns {
		ds.columns[i].Values = append(ds.columns[i].Values, row[ds.columns[i].Name])
	}
	ds.rows++
}

func (ds *Dataset) Len() int { return ds.rows }

func (ds *Dataset) Width() int { return len(ds.columns) }

// Names returns the column names in order.
func (ds *Dataset) Names() []string {
	names := make([]string, len(ds.columns))
	for i, c := range ds.columns {
		names[i] = c.Name
	}
	return names
}

func (ds *Dataset) Has(name string) bool {
	_, ok := ds.index[name]
	return ok
}

// Column returns the values of a column. The returned slice must not be modified.
func (ds *Dataset) Column(name string) ([]Value, bool) {
	i, ok := ds.index[name]
	if !ok {
		return nil, false
	}
	return ds.columns[i].Values, true
}

// Get returns a single cell; unknown columns read as Null.
func (ds *Dataset) Get(row int, name string) Value {
	i, ok := ds.index[name]
	if !ok {
		return Null
	}
	return ds.columns[i].Values[row]
}

// Row returns a copy of row i in column order.
func (ds *Dataset) Row(i int) []Value {
	out := make([]Value, len(ds.columns))
	for c := range ds.columns {
		out[c] = ds.columns[c].Values[i]
	}
	return out
}

// RowMap returns row i keyed by column name.
func (ds *Dataset) RowMap(i int) map[string]Value {
	out := make(map[string]Value, len(ds.columns))
	for _, c := range ds.columns {
		out[c.Name] = c.Values[i]
	}
	return out
}

// Clone deep-copies the column slices.
func (ds *Dataset) Clone() *Dataset {
	cols := make([]Column, len(ds.columns))
	for i, c := range ds.columns {
		cols[i] = Column{Name: c.Name, Values: append([]Value(nil), c.Values...)}
	}
	out, _ := FromColumns(cols...)
	if len(cols) == 0 {
		out.rows = ds.rows
	}
	return out
}

// Select projects the named columns in the given order.
func (ds *Dataset) Select(names ...string) (*Dataset, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		i, ok := ds.index[n]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		cols = append(cols, Column{Name: n, Values: append([]Value(nil), ds.columns[i].Values...)})
	}
	return FromColumns(cols...)
}

// Rename returns a copy where columns are renamed through m. Names absent
// from m are kept.
func (ds *Dataset) Rename(m map[string]string) (*Dataset, error) {
	cols := make([]Column, len(ds.columns))
	for i, c := range ds.columns {
		name := c.Name
		if to, ok := m[name]; ok {
			name = to
		}
		cols[i] = Column{Name: name, Values: append([]Value(nil), c.Values...)}
	}
	return FromColumns(cols...)
}

// WithColumn returns a copy with the column added, or replaced in place
// when the name already exists.
func (ds *Dataset) WithColumn(name string, values []Value) (*Dataset, error) {
	if len(ds.columns) > 0 && len(values) != ds.rows {
		return nil, fmt.Errorf("column %q has %d values, expected %d", name, len(values), ds.rows)
	}
	cols := make([]Column, 0, len(ds.columns)+1)
	replaced := false
	for _, c := range ds.columns {
		if c.Name == name {
			cols = append(cols, Column{Name: name, Values: values})
			replaced = true
			continue
		}
		cols = append(cols, Column{Name: c.Name, Values: append([]Value(nil), c.Values...)})
	}
	if !replaced {
		cols = append(cols, Column{Name: name, Values: values})
	}
	return FromColumns(cols...)
}

// WithConstant appends (or replaces) a column holding v on every row.
func (ds *Dataset) WithConstant(name string, v Value) (*Dataset, error) {
	values := make([]Value, ds.rows)
	for i := range values {
		values[i] = v
	}
	return ds.WithColumn(name, values)
}

// Filter keeps the rows for which keep returns true.
func (ds *Dataset) Filter(keep func(row int) bool) *Dataset {
	var idx []int
	for r := 0; r < ds.rows; r++ {
		if keep(r) {
			idx = append(idx, r)
		}
	}
	return ds.take(idx)
}

// SortBy returns a copy ordered by the named columns ascending. The sort is
// stable so equal keys keep their input order.
func (ds *Dataset) SortBy(names ...string) (*Dataset, error) {
	keys := make([][]Value, 0, len(names))
	for _, n := range names {
		col, ok := ds.Column(n)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		keys = append(keys, col)
	}
	idx := make([]int, ds.rows)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for _, k := range keys {
			if c := k[idx[a]].Compare(k[idx[b]]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return ds.take(idx), nil
}

func (ds *Dataset) take(idx []int) *Dataset {
	cols := make([]Column, len(ds.columns))
	for i, c := range ds.columns {
		vals := make([]Value, len(idx))
		for j, r := range idx {
			vals[j] = c.Values[r]
		}
		cols[i] = Column{Name: c.Name, Values: vals}
	}
	out, _ := FromColumns(cols...)
	if len(cols) == 0 {
		out.rows = len(idx)
	}
	return out
}

// Equal compares names, order and every cell.
func (ds *Dataset) Equal(o *Dataset) bool {
	if ds.rows != o.rows || len(ds.columns) != len(o.columns) {
		return false
	}
	for i, c := range ds.columns {
		oc := o.columns[i]
		if c.Name != oc.Name {
			return false
		}
		for r := range c.Values {
			if !c.Values[r].Equal(oc.Values[r]) {
				return false
			}
		}
	}
	return true
}

// String renders a short preview, mostly for logs and test failures.
func (ds *Dataset) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dataset[%d rows] %s", ds.rows, strings.Join(ds.Names(), ","))
	for r := 0; r < ds.rows && r < 5; r++ {
		b.WriteString("\n  ")
		for i, v := range ds.Row(r) {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(v.String())
		}
	}
	return b.String()
}
