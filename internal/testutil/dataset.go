package testutil

import (
	"testing"

	"medallion/internal/dataset"
)

// Table builds a dataset of nullable strings: every row is a list of cells
// and "" stands for null.
func Table(t testing.TB, names []string, rows ...[]string) *dataset.Dataset {
	t.Helper()
	ds := dataset.New(names...)
	for i, r := range rows {
		vals := make([]dataset.Value, len(r))
		for j, cell := range r {
			vals[j] = dataset.NullableString(cell)
		}
		if err := ds.Append(vals...); err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
	}
	return ds
}

// Column returns the text form of every value of a column.
func Column(t testing.TB, ds *dataset.Dataset, name string) []string {
	t.Helper()
	vals, ok := ds.Column(name)
	if !ok {
		t.Fatalf("column %q not in %v", name, ds.Names())
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}
