package dataset_test

import (
	"testing"
	"time"

	"medallion/internal/dataset"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New("id", "amount", "seen")
	require.NoError(t, ds.Append(dataset.String("b"), dataset.String("10.50"), dataset.String("2024-01-02")))
	require.NoError(t, ds.Append(dataset.String("a"), dataset.String("oops"), dataset.Null))
	require.NoError(t, ds.Append(dataset.String("c"), dataset.Int(3), dataset.String("2024-01-02T10:00:00Z")))
	return ds
}

func TestAppendRejectsWrongWidth(t *testing.T) {
	ds := dataset.New("a", "b")
	assert.Error(t, ds.Append(dataset.Null))
	assert.Equal(t, 0, ds.Len())
}

func TestFromColumnsValidatesLengths(t *testing.T) {
	_, err := dataset.FromColumns(
		dataset.Column{Name: "a", Values: []dataset.Value{dataset.Int(1)}},
		dataset.Column{Name: "b"},
	)
	assert.Error(t, err)

	_, err = dataset.FromColumns(
		dataset.Column{Name: "a", Values: []dataset.Value{dataset.Int(1)}},
		dataset.Column{Name: "a", Values: []dataset.Value{dataset.Int(1)}},
	)
	assert.Error(t, err)
}

func TestOperationsDoNotMutate(t *testing.T) {
	ds := sample(t)
	before := ds.Clone()

	_, err := ds.WithConstant("audit", dataset.String("x"))
	require.NoError(t, err)
	_, err = ds.SortBy("id")
	require.NoError(t, err)
	_ = ds.Filter(func(int) bool { return false })
	_, err = ds.Select("seen", "id")
	require.NoError(t, err)

	assert.True(t, ds.Equal(before))
	assert.Equal(t, []string{"id", "amount", "seen"}, ds.Names())
}

func TestSortByIsStableAndNullFirst(t *testing.T) {
	ds := dataset.New("k", "n")
	require.NoError(t, ds.Append(dataset.String("x"), dataset.Int(1)))
	require.NoError(t, ds.Append(dataset.Null, dataset.Int(2)))
	require.NoError(t, ds.Append(dataset.String("x"), dataset.Int(3)))
	require.NoError(t, ds.Append(dataset.String("a"), dataset.Int(4)))

	sorted, err := ds.SortBy("k")
	require.NoError(t, err)

	n, _ := sorted.Column("n")
	got := make([]int64, len(n))
	for i, v := range n {
		got[i] = v.Int64()
	}
	assert.Equal(t, []int64{2, 4, 1, 3}, got)

	_, err = ds.SortBy("missing")
	assert.Error(t, err)
}

func TestCoercion(t *testing.T) {
	ds := sample(t)

	d, ok := ds.Get(0, "amount").AsDecimal()
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("10.5")))

	_, ok = ds.Get(1, "amount").AsDecimal()
	assert.False(t, ok)

	i, ok := ds.Get(2, "amount").AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(3), i)

	ts, ok := ds.Get(2, "seen").AsTime()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), ts)

	_, ok = ds.Get(1, "seen").AsTime()
	assert.False(t, ok)

	_, ok = dataset.String("   ").AsString()
	assert.False(t, ok)
}

func TestParseTimeLayouts(t *testing.T) {
	want := time.Date(2023, 7, 4, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2023-07-04", "07/04/2023", "20230704", "2023-07-04T00:00:00Z", "2023-07-04 00:00:00"} {
		got, ok := dataset.ParseTime(s)
		if assert.True(t, ok, s) {
			assert.True(t, want.Equal(got), s)
		}
	}
	_, ok := dataset.ParseTime("not a date")
	assert.False(t, ok)
}

func TestCompareAcrossNumericKinds(t *testing.T) {
	assert.Equal(t, 0, dataset.Int(2).Compare(dataset.Decimal(decimal.NewFromInt(2))))
	assert.Equal(t, -1, dataset.Float(1.5).Compare(dataset.Int(2)))
	assert.Equal(t, 1, dataset.String("b").Compare(dataset.String("a")))
	assert.Equal(t, -1, dataset.Null.Compare(dataset.String("a")))
}

func TestRenameAndWithColumnReplace(t *testing.T) {
	ds := sample(t)
	renamed, err := ds.Rename(map[string]string{"id": "patient_id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"patient_id", "amount", "seen"}, renamed.Names())

	replaced, err := ds.WithConstant("amount", dataset.Int(0))
	require.NoError(t, err)
	assert.Equal(t, ds.Names(), replaced.Names())
	assert.True(t, replaced.Get(1, "amount").Equal(dataset.Int(0)))

	_, err = ds.WithColumn("short", []dataset.Value{dataset.Null})
	assert.Error(t, err)
}

func TestFromAny(t *testing.T) {
	assert.True(t, dataset.FromAny(nil).IsNull())
	assert.Equal(t, dataset.KindString, dataset.FromAny([]byte("x")).Kind())
	assert.Equal(t, dataset.KindInt, dataset.FromAny(int32(4)).Kind())
	assert.Equal(t, dataset.KindTimestamp, dataset.FromAny(time.Now()).Kind())
}
