package validate_test

import (
	"fmt"
	"testing"
	"time"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/validate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var people = contract.MustNew("people",
	contract.Field{Name: "id", Type: contract.TypeString, Unique: true},
	contract.Field{Name: "age", Type: contract.TypeInt, Min: contract.Bound(0), Max: contract.Bound(120), Coerce: true},
	contract.Field{Name: "code", Type: contract.TypeString, Nullable: true, Pattern: `^[A-Z]{2}$`},
	contract.Field{Name: "kind", Type: contract.TypeString, OneOf: []string{"Male", "Female", "Other", "Unknown"}},
	contract.Field{Name: "start", Type: contract.TypeTimestamp, Coerce: true},
	contract.Field{Name: "stop", Type: contract.TypeTimestamp, Nullable: true, NotBefore: "start", Coerce: true},
)

func row(id, age, code, kind, start, stop string) []dataset.Value {
	return []dataset.Value{
		dataset.NullableString(id), dataset.NullableString(age), dataset.NullableString(code),
		dataset.NullableString(kind), dataset.NullableString(start), dataset.NullableString(stop),
	}
}

func build(t *testing.T, rows ...[]dataset.Value) *dataset.Dataset {
	t.Helper()
	ds := dataset.New("id", "age", "code", "kind", "start", "stop", "extra")
	for _, r := range rows {
		require.NoError(t, ds.Append(append(r, dataset.String("x"))...))
	}
	return ds
}

func TestValidateSuccessCoercesAndProjects(t *testing.T) {
	ds := build(t,
		row("a", "40", "NY", "Male", "2024-01-01", "2024-01-03"),
		row("b", "0", "", "Unknown", "2024-02-01", ""),
	)
	before := ds.Clone()

	res := validate.Validate(ds, &people, validate.Options{})
	require.True(t, res.OK(), "unexpected failure: %v", res.Err())

	out := res.Dataset
	assert.Equal(t, people.Columns(), out.Names())
	assert.Equal(t, dataset.KindInt, out.Get(0, "age").Kind())
	assert.Equal(t, int64(40), out.Get(0, "age").Int64())
	assert.Equal(t, dataset.KindTimestamp, out.Get(1, "start").Kind())
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), out.Get(1, "start").Time())
	assert.True(t, out.Get(1, "stop").IsNull())

	assert.True(t, ds.Equal(before), "input dataset must not change")
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	ds := build(t,
		row("a", "-1", "ny", "Male", "2024-01-05", "2024-01-01"),
		row("a", "200", "NY", "Robot", "2024-01-01", ""),
		row("", "abc", "", "Other", "not a date", ""),
	)

	res := validate.Validate(ds, &people, validate.Options{SampleSize: 2})
	require.False(t, res.OK())
	f := res.Failure

	assert.Equal(t, 1, f.Counts[validate.Check{Field: "age", Rule: validate.RuleMin}])
	assert.Equal(t, 1, f.Counts[validate.Check{Field: "age", Rule: validate.RuleMax}])
	assert.Equal(t, 1, f.Counts[validate.Check{Field: "age", Rule: validate.RuleType}])
	assert.Equal(t, 1, f.Counts[validate.Check{Field: "code", Rule: validate.RulePattern}])
	assert.Equal(t, 1, f.Counts[validate.Check{Field: "kind", Rule: validate.RuleOneOf}])
	assert.Equal(t, 1, f.Counts[validate.Check{Field: "stop", Rule: validate.RuleNotBefore}])
	assert.Equal(t, 1, f.Counts[validate.Check{Field: "start", Rule: validate.RuleType}])
	assert.Equal(t, 1, f.Counts[validate.Check{Field: "id", Rule: validate.RuleNullable}])
	assert.Equal(t, 2, f.Counts[validate.Check{Field: "id", Rule: validate.RuleUnique}])

	assert.Len(t, f.Sample, 2, "sample is bounded")
	assert.Equal(t, 0, f.Sample[0].Row)
	assert.Equal(t, ds.Names(), f.Columns)
	assert.Contains(t, f.Error(), "people failed validation")
}

func TestValidateMissingColumn(t *testing.T) {
	ds := dataset.New("id")
	require.NoError(t, ds.Append(dataset.String("a")))

	res := validate.Validate(ds, &people, validate.Options{})
	require.False(t, res.OK())
	assert.Equal(t, 1, res.Failure.Counts[validate.Check{Field: "age", Rule: validate.RuleColumnMissing}])
	assert.Empty(t, res.Failure.Sample)
}

func TestValidateStrictTypeWithoutCoerce(t *testing.T) {
	c := contract.MustNew("t", contract.Field{Name: "n", Type: contract.TypeInt})
	ds := dataset.New("n")
	require.NoError(t, ds.Append(dataset.String("5")))

	res := validate.Validate(ds, &c, validate.Options{})
	require.False(t, res.OK())
	assert.Equal(t, validate.RuleType, res.Failure.Violations[0].Rule)
}

func TestValidateSingleDuplicateAmongManyRows(t *testing.T) {
	c := contract.MustNew("claims",
		contract.Field{Name: "claim_id", Type: contract.TypeString, Unique: true},
		contract.Field{Name: "amount", Type: contract.TypeDecimal, Min: contract.Bound(0), Coerce: true},
	)
	ds := dataset.New("claim_id", "amount")
	for i := 0; i < 10000; i++ {
		require.NoError(t, ds.Append(dataset.String(fmt.Sprintf("c%05d", i)), dataset.String("10.00")))
	}
	require.NoError(t, ds.Append(dataset.String("c00042"), dataset.String("5.00")))

	res := validate.Validate(ds, &c, validate.Options{})
	require.False(t, res.OK())
	assert.Nil(t, res.Dataset)

	f := res.Failure
	require.Len(t, f.Checks(), 1)
	assert.Equal(t, validate.Check{Field: "claim_id", Rule: validate.RuleUnique}, f.Checks()[0])
	require.Len(t, f.Violations, 2)
	assert.Equal(t, 42, f.Violations[0].Row)
	assert.Equal(t, 10000, f.Violations[1].Row)
	for _, v := range f.Violations {
		assert.Equal(t, "c00042", v.Value)
	}
}

func TestValidateNilContractPassesThrough(t *testing.T) {
	ds := dataset.New("anything")
	res := validate.Validate(ds, nil, validate.Options{})
	assert.True(t, res.OK())
	assert.Same(t, ds, res.Dataset)
	assert.NoError(t, res.Err())
}

func TestValidateEmptyDataset(t *testing.T) {
	ds := build(t)
	res := validate.Validate(ds, &people, validate.Options{})
	require.True(t, res.OK())
	assert.Equal(t, 0, res.Dataset.Len())
	assert.Equal(t, people.Columns(), res.Dataset.Names())
}
