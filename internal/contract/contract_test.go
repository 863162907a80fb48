package contract_test

import (
	"testing"

	"medallion/internal/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadDeclarations(t *testing.T) {
	_, err := contract.New("t", contract.Field{Name: "a", Type: "blob"})
	assert.Error(t, err)

	_, err = contract.New("t",
		contract.Field{Name: "a", Type: contract.TypeString},
		contract.Field{Name: "a", Type: contract.TypeString},
	)
	assert.Error(t, err)

	_, err = contract.New("t", contract.Field{Name: "a", Type: contract.TypeString, Pattern: "("})
	assert.Error(t, err)

	_, err = contract.New("t", contract.Field{Name: "a", Type: contract.TypeDate, NotBefore: "nope"})
	assert.Error(t, err)
}

func TestContractIsImmutableThroughAccessors(t *testing.T) {
	c := contract.MustNew("t",
		contract.Field{Name: "kind", Type: contract.TypeString, OneOf: []string{"A", "B"}},
		contract.Field{Name: "n", Type: contract.TypeInt, Min: contract.Bound(0)},
	)

	fields := c.Fields()
	fields[0].OneOf[0] = "Z"
	fields[0].Name = "changed"
	*fields[1].Min = *contract.Bound(99)

	f, ok := c.Field("kind")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, f.OneOf)
	n, _ := c.Field("n")
	assert.Equal(t, "0", n.Min.String())
	assert.Equal(t, []string{"kind", "n"}, c.Columns())
}

func TestDefaultRegistry(t *testing.T) {
	r := contract.Default()
	assert.Len(t, r.Tables(), 10)

	c, ok := r.Lookup(contract.SilverPatients)
	require.True(t, ok)
	assert.Equal(t, contract.SilverAudit, c.Columns()[len(c.Columns())-1])

	dob, _ := c.Field("date_of_birth")
	assert.False(t, dob.Nullable)

	_, ok = r.Lookup("bronze_patients")
	assert.False(t, ok)

	_, err := contract.NewRegistry(contract.Payers, contract.Payers)
	assert.Error(t, err)
}

func TestGoldYearMonthPattern(t *testing.T) {
	re := contract.PatientMonthly.Regexp("year_month")
	require.NotNil(t, re)
	assert.True(t, re.MatchString("2024-03"))
	assert.False(t, re.MatchString("2024-3"))
}
