package silver_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/engine"
	"medallion/internal/load"
	"medallion/internal/silver"
	"medallion/internal/testutil"
	"medallion/internal/validate"
)

var processedAt = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

var (
	patientCols     = []string{"patient_id", "first_name", "last_name", "date_of_birth", "gender"}
	payerCols       = []string{"payer_id", "payer_name"}
	encounterCols   = []string{"encounter_id", "patient_id", "provider_id", "payer_id", "encounter_date", "discharge_date", "encounter_type", "total_claim_cost", "payer_coverage"}
	claimCols       = []string{"claim_id", "patient_id", "provider_id", "claim_start_date", "claim_end_date"}
	transactionCols = []string{"transaction_id", "claim_id", "patient_id", "transaction_date", "transaction_amount", "procedure_code", "type", "payments"}
)

func TestAgeIsWholeCalendarYears(t *testing.T) {
	dob := time.Date(2000, 6, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 23, silver.Age(dob, processedAt), "birthday tomorrow")
	assert.Equal(t, 24, silver.Age(dob, processedAt.AddDate(0, 0, 1)))

	leap := time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 22, silver.Age(leap, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 23, silver.Age(leap, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPatientsCleansAndPicksLatestPayer(t *testing.T) {
	in := testutil.Table(t, patientCols,
		[]string{"p2", "jane", "MCDONALD", "1980-01-01", "F"},
		[]string{"p1", " john ", "SMITH", "2000-06-16", "m"},
		[]string{"p3", "", "Nobody", "1990-01-01", "M"},
		[]string{"p4", "Ann", "Lee", "not-a-date", "F"},
		[]string{"p5", "Kim", "Park", "1970-05-05", "X"},
		[]string{"p6", "Future", "Kid", "2030-01-01", ""},
	)
	enc := testutil.Table(t, []string{"encounter_id", "patient_id", "encounter_date", "payer_id"},
		[]string{"e9", "p1", "2024-01-01T00:00:00Z", "pay-old"},
		[]string{"e5", "p1", "2024-03-01T00:00:00Z", "pay-b"},
		[]string{"e3", "p1", "2024-03-01T00:00:00Z", "pay-a"},
		[]string{"e7", "p2", "2024-02-01T00:00:00Z", ""},
		[]string{"e8", "p5", "2024-02-01T00:00:00Z", "pay-ghost"},
	)
	payers := testutil.Table(t, payerCols, []string{"pay-a", "Aetna"}, []string{"pay-b", "Blue"})

	out, stats, err := silver.Patients(in, enc, payers, processedAt)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p5", "p6"}, testutil.Column(t, out, "patient_id"))
	assert.Equal(t, []string{"John", "Jane", "Kim", "Future"}, testutil.Column(t, out, "first_name"))
	assert.Equal(t, "Mcdonald", out.Get(1, "last_name").String())
	assert.Equal(t, []string{"Male", "Female", "X", "Unknown"}, testutil.Column(t, out, "gender"))
	assert.Equal(t, []string{"23", "44", "54", "0"}, testutil.Column(t, out, "age"))

	assert.Equal(t, "pay-a", out.Get(0, "payer_id").String(), "tie on date goes to the smallest encounter_id")
	assert.Equal(t, "Aetna", out.Get(0, "payer_name").String())
	assert.True(t, out.Get(1, "payer_id").IsNull())
	assert.Equal(t, silver.DefaultPayer, out.Get(1, "payer_name").String())
	assert.Equal(t, "pay-ghost", out.Get(2, "payer_id").String())
	assert.Equal(t, silver.DefaultPayer, out.Get(2, "payer_name").String())
	assert.Equal(t, dataset.KindDate, out.Get(0, "date_of_birth").Kind())

	assert.Equal(t, 6, stats.RowsIn)
	assert.Equal(t, 4, stats.RowsOut)
	assert.Equal(t, 1, stats.Dropped["missing_first_name"])
	assert.Equal(t, 1, stats.Dropped["missing_date_of_birth"])
	assert.Equal(t, stats.RowsIn, stats.RowsOut+stats.TotalDropped())
	assert.Equal(t, 1, stats.Unmapped["gender"]["X"])
	assert.Equal(t, 1, stats.Anomalies[silver.AnomalyNegativeAge])
}

func TestPatientsTieBreakIgnoresInputOrder(t *testing.T) {
	in := testutil.Table(t, patientCols, []string{"p1", "A", "B", "2000-01-01", "M"})
	payers := testutil.Table(t, payerCols)
	orders := [][][]string{
		{{"e2", "p1", "2024-01-01", "y"}, {"e1", "p1", "2024-01-01", "x"}},
		{{"e1", "p1", "2024-01-01", "x"}, {"e2", "p1", "2024-01-01", "y"}},
	}
	for _, rows := range orders {
		enc := testutil.Table(t, []string{"encounter_id", "patient_id", "encounter_date", "payer_id"}, rows...)
		out, _, err := silver.Patients(in, enc, payers, processedAt)
		require.NoError(t, err)
		assert.Equal(t, "x", out.Get(0, "payer_id").String())
	}
}

func TestEncountersRepairsNegativeStay(t *testing.T) {
	in := testutil.Table(t, encounterCols,
		[]string{"e1", "p1", "pr1", "pay", "2024-01-10T08:00:00Z", "2024-01-13T09:00:00Z", "inpatient", "100.50", "80"},
		[]string{"e2", "p1", "", "", "2024-01-10T08:00:00Z", "2024-01-10T07:00:00Z", "", "", ""},
		[]string{"e3", "p1", "", "", "2024-01-10T08:00:00Z", "", "teleport", "abc", "1"},
		[]string{"", "p1", "", "", "2024-01-10", "", "", "", ""},
		[]string{"e5", "p1", "", "", "yesterday", "", "", "", ""},
	)
	out, stats, err := silver.Encounters(in)
	require.NoError(t, err)

	require.Equal(t, []string{"e1", "e2", "e3"}, testutil.Column(t, out, "encounter_id"))
	assert.Equal(t, int64(3), out.Get(0, "length_of_stay_days").Int64())
	assert.Equal(t, "INPATIENT", out.Get(0, "encounter_type").String())
	assert.True(t, decimal.RequireFromString("100.5").Equal(out.Get(0, "total_claim_cost").Dec()))

	assert.Equal(t, int64(0), out.Get(1, "length_of_stay_days").Int64())
	assert.True(t, out.Get(1, "discharge_date").Time().Equal(out.Get(1, "encounter_date").Time()))
	assert.Equal(t, "UNKNOWN", out.Get(1, "encounter_type").String())
	assert.True(t, out.Get(1, "total_claim_cost").Dec().IsZero())

	assert.True(t, out.Get(2, "length_of_stay_days").IsNull())
	assert.True(t, out.Get(2, "discharge_date").IsNull())

	assert.Equal(t, 1, stats.Anomalies[silver.AnomalyNegativeStay])
	assert.Equal(t, 1, stats.Anomalies[silver.AnomalyDefaultedAmount])
	assert.Equal(t, 1, stats.Unmapped["encounter_type"]["TELEPORT"])
	assert.Equal(t, 1, stats.Dropped["missing_encounter_id"])
	assert.Equal(t, 1, stats.Dropped["missing_encounter_date"])

	res := validate.Validate(out, withoutAudit(t), validate.Options{})
	assert.NoError(t, res.Err())
}

func TestTransactionsDefaultsAndDerivesType(t *testing.T) {
	in := testutil.Table(t, transactionCols,
		[]string{"t1", "c1", "p1", "2024-01-01", "100", "P1", "charge", ""},
		[]string{"t2", "c1", "p1", "2024-01-02", "", "", "PAYMENT", "40"},
		[]string{"t3", "c1", "p1", "2024-01-03", "-5", "", "", ""},
		[]string{"t4", "c1", "p1", "2024-01-04", "oops", "", "COPAY", ""},
		[]string{"t5", "c1", "p1", "2024-01-05", "7", "", "refund", ""},
		[]string{"t6", "", "p1", "2024-01-05", "7", "", "CHARGE", ""},
	)
	out, stats, err := silver.Transactions(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"t1", "t2", "t3", "t4", "t5"}, testutil.Column(t, out, "transaction_id"))
	assert.Equal(t, []string{"CHARGE", "PAYMENT", "PAYMENT", "COPAY", "REFUND"}, testutil.Column(t, out, "transaction_type"))
	assert.Equal(t, "-40", out.Get(1, "transaction_amount").String())
	assert.True(t, out.Get(3, "transaction_amount").Dec().IsZero())

	assert.Equal(t, 1, stats.Anomalies[silver.AnomalyPaymentsFallback])
	assert.Equal(t, 1, stats.Anomalies[silver.AnomalyDefaultedAmount])
	assert.Equal(t, 1, stats.Anomalies[silver.AnomalyDerivedType])
	assert.Equal(t, 1, stats.Unmapped["transaction_type"]["REFUND"])
	assert.Equal(t, 1, stats.Dropped["missing_claim_id"])
}

func TestClaimsAggregatesTransactions(t *testing.T) {
	trans := testutil.Table(t, []string{"claim_id", "transaction_amount", "transaction_type"},
		[]string{"c1", "100", "CHARGE"},
		[]string{"c1", "-40", "PAYMENT"},
		[]string{"c1", "-10", "PAYMENT"},
		[]string{"c2", "200", "CHARGE"},
		[]string{"c2", "-20", "COPAY"},
		[]string{"c2", "-15", "DEDUCTIBLE"},
		[]string{"c2", "30", "ADJUSTMENT"},
	)
	in := testutil.Table(t, claimCols,
		[]string{"c2", "p1", "pr", "2024-01-01", "2024-01-05"},
		[]string{"c1", "p1", "", "2024-01-01", ""},
		[]string{"c3", "p2", "", "2024-01-01", "never"},
		[]string{"c4", "", "", "2024-01-01", ""},
	)
	out, stats, err := silver.Claims(in, trans)
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2", "c3"}, testutil.Column(t, out, "claim_id"))
	assert.Equal(t, []string{"100", "200", "0"}, testutil.Column(t, out, "total_billed_amount"))
	assert.Equal(t, []string{"50", "0", "0"}, testutil.Column(t, out, "total_paid_amount"))
	assert.Equal(t, []string{"0", "35", "0"}, testutil.Column(t, out, "patient_responsibility_amount"))
	assert.True(t, out.Get(2, "claim_end_date").IsNull())
	assert.Equal(t, 1, stats.Dropped["missing_patient_id"])
	assert.Equal(t, 1, stats.Anomalies["claim_without_transactions"])
}

func TestPayersDropsIncompleteRows(t *testing.T) {
	in := testutil.Table(t, payerCols,
		[]string{" b ", "Blue Cross"},
		[]string{"a", "Aetna"},
		[]string{"c", " "},
	)
	out, stats, err := silver.Payers(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, testutil.Column(t, out, "payer_id"))
	assert.Equal(t, 1, stats.Dropped["missing_payer_name"])
}

func TestMissingColumnIsAnError(t *testing.T) {
	_, _, err := silver.Payers(testutil.Table(t, []string{"payer_id"}))
	assert.ErrorContains(t, err, "payer_name")
}

func TestSilverRunEndToEnd(t *testing.T) {
	store := seedBronze(t)
	sum := runSilver(t, store)
	require.True(t, sum.OK(), "%v", sum.Err())
	assert.Equal(t, 5, sum.Succeeded())

	patients, err := store.Extract(context.Background(), "silver", contract.SilverPatients)
	require.NoError(t, err)
	assert.Equal(t, contract.Patients.Columns(), patients.Names())
	assert.Equal(t, []string{"Aetna"}, testutil.Column(t, patients, "payer_name"))

	claims, err := store.Extract(context.Background(), "silver", contract.SilverClaims)
	require.NoError(t, err)
	assert.Equal(t, []string{"50"}, testutil.Column(t, claims, "total_paid_amount"))
}

func TestSilverRunIsIdempotent(t *testing.T) {
	store := seedBronze(t)
	runSilver(t, store)
	first := snapshot(t, store)
	runSilver(t, store)
	assert.Equal(t, first, snapshot(t, store))
}

func TestSilverClaimsFailureLeavesOthersLoaded(t *testing.T) {
	store := seedBronze(t)
	store.Put("bronze", silver.BronzeClaims, testutil.Table(t, claimCols,
		[]string{"c1", "p1", "", "2024-01-01", ""},
		[]string{"c1", "p1", "", "2024-01-02", ""},
	))

	sum := runSilver(t, store)
	require.False(t, sum.OK())
	claims, _ := sum.Result(contract.SilverClaims)
	assert.Equal(t, engine.StateFailed, claims.State)
	var vf *validate.Failure
	require.ErrorAs(t, claims.Err, &vf)

	payers, _ := sum.Result(contract.SilverPayers)
	assert.Equal(t, engine.StateLoaded, payers.State)
	_, err := store.Extract(context.Background(), "silver", contract.SilverClaims)
	assert.Error(t, err, "failed table is never written")
}

func seedBronze(t *testing.T) *load.MemoryStore {
	t.Helper()
	store := load.NewMemoryStore()
	store.Put("bronze", silver.BronzePatients, testutil.Table(t, patientCols,
		[]string{"p1", "ADA", "lovelace", "1990-12-10", "F"}))
	store.Put("bronze", silver.BronzePayers, testutil.Table(t, payerCols,
		[]string{"pay1", "Aetna"}))
	store.Put("bronze", silver.BronzeEncounters, testutil.Table(t, encounterCols,
		[]string{"e1", "p1", "pr1", "pay1", "2024-01-01T10:00:00Z", "2024-01-02T11:00:00Z", "ambulatory", "150", "100"}))
	store.Put("bronze", silver.BronzeClaims, testutil.Table(t, claimCols,
		[]string{"c1", "p1", "pr1", "2024-01-01", "2024-01-02"}))
	store.Put("bronze", silver.BronzeTransactions, testutil.Table(t, transactionCols,
		[]string{"t1", "c1", "p1", "2024-01-01", "100", "99213", "CHARGE", ""},
		[]string{"t2", "c1", "p1", "2024-01-02", "-40", "", "PAYMENT", ""},
		[]string{"t3", "c1", "p1", "2024-01-03", "-10", "", "PAYMENT", ""},
	))
	return store
}

func runSilver(t *testing.T, store *load.MemoryStore) *engine.Summary {
	t.Helper()
	e := engine.New(engine.Config{
		Stage:       "silver",
		Namespace:   "silver",
		AuditColumn: contract.SilverAudit,
		ProcessedAt: processedAt,
	}, store, store, testutil.NewTestLogger(t))
	sum, err := e.Run(context.Background(), silver.Units("bronze"))
	require.NoError(t, err)
	return sum
}

func snapshot(t *testing.T, store *load.MemoryStore) map[string][][]string {
	t.Helper()
	out := map[string][][]string{}
	for _, name := range silverTables {
		out[name] = cells(t, store, name)
	}
	return out
}

// withoutAudit is the encounter contract minus the audit column, so a bare
// transform output can be validated directly.
func withoutAudit(t *testing.T) *contract.Contract {
	t.Helper()
	fields := contract.Encounters.Fields()
	c, err := contract.New(contract.SilverEncounters, fields[:len(fields)-1]...)
	require.NoError(t, err)
	return &c
}
