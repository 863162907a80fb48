package silver

import (
	"strings"

	"github.com/shopspring/decimal"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/engine"
)

// Transaction types.
const (
	TypeCharge      = "CHARGE"
	TypePayment     = "PAYMENT"
	TypeCopay       = "COPAY"
	TypeCoinsurance = "COINSURANCE"
	TypeDeductible  = "DEDUCTIBLE"
	TypePatient     = "PATIENT"
	TypeAdjustment  = "ADJUSTMENT"
	TypeTransferIn  = "TRANSFERIN"
	TypeTransferOut = "TRANSFEROUT"
)

var knownTypes = map[string]bool{
	TypeCharge: true, TypePayment: true, TypeCopay: true, TypeCoinsurance: true,
	TypeDeductible: true, TypePatient: true, TypeAdjustment: true,
	TypeTransferIn: true, TypeTransferOut: true,
}

// patientShare lists the types that count toward patient responsibility.
var patientShare = map[string]bool{
	TypeCopay: true, TypeCoinsurance: true, TypeDeductible: true, TypePatient: true,
}

// Transactions cleans claim transactions. An unparsable amount on a
// PAYMENT row falls back to the negated payments column, otherwise 0. A
// missing type is derived from the amount's sign.
func Transactions(in *dataset.Dataset) (*dataset.Dataset, engine.Stats, error) {
	stats := engine.NewStats(in.Len())
	if err := requireColumns(in, BronzeTransactions, "transaction_id", "claim_id", "transaction_date"); err != nil {
		return nil, stats, err
	}

	out := dataset.New(outputColumns(contract.Transactions)...)
	for i := 0; i < in.Len(); i++ {
		r := row{in, i}
		if missing := r.essential("transaction_id", "claim_id"); missing != "" {
			stats.Drop(dropReason(missing))
			continue
		}
		when, ok := r.time("transaction_date")
		if !ok {
			stats.Drop(dropReason("transaction_date"))
			continue
		}
		id, _ := r.str("transaction_id")
		claim, _ := r.str("claim_id")

		typ, hasType := r.str("type")
		typ = strings.ToUpper(typ)

		amount, ok := r.decimal("transaction_amount")
		if !ok {
			amount = decimal.Zero
			if p, okP := r.decimal("payments"); okP && typ == TypePayment {
				amount = p.Neg()
				stats.Anomaly(AnomalyPaymentsFallback)
			} else {
				stats.Anomaly(AnomalyDefaultedAmount)
			}
		}

		if !hasType {
			typ = TypeCharge
			if amount.IsNegative() {
				typ = TypePayment
			}
			stats.Anomaly(AnomalyDerivedType)
		} else if !knownTypes[typ] {
			stats.Unmap("transaction_type", typ)
		}

		err := out.Append(
			dataset.String(id),
			dataset.String(claim),
			r.nullableStr("patient_id"),
			dataset.Timestamp(when),
			dataset.Decimal(amount),
			r.nullableStr("procedure_code"),
			dataset.String(typ),
		)
		if err != nil {
			return nil, stats, err
		}
	}
	return finish(out, stats, "transaction_id")
}

// totals are the per-claim aggregates of its transactions.
type totals struct {
	billed, paid, patient decimal.Decimal
}

// claimTotals splits transaction amounts by type: charges are billed,
// payments are paid, patient-share types are the patient's responsibility.
// Paid and patient amounts are magnitudes; other types are ignored.
func claimTotals(trans *dataset.Dataset) (map[string]*totals, error) {
	if err := requireColumns(trans, contract.SilverTransactions, "claim_id", "transaction_amount", "transaction_type"); err != nil {
		return nil, err
	}
	out := make(map[string]*totals)
	for i := 0; i < trans.Len(); i++ {
		claim, ok := trans.Get(i, "claim_id").AsString()
		if !ok {
			continue
		}
		amount, ok := trans.Get(i, "transaction_amount").AsDecimal()
		if !ok {
			continue
		}
		t := out[claim]
		if t == nil {
			t = &totals{}
			out[claim] = t
		}
		typ, _ := trans.Get(i, "transaction_type").AsString()
		switch {
		case typ == TypeCharge:
			t.billed = t.billed.Add(amount)
		case typ == TypePayment:
			t.paid = t.paid.Add(amount.Abs())
		case patientShare[typ]:
			t.patient = t.patient.Add(amount.Abs())
		}
	}
	return out, nil
}
