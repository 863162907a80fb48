package silver

import (
	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/engine"
)

// Claims cleans claim headers and attaches the aggregates of their Silver
// transactions. A claim with no transactions has all amounts at zero.
func Claims(in, transactions *dataset.Dataset) (*dataset.Dataset, engine.Stats, error) {
	stats := engine.NewStats(in.Len())
	if err := requireColumns(in, BronzeClaims, "claim_id", "patient_id", "claim_start_date"); err != nil {
		return nil, stats, err
	}
	sums, err := claimTotals(transactions)
	if err != nil {
		return nil, stats, err
	}

	out := dataset.New(outputColumns(contract.Claims)...)
	for i := 0; i < in.Len(); i++ {
		r := row{in, i}
		if missing := r.essential("claim_id", "patient_id"); missing != "" {
			stats.Drop(dropReason(missing))
			continue
		}
		start, ok := r.time("claim_start_date")
		if !ok {
			stats.Drop(dropReason("claim_start_date"))
			continue
		}
		id, _ := r.str("claim_id")
		patient, _ := r.str("patient_id")

		end := dataset.Null
		if t, ok := r.time("claim_end_date"); ok {
			end = dataset.Timestamp(t)
		}

		t := sums[id]
		if t == nil {
			t = &totals{}
			stats.Anomaly("claim_without_transactions")
		}
		err := out.Append(
			dataset.String(id),
			dataset.String(patient),
			r.nullableStr("provider_id"),
			dataset.Timestamp(start),
			end,
			dataset.Decimal(t.billed),
			dataset.Decimal(t.paid),
			dataset.Decimal(t.patient),
		)
		if err != nil {
			return nil, stats, err
		}
	}
	return finish(out, stats, "claim_id")
}
