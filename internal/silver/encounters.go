package silver

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/engine"
)

// EncounterClasses are the known encounter_type values.
var EncounterClasses = map[string]bool{
	"AMBULATORY": true, "EMERGENCY": true, "INPATIENT": true, "OUTPATIENT": true,
	"WELLNESS": true, "URGENTCARE": true, "HOME": true, "HOSPICE": true,
	"SNF": true, "VIRTUAL": true, "UNKNOWN": true,
}

const (
	AnomalyNegativeStay     = "negative_length_of_stay"
	AnomalyBadDischarge     = "unparsable_discharge_date"
	AnomalyDefaultedAmount  = "defaulted_amount"
	AnomalyNegativeAge      = "negative_age"
	AnomalyDerivedType      = "derived_type"
	AnomalyPaymentsFallback = "amount_from_payments"
)

// Encounters coerces dates and costs and derives length_of_stay_days.
// A discharge before the encounter is repaired: the stay becomes 0 and the
// discharge moves to the encounter date.
func Encounters(in *dataset.Dataset) (*dataset.Dataset, engine.Stats, error) {
	stats := engine.NewStats(in.Len())
	if err := requireColumns(in, BronzeEncounters, "encounter_id", "patient_id", "encounter_date"); err != nil {
		return nil, stats, err
	}

	out := dataset.New(outputColumns(contract.Encounters)...)
	for i := 0; i < in.Len(); i++ {
		r := row{in, i}
		if missing := r.essential("encounter_id", "patient_id"); missing != "" {
			stats.Drop(dropReason(missing))
			continue
		}
		start, ok := r.time("encounter_date")
		if !ok {
			stats.Drop(dropReason("encounter_date"))
			continue
		}
		id, _ := r.str("encounter_id")
		patient, _ := r.str("patient_id")

		discharge := dataset.Null
		stay := dataset.Null
		if _, present := r.str("discharge_date"); present {
			stop, ok := r.time("discharge_date")
			if !ok {
				stats.Anomaly(AnomalyBadDischarge)
			} else {
				days := stayDays(start, stop)
				if days < 0 {
					stats.Anomaly(AnomalyNegativeStay)
					days = 0
					stop = start
				}
				discharge = dataset.Timestamp(stop)
				stay = dataset.Int(days)
			}
		}

		class := DefaultString
		if s, ok := r.str("encounter_type"); ok {
			class = s
		}
		class = strings.ToUpper(class)
		if !EncounterClasses[class] {
			stats.Unmap("encounter_type", class)
		}

		err := out.Append(
			dataset.String(id),
			dataset.String(patient),
			r.nullableStr("provider_id"),
			r.nullableStr("payer_id"),
			dataset.Timestamp(start),
			discharge,
			dataset.String(class),
			stay,
			dataset.Decimal(amountOrZero(r, "total_claim_cost", &stats)),
			dataset.Decimal(amountOrZero(r, "payer_coverage", &stats)),
		)
		if err != nil {
			return nil, stats, err
		}
	}
	return finish(out, stats, "encounter_id")
}

// stayDays counts whole days from start to stop, rounding toward negative
// infinity so a discharge an hour early is -1, not 0.
func stayDays(start, stop time.Time) int64 {
	d := stop.Sub(start)
	days := int64(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

// amountOrZero parses a money cell; null stays quietly 0, garbage is 0 and
// counted.
func amountOrZero(r row, col string, stats *engine.Stats) decimal.Decimal {
	if _, present := r.str(col); !present {
		return decimal.Zero
	}
	d, ok := r.decimal(col)
	if !ok {
		stats.Anomaly(AnomalyDefaultedAmount)
		return decimal.Zero
	}
	return d
}
