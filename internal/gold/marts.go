package gold

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/engine"
)

type monthKey struct{ patient, month string }

type monthAgg struct {
	claims       set
	billed, paid decimal.Decimal
}

// PatientMonthly groups claims by patient and claim_start_date month.
// Groups whose patient has no name in the dimension are dropped.
func PatientMonthly(patients, claims *dataset.Dataset) (*dataset.Dataset, engine.Stats, error) {
	stats := engine.NewStats(claims.Len())
	if err := requireColumns(claims, contract.SilverClaims, "claim_id", "patient_id", "claim_start_date", "total_billed_amount", "total_paid_amount"); err != nil {
		return nil, stats, err
	}
	if err := requireColumns(patients, contract.SilverPatients, "patient_id", "first_name", "last_name"); err != nil {
		return nil, stats, err
	}

	type name struct{ first, last string }
	names := make(map[string]name, patients.Len())
	for i := 0; i < patients.Len(); i++ {
		id, ok := text(patients, i, "patient_id")
		if !ok {
			continue
		}
		first, okF := text(patients, i, "first_name")
		last, okL := text(patients, i, "last_name")
		if okF && okL {
			names[id] = name{first, last}
		}
	}

	groups := make(map[monthKey]*monthAgg)
	for i := 0; i < claims.Len(); i++ {
		patient, ok := text(claims, i, "patient_id")
		if !ok {
			stats.Drop("missing_patient_id")
			continue
		}
		start, ok := claims.Get(i, "claim_start_date").AsTime()
		if !ok {
			stats.Drop("missing_claim_start_date")
			continue
		}
		if _, known := names[patient]; !known {
			stats.Drop("unknown_patient")
			continue
		}
		k := monthKey{patient, start.UTC().Format("2006-01")}
		g := groups[k]
		if g == nil {
			g = &monthAgg{claims: set{}}
			groups[k] = g
		}
		id, _ := text(claims, i, "claim_id")
		g.claims.add(id)
		g.billed = g.billed.Add(money(claims, i, "total_billed_amount"))
		g.paid = g.paid.Add(money(claims, i, "total_paid_amount"))
	}

	keys := make([]monthKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].patient != keys[j].patient {
			return keys[i].patient < keys[j].patient
		}
		return keys[i].month < keys[j].month
	})

	out := dataset.New(outputColumns(contract.PatientMonthly)...)
	for _, k := range keys {
		g := groups[k]
		n := names[k.patient]
		err := out.Append(
			dataset.String(k.patient),
			dataset.String(n.first),
			dataset.String(n.last),
			dataset.String(k.month),
			dataset.Int(int64(len(g.claims))),
			dataset.Decimal(g.billed),
			dataset.Decimal(g.paid),
			dataset.Decimal(average(g.billed, len(g.claims))),
		)
		if err != nil {
			return nil, stats, err
		}
	}
	stats.RowsOut = out.Len()
	return out, stats, nil
}

type payerAgg struct {
	name                  string
	claims                set
	billed, paid, patient decimal.Decimal
}

// PayerPerformance attributes each claim to its patient's current payer.
// Claims without one go to UNASSIGNED.
func PayerPerformance(claims, patients *dataset.Dataset) (*dataset.Dataset, engine.Stats, error) {
	stats := engine.NewStats(claims.Len())
	if err := requireColumns(claims, contract.SilverClaims, "claim_id", "patient_id", "total_billed_amount", "total_paid_amount", "patient_responsibility_amount"); err != nil {
		return nil, stats, err
	}
	if err := requireColumns(patients, contract.SilverPatients, "patient_id", "payer_id", "payer_name"); err != nil {
		return nil, stats, err
	}

	type payer struct{ id, name string }
	byPatient := make(map[string]payer, patients.Len())
	for i := 0; i < patients.Len(); i++ {
		id, ok := text(patients, i, "patient_id")
		if !ok {
			continue
		}
		p := payer{UnassignedPayer, DefaultPayer}
		if pid, ok := text(patients, i, "payer_id"); ok {
			p.id = pid
		}
		if name, ok := text(patients, i, "payer_name"); ok {
			p.name = name
		}
		byPatient[id] = p
	}

	groups := make(map[string]*payerAgg)
	for i := 0; i < claims.Len(); i++ {
		p := payer{UnassignedPayer, DefaultPayer}
		if patient, ok := text(claims, i, "patient_id"); ok {
			if found, ok := byPatient[patient]; ok {
				p = found
			} else {
				stats.Anomaly("claim_patient_not_found")
			}
		}
		g := groups[p.id]
		if g == nil {
			g = &payerAgg{name: p.name, claims: set{}}
			groups[p.id] = g
		}
		id, _ := text(claims, i, "claim_id")
		g.claims.add(id)
		g.billed = g.billed.Add(money(claims, i, "total_billed_amount"))
		g.paid = g.paid.Add(money(claims, i, "total_paid_amount"))
		g.patient = g.patient.Add(money(claims, i, "patient_responsibility_amount"))
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := dataset.New(outputColumns(contract.PayerPerformance)...)
	for _, id := range ids {
		g := groups[id]
		n := len(g.claims)
		err := out.Append(
			dataset.String(id),
			dataset.String(g.name),
			dataset.Int(int64(n)),
			dataset.Decimal(g.billed),
			dataset.Decimal(g.paid),
			dataset.Decimal(average(g.paid, n)),
			dataset.Decimal(average(g.patient, n)),
		)
		if err != nil {
			return nil, stats, err
		}
	}
	stats.RowsOut = out.Len()
	return out, stats, nil
}

type claimAt struct {
	start  time.Time
	billed decimal.Decimal
}

// EncounterSummary gives each encounter the billed total of its patient's
// claims starting within the stay. An open stay ends at processedAt.
func EncounterSummary(encounters, claims *dataset.Dataset, processedAt time.Time) (*dataset.Dataset, engine.Stats, error) {
	stats := engine.NewStats(encounters.Len())
	if err := requireColumns(encounters, contract.SilverEncounters, "encounter_id", "patient_id", "encounter_date", "discharge_date", "provider_id", "encounter_type", "length_of_stay_days"); err != nil {
		return nil, stats, err
	}
	if err := requireColumns(claims, contract.SilverClaims, "patient_id", "claim_start_date", "total_billed_amount"); err != nil {
		return nil, stats, err
	}

	byPatient := make(map[string][]claimAt)
	for i := 0; i < claims.Len(); i++ {
		patient, ok := text(claims, i, "patient_id")
		if !ok {
			continue
		}
		start, ok := claims.Get(i, "claim_start_date").AsTime()
		if !ok {
			continue
		}
		byPatient[patient] = append(byPatient[patient], claimAt{start, money(claims, i, "total_billed_amount")})
	}

	out := dataset.New(outputColumns(contract.EncounterSummary)...)
	for i := 0; i < encounters.Len(); i++ {
		id, okID := text(encounters, i, "encounter_id")
		patient, okP := text(encounters, i, "patient_id")
		start, okS := encounters.Get(i, "encounter_date").AsTime()
		if !okID || !okP || !okS {
			stats.Drop("incomplete_encounter")
			continue
		}
		discharge := dataset.Null
		end := processedAt
		if t, ok := encounters.Get(i, "discharge_date").AsTime(); ok {
			end = t
			discharge = dataset.Timestamp(t)
		}

		billed := decimal.Zero
		for _, c := range byPatient[patient] {
			if !c.start.Before(start) && !c.start.After(end) {
				billed = billed.Add(c.billed)
			}
		}

		stay, ok := encounters.Get(i, "length_of_stay_days").AsInt()
		if !ok {
			stay = 0
		}
		err := out.Append(
			dataset.String(id),
			dataset.String(patient),
			dataset.Timestamp(start),
			discharge,
			nullable(encounters, i, "provider_id"),
			nullable(encounters, i, "encounter_type"),
			dataset.Int(stay),
			dataset.Decimal(billed),
		)
		if err != nil {
			return nil, stats, err
		}
	}
	sorted, err := out.SortBy("encounter_id")
	if err != nil {
		return nil, stats, err
	}
	stats.RowsOut = sorted.Len()
	return sorted, stats, nil
}

func nullable(ds *dataset.Dataset, i int, col string) dataset.Value {
	if s, ok := text(ds, i, col); ok {
		return dataset.String(s)
	}
	return dataset.Null
}

type procAgg struct {
	code         string
	transactions set
	total        decimal.Decimal
}

// Procedures summarizes CHARGE transactions per procedure code, largest
// total first.
func Procedures(transactions *dataset.Dataset) (*dataset.Dataset, engine.Stats, error) {
	stats := engine.NewStats(transactions.Len())
	if err := requireColumns(transactions, contract.SilverTransactions, "transaction_id", "transaction_amount", "procedure_code", "transaction_type"); err != nil {
		return nil, stats, err
	}

	groups := make(map[string]*procAgg)
	for i := 0; i < transactions.Len(); i++ {
		if typ, _ := text(transactions, i, "transaction_type"); typ != "CHARGE" {
			continue
		}
		code, ok := text(transactions, i, "procedure_code")
		if !ok {
			stats.Drop("missing_procedure_code")
			continue
		}
		g := groups[code]
		if g == nil {
			g = &procAgg{code: code, transactions: set{}}
			groups[code] = g
		}
		id, _ := text(transactions, i, "transaction_id")
		g.transactions.add(id)
		g.total = g.total.Add(money(transactions, i, "transaction_amount"))
	}

	rows := make([]*procAgg, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, g)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].total.Cmp(rows[j].total); c != 0 {
			return c > 0
		}
		return rows[i].code < rows[j].code
	})

	out := dataset.New(outputColumns(contract.Procedures)...)
	for _, g := range rows {
		n := len(g.transactions)
		if err := out.Append(
			dataset.String(g.code),
			dataset.Int(int64(n)),
			dataset.Decimal(g.total),
			dataset.Decimal(average(g.total, n)),
		); err != nil {
			return nil, stats, err
		}
	}
	stats.RowsOut = out.Len()
	return out, stats, nil
}

type providerAgg struct {
	id                   string
	patients, encounters set
	billed               decimal.Decimal
}

// ProviderActivity summarizes encounters per provider, largest billed first.
func ProviderActivity(encounters *dataset.Dataset) (*dataset.Dataset, engine.Stats, error) {
	stats := engine.NewStats(encounters.Len())
	if err := requireColumns(encounters, contract.SilverEncounters, "encounter_id", "patient_id", "provider_id", "total_claim_cost"); err != nil {
		return nil, stats, err
	}

	groups := make(map[string]*providerAgg)
	for i := 0; i < encounters.Len(); i++ {
		provider, ok := text(encounters, i, "provider_id")
		if !ok {
			stats.Drop("missing_provider_id")
			continue
		}
		g := groups[provider]
		if g == nil {
			g = &providerAgg{id: provider, patients: set{}, encounters: set{}}
			groups[provider] = g
		}
		if p, ok := text(encounters, i, "patient_id"); ok {
			g.patients.add(p)
		}
		if e, ok := text(encounters, i, "encounter_id"); ok {
			g.encounters.add(e)
		}
		g.billed = g.billed.Add(money(encounters, i, "total_claim_cost"))
	}

	rows := make([]*providerAgg, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, g)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].billed.Cmp(rows[j].billed); c != 0 {
			return c > 0
		}
		return rows[i].id < rows[j].id
	})

	out := dataset.New(outputColumns(contract.ProviderActivity)...)
	for _, g := range rows {
		n := len(g.encounters)
		if err := out.Append(
			dataset.String(g.id),
			dataset.Int(int64(len(g.patients))),
			dataset.Int(int64(n)),
			dataset.Decimal(g.billed),
			dataset.Decimal(average(g.billed, n)),
		); err != nil {
			return nil, stats, err
		}
	}
	stats.RowsOut = out.Len()
	return out, stats, nil
}
