// Package synth writes a Synthea-style Bronze extract with controllable
// dirt, so the pipeline can be exercised without real patient data.
package synth

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05Z"
)

// Options control the size and shape of the extract.
type Options struct {
	Patients int
	// DirtyRate is the chance that a row gets one defect the Silver stage
	// is expected to repair or drop.
	DirtyRate float64
	Seed      int64
	// From and To bound encounter dates.
	From, To time.Time
}

// Table is one generated CSV.
type Table struct {
	File   string
	Header []string
	Rows   [][]string
	Dirty  int
}

// Generator builds a consistent set of patients, payers, encounters,
// claims and claim transactions.
type Generator struct {
	opts Options
	fake *gofakeit.Faker

	txSeq int
}

func New(opts Options) *Generator {
	if opts.Patients <= 0 {
		opts.Patients = 100
	}
	if opts.To.IsZero() {
		opts.To = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	if opts.From.IsZero() || !opts.From.Before(opts.To) {
		opts.From = opts.To.AddDate(-5, 0, 0)
	}
	if opts.DirtyRate < 0 {
		opts.DirtyRate = 0
	}
	return &Generator{opts: opts, fake: gofakeit.New(opts.Seed)}
}

// Generate builds every table in memory. The same seed gives the same output.
func (g *Generator) Generate() []*Table {
	payers := &Table{File: "payers.csv", Header: []string{"Id", "NAME", "CITY", "STATE_HEADQUARTERED"}}
	patients := &Table{File: "patients.csv", Header: []string{"Id", "BIRTHDATE", "DEATHDATE", "FIRST", "LAST", "GENDER", "CITY", "STATE"}}
	encounters := &Table{File: "encounters.csv", Header: []string{
		"Id", "START", "STOP", "PATIENT", "ORGANIZATION", "PROVIDER", "PAYER", "ENCOUNTERCLASS",
		"CODE", "DESCRIPTION", "BASE_ENCOUNTER_COST", "TOTAL_CLAIM_COST", "PAYER_COVERAGE",
	}}
	claims := &Table{File: "claims.csv", Header: []string{
		"Id", "PATIENTID", "PROVIDERID", "SERVICEDATE", "LASTBILLEDDATEP",
		"OUTSTANDING1", "OUTSTANDING2", "OUTSTANDINGP", "STATUS1",
	}}
	transactions := &Table{File: "claims_transactions.csv", Header: []string{
		"ID", "CHARGEID", "CLAIMID", "PATIENTID", "TYPE", "AMOUNT", "FROMDATE", "TODATE",
		"PROCEDURECODE", "PROVIDERID", "PAYMENTS", "OUTSTANDING",
	}}

	payerIDs := make([]string, len(PayerNames))
	for i, name := range PayerNames {
		payerIDs[i] = g.fake.UUID()
		payers.Rows = append(payers.Rows, []string{payerIDs[i], name, g.fake.City(), g.pick(States)})
	}

	providers := make([]string, 1+g.opts.Patients/10)
	for i := range providers {
		providers[i] = g.fake.UUID()
	}
	org := g.fake.UUID()

	for p := 0; p < g.opts.Patients; p++ {
		patientID := g.fake.UUID()
		row := []string{
			patientID,
			g.fake.DateRange(time.Date(1930, 1, 1, 0, 0, 0, 0, time.UTC), g.opts.From).Format(dateLayout),
			"",
			g.fake.FirstName(),
			g.fake.LastName(),
			g.pick(Genders),
			g.fake.City(),
			g.pick(States),
		}
		patients.dirty(g, row, g.dirtyPatient)
		patients.Rows = append(patients.Rows, row)

		visits := g.fake.Number(1, 5)
		for v := 0; v < visits; v++ {
			g.encounter(patientID, org, g.pick(providers), g.pick(payerIDs), encounters, claims, transactions)
		}
	}
	return []*Table{patients, payers, encounters, claims, transactions}
}

func (g *Generator) encounter(patientID, org, provider, payer string, encounters, claims, transactions *Table) {
	class := g.pick(EncounterClasses)
	start := g.fake.DateRange(g.opts.From, g.opts.To).Truncate(time.Minute)
	stop := start.Add(time.Duration(g.fake.Number(15, 90)) * time.Minute)
	if class == "inpatient" {
		stop = start.AddDate(0, 0, g.fake.Number(1, 7))
	}
	proc := Procedures[g.fake.Number(0, len(Procedures)-1)]
	base := g.fake.Float64Range(proc.Low, proc.High) * classCost[class]
	coverage := base * g.fake.Float64Range(0.5, 0.9)

	encID := g.fake.UUID()
	row := []string{
		encID,
		start.Format(timestampLayout),
		stop.Format(timestampLayout),
		patientID, org, provider, payer, class,
		proc.Code, proc.Description,
		money(base), money(base), money(coverage),
	}
	encounters.dirty(g, row, g.dirtyEncounter)
	encounters.Rows = append(encounters.Rows, row)

	claimID := g.fake.UUID()
	patientShare := base - coverage
	claim := []string{
		claimID, patientID, provider,
		start.Format(timestampLayout),
		stop.Format(timestampLayout),
		"0", "0", money(patientShare * g.fake.Float64Range(0, 0.5)), "CLOSED",
	}
	claims.dirty(g, claim, g.dirtyClaim)
	claims.Rows = append(claims.Rows, claim)

	add := func(typ string, amount, payments float64) {
		g.txSeq++
		tx := []string{
			g.fake.UUID(),
			fmt.Sprint(g.txSeq),
			claimID, patientID, typ,
			money(amount),
			start.Format(timestampLayout),
			stop.Format(timestampLayout),
			proc.Code, provider,
			money(payments), "0",
		}
		transactions.dirty(g, tx, g.dirtyTransaction)
		transactions.Rows = append(transactions.Rows, tx)
	}
	add("CHARGE", base, 0)
	add("PAYMENT", -coverage, coverage)
	if patientShare > 0 {
		add(g.pick(PatientShareTypes), -patientShare, patientShare)
	}
}

func (t *Table) dirty(g *Generator, row []string, spoil func([]string)) {
	if g.opts.DirtyRate <= 0 || g.fake.Float64Range(0, 1) >= g.opts.DirtyRate {
		return
	}
	spoil(row)
	t.Dirty++
}

// Defects below are all ones the Silver stage repairs, flags or drops
// without failing validation.

func (g *Generator) dirtyPatient(row []string) {
	switch g.fake.Number(0, 3) {
	case 0:
		row[3] = ""
	case 1:
		row[1] = "unknown"
	case 2:
		row[5] = strings.ToLower(row[5])
	default:
		row[3] = strings.ToUpper(row[3])
		row[4] = "  " + strings.ToLower(row[4]) + " "
	}
}

func (g *Generator) dirtyEncounter(row []string) {
	switch g.fake.Number(0, 3) {
	case 0:
		start, _ := time.Parse(timestampLayout, row[1])
		row[2] = start.Add(-2 * time.Hour).Format(timestampLayout)
	case 1:
		row[3] = ""
	case 2:
		row[11] = "N/A"
	default:
		row[7] = strings.ToUpper(row[7])
	}
}

func (g *Generator) dirtyClaim(row []string) {
	switch g.fake.Number(0, 1) {
	case 0:
		row[3] = ""
	default:
		row[4] = "pending"
	}
}

func (g *Generator) dirtyTransaction(row []string) {
	switch g.fake.Number(0, 2) {
	case 0:
		row[4] = ""
	case 1:
		row[5] = "n/a"
	default:
		row[4] = strings.ToLower(row[4])
	}
}

func (g *Generator) pick(from []string) string {
	return from[g.fake.Number(0, len(from)-1)]
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

// WriteDir generates the extract and writes one CSV per table into dir.
func (g *Generator) WriteDir(ctx context.Context, dir string) ([]*Table, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	tables := g.Generate()
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writeCSV(filepath.Join(dir, t.File), t); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

func writeCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
