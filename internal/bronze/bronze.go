// Package bronze ingests the raw CSV extract into bronze tables. Values stay
// strings; only headers are normalized and lineage columns appended.
package bronze

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"medallion/internal/dataset"
	"medallion/internal/engine"
)

// LoadedBy is written to the loaded_by column.
const LoadedBy = "medallion bronze"

// SourceNamespace is the namespace bronze units read from. The CSV extractor
// ignores it.
const SourceNamespace = "csv"

// Lineage columns appended to every bronze table.
const (
	ColSnapshotDate       = "snapshot_date"
	ColExecutionTimestamp = "execution_timestamp"
	ColSourceFile         = "source_file"
	ColLoadedBy           = "loaded_by"
)

// Files maps each bronze table to its CSV file.
var Files = map[string]string{
	"bronze_patients":            "patients.csv",
	"bronze_claims":              "claims.csv",
	"bronze_claims_transactions": "claims_transactions.csv",
	"bronze_encounters":          "encounters.csv",
	"bronze_payers":              "payers.csv",
}

// Renames maps normalized source headers to model names, per table.
var Renames = map[string]map[string]string{
	"bronze_patients": {
		"id": "patient_id", "birthdate": "date_of_birth", "first": "first_name", "last": "last_name",
	},
	"bronze_claims": {
		"id": "claim_id", "patientid": "patient_id", "providerid": "provider_id",
		"servicedate": "claim_start_date", "lastbilleddatep": "claim_end_date",
		"outstanding1": "outstanding_primary", "outstanding2": "outstanding_secondary", "outstandingp": "outstanding_patient",
	},
	"bronze_claims_transactions": {
		"chargeid": "transaction_id", "claimid": "claim_id", "patientid": "patient_id", "providerid": "provider_id",
		"fromdate": "transaction_date", "amount": "transaction_amount", "procedurecode": "procedure_code",
	},
	"bronze_encounters": {
		"id": "encounter_id", "start": "encounter_date", "stop": "discharge_date",
		"patient": "patient_id", "provider": "provider_id", "payer": "payer_id",
		"encounterclass": "encounter_type",
	},
	"bronze_payers": {
		"id": "payer_id", "name": "payer_name",
	},
}

// Tables lists the bronze tables in a stable order.
func Tables() []string {
	out := make([]string, 0, len(Files))
	for t := range Files {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NormalizeHeader trims, replaces spaces with underscores and lower-cases.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", "_"))
}

// CheckDataDir fails when dir is unusable and returns the expected files
// that are absent. A missing file only fails its own table.
func CheckDataDir(dir string) (missing []string, err error) {
	if dir == "" {
		return nil, errors.New("data directory is not set")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", dir)
	}
	for _, t := range Tables() {
		_, err := os.Stat(filepath.Join(dir, Files[t]))
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, Files[t])
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}

// Units returns one ingestion unit per CSV file. Bronze has no contract, so
// validation passes the table through.
func Units() []engine.Unit {
	units := make([]engine.Unit, 0, len(Files))
	for _, table := range Tables() {
		units = append(units, engine.Unit{
			Target:    table,
			Sources:   []engine.Source{{Namespace: SourceNamespace, Table: table}},
			Transform: ingest(table),
		})
	}
	return units
}

func ingest(table string) engine.TransformFunc {
	return func(ctx context.Context, in engine.Input) (*dataset.Dataset, engine.Stats, error) {
		raw, err := in.Source(table)
		if err != nil {
			return nil, engine.Stats{}, err
		}
		out, err := Standardize(raw, table, in.ProcessedAt)
		stats := engine.NewStats(raw.Len())
		if out != nil {
			stats.RowsOut = out.Len()
		}
		return out, stats, err
	}
}
