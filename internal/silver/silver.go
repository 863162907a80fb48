// Package silver cleans Bronze tables into the validated Silver model.
//
// Every transform is a pure function of its input datasets (and, for
// patients, the processing instant). Rows missing an essential field are
// dropped and counted; categorical values outside the known set pass
// through and are counted as unmapped.
package silver

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/engine"
)

const (
	DefaultString = "Unknown"
	DefaultPayer  = "Self-Pay / Unspecified"
)

// Bronze table names read by the Silver stage.
const (
	BronzePatients     = "bronze_patients"
	BronzePayers       = "bronze_payers"
	BronzeEncounters   = "bronze_encounters"
	BronzeClaims       = "bronze_claims"
	BronzeTransactions = "bronze_claims_transactions"
)

// Units returns the Silver units reading from the bronze namespace.
// Patients need the encounter and payer outputs; claims need the
// transaction output.
func Units(bronze string) []engine.Unit {
	src := func(table string) []engine.Source {
		return []engine.Source{{Namespace: bronze, Table: table}}
	}
	return []engine.Unit{
		{
			Target:   contract.SilverPayers,
			Sources:  src(BronzePayers),
			Contract: &contract.Payers,
			Transform: func(ctx context.Context, in engine.Input) (*dataset.Dataset, engine.Stats, error) {
				ds, err := in.Source(BronzePayers)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				return Payers(ds)
			},
		},
		{
			Target:   contract.SilverEncounters,
			Sources:  src(BronzeEncounters),
			Contract: &contract.Encounters,
			Transform: func(ctx context.Context, in engine.Input) (*dataset.Dataset, engine.Stats, error) {
				ds, err := in.Source(BronzeEncounters)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				return Encounters(ds)
			},
		},
		{
			Target:   contract.SilverTransactions,
			Sources:  src(BronzeTransactions),
			Contract: &contract.Transactions,
			Transform: func(ctx context.Context, in engine.Input) (*dataset.Dataset, engine.Stats, error) {
				ds, err := in.Source(BronzeTransactions)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				return Transactions(ds)
			},
		},
		{
			Target:   contract.SilverClaims,
			Sources:  src(BronzeClaims),
			Needs:    []string{contract.SilverTransactions},
			Contract: &contract.Claims,
			Transform: func(ctx context.Context, in engine.Input) (*dataset.Dataset, engine.Stats, error) {
				claims, err := in.Source(BronzeClaims)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				trans, err := in.Need(contract.SilverTransactions)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				return Claims(claims, trans)
			},
		},
		{
			Target:   contract.SilverPatients,
			Sources:  src(BronzePatients),
			Needs:    []string{contract.SilverEncounters, contract.SilverPayers},
			Contract: &contract.Patients,
			Transform: func(ctx context.Context, in engine.Input) (*dataset.Dataset, engine.Stats, error) {
				patients, err := in.Source(BronzePatients)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				enc, err := in.Need(contract.SilverEncounters)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				payers, err := in.Need(contract.SilverPayers)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				return Patients(patients, enc, payers, in.ProcessedAt)
			},
		},
	}
}

// outputColumns is the contract column list without the audit column,
// which the engine appends.
func outputColumns(c contract.Contract) []string {
	cols := c.Columns()
	if n := len(cols); n > 0 && cols[n-1] == contract.SilverAudit {
		return cols[:n-1]
	}
	return cols
}

func requireColumns(ds *dataset.Dataset, table string, names ...string) error {
	for _, n := range names {
		if !ds.Has(n) {
			return fmt.Errorf("%s: input has no %q column (have %v)", table, n, ds.Names())
		}
	}
	return nil
}

// row reads typed cells of one input row. Absent columns read as null.
type row struct {
	ds *dataset.Dataset
	i  int
}

func (r row) value(col string) dataset.Value {
	if !r.ds.Has(col) {
		return dataset.Null
	}
	return r.ds.Get(r.i, col)
}

// str is the trimmed text of a cell; empty counts as missing.
func (r row) str(col string) (string, bool) { return r.value(col).AsString() }

func (r row) nullableStr(col string) dataset.Value {
	if s, ok := r.str(col); ok {
		return dataset.String(s)
	}
	return dataset.Null
}

func (r row) time(col string) (time.Time, bool) { return r.value(col).AsTime() }

func (r row) decimal(col string) (decimal.Decimal, bool) { return r.value(col).AsDecimal() }

// essential returns the first listed field that is missing, or "".
func (r row) essential(cols ...string) string {
	for _, c := range cols {
		if _, ok := r.str(c); !ok {
			return c
		}
	}
	return ""
}

func dropReason(field string) string { return "missing_" + field }

func finish(out *dataset.Dataset, stats engine.Stats, key string) (*dataset.Dataset, engine.Stats, error) {
	sorted, err := out.SortBy(key)
	if err != nil {
		return nil, stats, err
	}
	stats.RowsOut = sorted.Len()
	return sorted, stats, nil
}
