// Package gold aggregates validated Silver tables into the analytic marts.
package gold

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/engine"
)

const (
	UnassignedPayer = "UNASSIGNED"
	DefaultPayer    = "Self-Pay / Unspecified"
)

// avgPlaces is the scale averages are rounded to.
const avgPlaces = 4

// Units returns the Gold units reading from the silver namespace.
func Units(silver string) []engine.Unit {
	src := func(tables ...string) []engine.Source {
		out := make([]engine.Source, len(tables))
		for i, t := range tables {
			out[i] = engine.Source{Namespace: silver, Table: t}
		}
		return out
	}
	return []engine.Unit{
		{
			Target:    contract.GoldPatientMonthly,
			Sources:   src(contract.SilverPatients, contract.SilverClaims),
			Contract:  &contract.PatientMonthly,
			Transform: sources2(contract.SilverPatients, contract.SilverClaims, PatientMonthly),
		},
		{
			Target:    contract.GoldPayerPerformance,
			Sources:   src(contract.SilverClaims, contract.SilverPatients),
			Contract:  &contract.PayerPerformance,
			Transform: sources2(contract.SilverClaims, contract.SilverPatients, PayerPerformance),
		},
		{
			Target:   contract.GoldEncounterSummary,
			Sources:  src(contract.SilverEncounters, contract.SilverClaims),
			Contract: &contract.EncounterSummary,
			Transform: func(ctx context.Context, in engine.Input) (*dataset.Dataset, engine.Stats, error) {
				enc, err := in.Source(contract.SilverEncounters)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				claims, err := in.Source(contract.SilverClaims)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				return EncounterSummary(enc, claims, in.ProcessedAt)
			},
		},
		{
			Target:    contract.GoldProcedures,
			Sources:   src(contract.SilverTransactions),
			Contract:  &contract.Procedures,
			Transform: sources1(contract.SilverTransactions, Procedures),
		},
		{
			Target:    contract.GoldProviderActivity,
			Sources:   src(contract.SilverEncounters),
			Contract:  &contract.ProviderActivity,
			Transform: sources1(contract.SilverEncounters, ProviderActivity),
		},
	}
}

type mart1 func(*dataset.Dataset) (*dataset.Dataset, engine.Stats, error)

type mart2 func(a, b *dataset.Dataset) (*dataset.Dataset, engine.Stats, error)

func sources1(table string, fn mart1) engine.TransformFunc {
	return func(ctx context.Context, in engine.Input) (*dataset.Dataset, engine.Stats, error) {
		ds, err := in.Source(table)
		if err != nil {
			return nil, engine.Stats{}, err
		}
		return fn(ds)
	}
}

func sources2(a, b string, fn mart2) engine.TransformFunc {
	return func(ctx context.Context, in engine.Input) (*dataset.Dataset, engine.Stats, error) {
		first, err := in.Source(a)
		if err != nil {
			return nil, engine.Stats{}, err
		}
		second, err := in.Source(b)
		if err != nil {
			return nil, engine.Stats{}, err
		}
		return fn(first, second)
	}
}

func outputColumns(c contract.Contract) []string {
	cols := c.Columns()
	return cols[:len(cols)-1]
}

func requireColumns(ds *dataset.Dataset, table string, names ...string) error {
	for _, n := range names {
		if !ds.Has(n) {
			return fmt.Errorf("%s: input has no %q column", table, n)
		}
	}
	return nil
}

func text(ds *dataset.Dataset, i int, col string) (string, bool) {
	return ds.Get(i, col).AsString()
}

// money reads a decimal cell, treating null or garbage as zero.
func money(ds *dataset.Dataset, i int, col string) decimal.Decimal {
	d, ok := ds.Get(i, col).AsDecimal()
	if !ok {
		return decimal.Zero
	}
	return d
}

// average is sum/n rounded, and zero when n is zero.
func average(sum decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(avgPlaces)
}

// set counts distinct strings.
type set map[string]struct{}

func (s set) add(v string) { s[v] = struct{}{} }
