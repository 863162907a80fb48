// Package load writes validated datasets to a destination as a full
// replace. Every Loader swaps the new table in atomically or leaves the
// destination untouched.
package load

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/dialect"
)

// StagingSuffix names the side table a SQL load writes before the swap.
const StagingSuffix = "__staging"

type Loader interface {
	// Replace overwrites namespace.table with ds and returns the rows written.
	Replace(ctx context.Context, namespace, table string, ds *dataset.Dataset, c contract.Contract) (int64, error)
}

// ColumnDefs types every dataset column from the contract, or from the
// first non-null value when the contract does not declare it.
func ColumnDefs(ds *dataset.Dataset, c contract.Contract) []dialect.ColumnDef {
	names := ds.Names()
	defs := make([]dialect.ColumnDef, len(names))
	for i, name := range names {
		defs[i] = dialect.ColumnDef{Name: name, Type: contract.TypeString}
		if f, ok := c.Field(name); ok {
			defs[i].Type = f.Type
			continue
		}
		vals, _ := ds.Column(name)
		for _, v := range vals {
			if !v.IsNull() {
				defs[i].Type = kindType(v.Kind())
				break
			}
		}
	}
	return defs
}

func kindType(k dataset.Kind) contract.Type {
	switch k {
	case dataset.KindInt:
		return contract.TypeInt
	case dataset.KindFloat:
		return contract.TypeFloat
	case dataset.KindDecimal:
		return contract.TypeDecimal
	case dataset.KindDate:
		return contract.TypeDate
	case dataset.KindTimestamp:
		return contract.TypeTimestamp
	default:
		return contract.TypeString
	}
}

// convert returns v as the Go value a driver expects for a column of type t.
// Decimals travel as text so no driver rounds them through float64.
func convert(v dataset.Value, t contract.Type) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch t {
	case contract.TypeInt:
		if i, ok := v.AsInt(); ok {
			return i, nil
		}
	case contract.TypeFloat:
		if f, ok := v.AsFloat(); ok {
			return f, nil
		}
	case contract.TypeDecimal:
		if d, ok := v.AsDecimal(); ok {
			return d.String(), nil
		}
	case contract.TypeDate, contract.TypeTimestamp:
		if tm, ok := v.AsTime(); ok {
			return tm.UTC(), nil
		}
	default:
		return v.String(), nil
	}
	return nil, fmt.Errorf("cannot store %s value %q as %s", v.Kind(), v.String(), t)
}

// rowValues converts row i of ds for the given column definitions.
func rowValues(ds *dataset.Dataset, i int, defs []dialect.ColumnDef) ([]any, error) {
	row := ds.Row(i)
	out := make([]any, len(row))
	for j, v := range row {
		x, err := convert(v, defs[j].Type)
		if err != nil {
			return nil, fmt.Errorf("row %d column %s: %w", i, defs[j].Name, err)
		}
		out[j] = x
	}
	return out, nil
}

// namespaceGuard serializes namespace creation so concurrent loads into a
// new namespace do not race on CREATE SCHEMA.
type namespaceGuard struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	created map[string]bool
}

func (g *namespaceGuard) ensure(ns string, create func() error) error {
	g.mu.Lock()
	if g.locks == nil {
		g.locks = make(map[string]*sync.Mutex)
		g.created = make(map[string]bool)
	}
	l, ok := g.locks[ns]
	if !ok {
		l = &sync.Mutex{}
		g.locks[ns] = l
	}
	g.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	g.mu.Lock()
	done := g.created[ns]
	g.mu.Unlock()
	if done {
		return nil
	}
	if err := create(); err != nil {
		return err
	}
	g.mu.Lock()
	g.created[ns] = true
	g.mu.Unlock()
	return nil
}

// cleanupContext outlives the caller's cancellation so staging tables are
// still dropped after a cancelled load.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
}
