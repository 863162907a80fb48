// Package contract declares the per-table field rules that every loaded
// table must satisfy. Contracts are plain data interpreted by the validate
// package; nothing here evaluates a row.
package contract

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// Type is the semantic type of a field.
type Type string

const (
	TypeString    Type = "string"
	TypeInt       Type = "int"
	TypeFloat     Type = "float"
	TypeDecimal   Type = "decimal"
	TypeDate      Type = "date"
	TypeTimestamp Type = "timestamp"
)

// Field is the rule set for one column.
type Field struct {
	Name     string
	Type     Type
	Nullable bool
	Unique   bool
	// Min and Max are inclusive numeric bounds.
	Min *decimal.Decimal
	Max *decimal.Decimal
	// Pattern is matched against the text form of the value.
	Pattern string
	// OneOf restricts values to an enumeration.
	OneOf []string
	// NotBefore names a field this value must not precede when both are set.
	NotBefore string
	// Coerce converts convertible values to Type before the checks.
	Coerce bool
}

// Contract is the immutable rule set for one table.
type Contract struct {
	Table  string
	fields []Field
	byName map[string]int
	regex  map[string]*regexp.Regexp
}

// New builds a contract. Field order is the column order of loaded tables.
func New(table string, fields ...Field) (Contract, error) {
	c := Contract{
		Table:  table,
		byName: make(map[string]int, len(fields)),
		regex:  make(map[string]*regexp.Regexp),
	}
	for i, f := range fields {
		if f.Name == "" {
			return Contract{}, fmt.Errorf("contract %s: field %d has no name", table, i)
		}
		if _, dup := c.byName[f.Name]; dup {
			return Contract{}, fmt.Errorf("contract %s: duplicate field %q", table, f.Name)
		}
		switch f.Type {
		case TypeString, TypeInt, TypeFloat, TypeDecimal, TypeDate, TypeTimestamp:
		default:
			return Contract{}, fmt.Errorf("contract %s: field %q has unknown type %q", table, f.Name, f.Type)
		}
		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return Contract{}, fmt.Errorf("contract %s: field %q: %w", table, f.Name, err)
			}
			c.regex[f.Name] = re
		}
		c.byName[f.Name] = i
		c.fields = append(c.fields, f.clone())
	}
	for _, f := range c.fields {
		if f.NotBefore == "" {
			continue
		}
		if _, ok := c.byName[f.NotBefore]; !ok {
			return Contract{}, fmt.Errorf("contract %s: field %q references unknown field %q", table, f.Name, f.NotBefore)
		}
	}
	return c, nil
}

// MustNew is New for package-level declarations.
func MustNew(table string, fields ...Field) Contract {
	c, err := New(table, fields...)
	if err != nil {
		panic(err)
	}
	return c
}

// Fields returns a copy of the field rules in column order.
func (c Contract) Fields() []Field {
	out := make([]Field, len(c.fields))
	for i, f := range c.fields {
		out[i] = f.clone()
	}
	return out
}

// Field looks up one rule set by column name.
func (c Contract) Field(name string) (Field, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Field{}, false
	}
	return c.fields[i].clone(), true
}

func (f Field) clone() Field {
	f.OneOf = append([]string(nil), f.OneOf...)
	if f.Min != nil {
		m := *f.Min
		f.Min = &m
	}
	if f.Max != nil {
		m := *f.Max
		f.Max = &m
	}
	return f
}

// Columns returns the column names in contract order.
func (c Contract) Columns() []string {
	out := make([]string, len(c.fields))
	for i, f := range c.fields {
		out[i] = f.Name
	}
	return out
}

// Regexp returns the compiled pattern of a field, if any.
func (c Contract) Regexp(name string) *regexp.Regexp { return c.regex[name] }

// Registry maps table names to contracts.
type Registry struct {
	byTable map[string]Contract
}

// NewRegistry indexes contracts by table name.
func NewRegistry(contracts ...Contract) (*Registry, error) {
	r := &Registry{byTable: make(map[string]Contract, len(contracts))}
	for _, c := range contracts {
		if _, dup := r.byTable[c.Table]; dup {
			return nil, fmt.Errorf("duplicate contract for %s", c.Table)
		}
		r.byTable[c.Table] = c
	}
	return r, nil
}

func (r *Registry) Lookup(table string) (Contract, bool) {
	c, ok := r.byTable[table]
	return c, ok
}

// Tables lists registered tables in name order.
func (r *Registry) Tables() []string {
	out := make([]string, 0, len(r.byTable))
	for t := range r.byTable {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Bound is a helper for Min/Max declarations.
func Bound(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
