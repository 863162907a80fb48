// Package validate checks a dataset against its contract. All rules are
// evaluated on all rows before the verdict, so a failure lists every
// violation instead of the first one found.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"medallion/internal/contract"
	"medallion/internal/dataset"
)

// Rule names a failed check.
type Rule string

const (
	RuleColumnMissing Rule = "column_missing"
	RuleNullable      Rule = "nullable"
	RuleType          Rule = "type"
	RuleUnique        Rule = "unique"
	RuleMin           Rule = "min"
	RuleMax           Rule = "max"
	RulePattern       Rule = "pattern"
	RuleOneOf         Rule = "one_of"
	RuleNotBefore     Rule = "not_before"
)

// DefaultSampleSize bounds the offending rows kept in a Failure.
const DefaultSampleSize = 5

// Violation is one failing (row, field, rule) triple. Row is -1 for
// table-level problems such as a missing column.
type Violation struct {
	Row   int
	Field string
	Rule  Rule
	Value string
}

// Check identifies a (field, rule) pair for counting.
type Check struct {
	Field string
	Rule  Rule
}

// SampleRow is an offending row as text, in dataset column order.
type SampleRow struct {
	Row    int
	Values []string
}

// Failure is the structured rejection of a table.
type Failure struct {
	Table      string
	Rows       int
	Violations []Violation
	Counts     map[Check]int
	Columns    []string
	Sample     []SampleRow
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed validation: %d violation(s) in %d row(s) [%s]",
		f.Table, len(f.Violations), f.offendingRows(), f.Summary())
}

// Summary renders the per-check counts in a stable order.
func (f *Failure) Summary() string {
	checks := f.Checks()
	parts := make([]string, len(checks))
	for i, c := range checks {
		parts[i] = fmt.Sprintf("%s/%s=%d", c.Field, c.Rule, f.Counts[c])
	}
	return strings.Join(parts, ", ")
}

// Checks lists the failing (field, rule) pairs sorted by field then rule.
func (f *Failure) Checks() []Check {
	out := make([]Check, 0, len(f.Counts))
	for c := range f.Counts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

func (f *Failure) offendingRows() int {
	seen := make(map[int]struct{})
	for _, v := range f.Violations {
		if v.Row >= 0 {
			seen[v.Row] = struct{}{}
		}
	}
	return len(seen)
}

// Result is either a validated dataset or a failure, never both.
type Result struct {
	Dataset *dataset.Dataset
	Failure *Failure
}

func (r Result) OK() bool { return r.Failure == nil }

// Err returns the failure as an error, or nil.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

type Options struct {
	SampleSize int
}

// Validate evaluates c against ds. On success the returned dataset holds
// exactly the contract columns in contract order, with declared coercions
// applied. ds itself is never modified. A nil contract accepts ds as is.
func Validate(ds *dataset.Dataset, c *contract.Contract, opts Options) Result {
	if c == nil {
		return Result{Dataset: ds}
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultSampleSize
	}

	var violations []Violation
	fields := c.Fields()
	coerced := make(map[string][]dataset.Value, len(fields))

	for _, f := range fields {
		raw, ok := ds.Column(f.Name)
		if !ok {
			violations = append(violations, Violation{Row: -1, Field: f.Name, Rule: RuleColumnMissing})
			continue
		}
		out := make([]dataset.Value, len(raw))
		var seen map[string][]int
		if f.Unique {
			seen = make(map[string][]int)
		}
		re := c.Regexp(f.Name)

		for row, v := range raw {
			if v.IsNull() {
				if !f.Nullable {
					violations = append(violations, Violation{Row: row, Field: f.Name, Rule: RuleNullable})
				}
				continue
			}
			cv, ok := conform(v, f.Type, f.Coerce)
			if !ok {
				violations = append(violations, Violation{Row: row, Field: f.Name, Rule: RuleType, Value: v.String()})
				continue
			}
			out[row] = cv
			violations = append(violations, checkValue(row, f, cv, re)...)
			if seen != nil {
				key := cv.String()
				seen[key] = append(seen[key], row)
			}
		}
		for _, rows := range seen {
			if len(rows) < 2 {
				continue
			}
			for _, row := range rows {
				violations = append(violations, Violation{Row: row, Field: f.Name, Rule: RuleUnique, Value: out[row].String()})
			}
		}
		coerced[f.Name] = out
	}

	for _, f := range fields {
		if f.NotBefore == "" {
			continue
		}
		vals, okA := coerced[f.Name]
		ref, okB := coerced[f.NotBefore]
		if !okA || !okB {
			continue
		}
		for row := range vals {
			if vals[row].IsNull() || ref[row].IsNull() {
				continue
			}
			if vals[row].Compare(ref[row]) < 0 {
				violations = append(violations, Violation{Row: row, Field: f.Name, Rule: RuleNotBefore, Value: vals[row].String()})
			}
		}
	}

	if len(violations) == 0 {
		cols := make([]dataset.Column, len(fields))
		for i, f := range fields {
			cols[i] = dataset.Column{Name: f.Name, Values: coerced[f.Name]}
		}
		out, err := dataset.FromColumns(cols...)
		if err != nil {
			violations = append(violations, Violation{Row: -1, Field: "*", Rule: RuleType, Value: err.Error()})
		} else {
			return Result{Dataset: out}
		}
	}

	return Result{Failure: newFailure(c.Table, ds, violations, opts.SampleSize)}
}

func checkValue(row int, f contract.Field, v dataset.Value, re *regexp.Regexp) []Violation {
	var out []Violation
	if f.Min != nil || f.Max != nil {
		if d, ok := v.AsDecimal(); ok {
			if f.Min != nil && d.LessThan(*f.Min) {
				out = append(out, Violation{Row: row, Field: f.Name, Rule: RuleMin, Value: v.String()})
			}
			if f.Max != nil && d.GreaterThan(*f.Max) {
				out = append(out, Violation{Row: row, Field: f.Name, Rule: RuleMax, Value: v.String()})
			}
		}
	}
	if re != nil && !re.MatchString(v.String()) {
		out = append(out, Violation{Row: row, Field: f.Name, Rule: RulePattern, Value: v.String()})
	}
	if len(f.OneOf) > 0 {
		s := v.String()
		found := false
		for _, allowed := range f.OneOf {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			out = append(out, Violation{Row: row, Field: f.Name, Rule: RuleOneOf, Value: s})
		}
	}
	return out
}

// conform checks v against t, converting it when coerce is set.
func conform(v dataset.Value, t contract.Type, coerce bool) (dataset.Value, bool) {
	k := v.Kind()
	switch t {
	case contract.TypeString:
		if k == dataset.KindString {
			return v, true
		}
		if coerce {
			return dataset.String(v.String()), true
		}
	case contract.TypeInt:
		if k == dataset.KindInt {
			return v, true
		}
		if coerce {
			d, ok := v.AsDecimal()
			if ok && d.Equal(d.Truncate(0)) {
				return dataset.Int(d.IntPart()), true
			}
		}
	case contract.TypeDecimal:
		if k == dataset.KindDecimal {
			return v, true
		}
		if coerce {
			if d, ok := v.AsDecimal(); ok {
				return dataset.Decimal(d), true
			}
		}
	case contract.TypeFloat:
		if k == dataset.KindFloat {
			return v, true
		}
		if coerce {
			if f, ok := v.AsFloat(); ok {
				return dataset.Float(f), true
			}
		}
	case contract.TypeDate:
		if k == dataset.KindDate {
			return v, true
		}
		if coerce {
			if tm, ok := v.AsTime(); ok {
				return dataset.Date(tm), true
			}
		}
	case contract.TypeTimestamp:
		if k == dataset.KindTimestamp {
			return v, true
		}
		if coerce {
			if tm, ok := v.AsTime(); ok {
				return dataset.Timestamp(tm), true
			}
		}
	}
	return dataset.Null, false
}

func newFailure(table string, ds *dataset.Dataset, violations []Violation, sampleSize int) *Failure {
	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Row < violations[j].Row
	})
	f := &Failure{
		Table:      table,
		Rows:       ds.Len(),
		Violations: violations,
		Counts:     make(map[Check]int),
		Columns:    ds.Names(),
	}
	sampled := make(map[int]bool)
	for _, v := range violations {
		f.Counts[Check{Field: v.Field, Rule: v.Rule}]++
		if v.Row < 0 || sampled[v.Row] || len(f.Sample) >= sampleSize {
			continue
		}
		sampled[v.Row] = true
		row := ds.Row(v.Row)
		text := make([]string, len(row))
		for i, cell := range row {
			text[i] = cell.String()
		}
		f.Sample = append(f.Sample, SampleRow{Row: v.Row, Values: text})
	}
	return f
}
