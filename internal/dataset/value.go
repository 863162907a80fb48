package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindDecimal
	KindDate
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single cell. The zero Value is Null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	d    decimal.Decimal
	t    time.Time
}

var Null = Value{}

func String(s string) Value { return Value{kind: KindString, s: s} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t.UTC()} }

// NullableString returns Null for empty (after trim) input.
func NullableString(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Null
	}
	return String(s)
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the raw string payload; only meaningful for KindString.
func (v Value) Str() string { return v.s }

// Int64 returns the raw integer payload; only meaningful for KindInt.
func (v Value) Int64() int64 { return v.i }

// Dec returns the raw decimal payload; only meaningful for KindDecimal.
func (v Value) Dec() decimal.Decimal { return v.d }

// Time returns the raw time payload; only meaningful for KindDate and KindTimestamp.
func (v Value) Time() time.Time { return v.t }

// String renders the value in its canonical text form. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDecimal:
		return v.d.String()
	case KindDate:
		return v.t.Format(DateLayout)
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Any converts the value into a database/sql friendly Go value.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.d
	case KindDate, KindTimestamp:
		return v.t
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDecimal:
		return v.d.Equal(o.d)
	default:
		return v.t.Equal(o.t)
	}
}

// Compare orders values of comparable kinds. Null sorts first. Values of
// unrelated kinds fall back to comparing their text form.
func (v Value) Compare(o Value) int {
	if v.IsNull() || o.IsNull() {
		switch {
		case v.IsNull() && o.IsNull():
			return 0
		case v.IsNull():
			return -1
		default:
			return 1
		}
	}
	if isTemporal(v.kind) && isTemporal(o.kind) {
		return v.t.Compare(o.t)
	}
	if isNumeric(v.kind) && isNumeric(o.kind) {
		a, _ := v.AsDecimal()
		b, _ := o.AsDecimal()
		return a.Cmp(b)
	}
	return strings.Compare(v.String(), o.String())
}

func isTemporal(k Kind) bool { return k == KindDate || k == KindTimestamp }

func isNumeric(k Kind) bool { return k == KindInt || k == KindFloat || k == KindDecimal }

// AsString returns the trimmed text of a non-null value.
func (v Value) AsString() (string, bool) {
	if v.IsNull() {
		return "", false
	}
	s := strings.TrimSpace(v.String())
	return s, s != ""
}

// AsDecimal coerces numeric kinds and numeric text.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindDecimal:
		return v.d, true
	case KindInt:
		return decimal.NewFromInt(v.i), true
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v.f), true
	case KindString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// AsInt coerces integral values. Fractional numbers are truncated.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat, KindDecimal, KindString:
		d, ok := v.AsDecimal()
		if !ok {
			return 0, false
		}
		return d.IntPart(), true
	default:
		return 0, false
	}
}

// AsFloat coerces numeric values to float64.
func (v Value) AsFloat() (float64, bool) {
	if v.kind == KindFloat {
		return v.f, true
	}
	d, ok := v.AsDecimal()
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// AsTime coerces temporal kinds and date/time text.
func (v Value) AsTime() (time.Time, bool) {
	switch v.kind {
	case KindDate, KindTimestamp:
		return v.t, true
	case KindString:
		return ParseTime(v.s)
	default:
		return time.Time{}, false
	}
}

const DateLayout = "2006-01-02"

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	DateLayout,
	"01/02/2006",
	"20060102",
}

// ParseTime tries the accepted layouts in order and returns the instant in UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FromAny converts a value scanned by database/sql into a Value.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case string:
		return String(t)
	case []byte:
		return String(string(t))
	case int64:
		return Int(t)
	case int32:
		return Int(int64(t))
	case int:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case float64:
		return Float(t)
	case float32:
		return Float(float64(t))
	case bool:
		if t {
			return Int(1)
		}
		return Int(0)
	case decimal.Decimal:
		return Decimal(t)
	case time.Time:
		return Timestamp(t)
	case fmt.Stringer:
		return String(t.String())
	default:
		return String(fmt.Sprint(t))
	}
}
