// Package exprlang implements the closed expression language used by rule
// triggers and severity/confidence ladders.
//
// The language covers literals (true/false/null, quoted strings, numbers),
// identifiers resolved against a flat variable environment, the comparison
// operators == != > < >= <=, the connectives AND OR NOT, parenthesized
// grouping, and the built-in aggregates MIN, MAX, COUNT and SUM.
//
// Evaluation is data-driven over this fixed operator/function set. Rule text
// is authored by non-engineers and arrives from semi-trusted configuration,
// so nothing here ever reaches a general-purpose evaluation facility.
package exprlang

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the variants a Value can hold.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	}
	return "unknown"
}

// Value is the tagged variant flowing through the evaluator. Exactly one of
// the payload fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	Bool bool
	Num  float64
	Str  string
	List []Value
}

// Null is the absent/unknown value.
func Null() Value { return Value{Kind: KindNull} }

// Boolean wraps a bool.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number wraps a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Str wraps a string.
func Str(s string) Value { return Value{Kind: KindString, Str: s} }

// FromAny converts a raw variable-environment value into a Value.
// Environments are built by an external collaborator from decoded JSON, so
// the accepted shapes are the JSON scalar set plus lists of them.
func FromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Boolean(v), nil
	case int:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case float32:
		return Number(float64(v)), nil
	case float64:
		return Number(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("exprlang: bad numeric variable %q: %w", v.String(), err)
		}
		return Number(f), nil
	case string:
		return Str(v), nil
	case []any:
		list := make([]Value, 0, len(v))
		for _, elem := range v {
			ev, err := FromAny(elem)
			if err != nil {
				return Value{}, err
			}
			list = append(list, ev)
		}
		return Value{Kind: KindList, List: list}, nil
	case []string:
		list := make([]Value, 0, len(v))
		for _, elem := range v {
			list = append(list, Str(elem))
		}
		return Value{Kind: KindList, List: list}, nil
	}
	return Value{}, fmt.Errorf("exprlang: unsupported variable type %T", raw)
}

// equals implements the == operator. Null equals only null; numbers compare
// numerically; kind mismatches are simply unequal, never an error.
func equals(l, r Value) bool {
	if l.Kind != r.Kind {
		return false
	}
	switch l.Kind {
	case KindNull:
		return true
	case KindBool:
		return l.Bool == r.Bool
	case KindNumber:
		return l.Num == r.Num
	case KindString:
		return l.Str == r.Str
	}
	// Lists never compare equal through the operator set.
	return false
}

// formatNumber renders a number the way rule authors wrote it: integral
// values without a decimal point.
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return formatNumber(v.Num)
	case KindString:
		return v.Str
	case KindList:
		return fmt.Sprintf("list(%d)", len(v.List))
	}
	return "unknown"
}
