// Package columnar provides the typed, nullable columnar data model of cpandas
package columnar

import (
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// DType represents the element type of a column. The numeric values are
// also the on-disk tags of the CPD format.
type DType uint8

const (
	// Int64 is a 64-bit signed integer column
	Int64 DType = 1
	// Float64 is a 64-bit IEEE 754 column; NaN is a valid non-null value
	Float64 DType = 2
	// String is a byte string column
	String DType = 3
)

// String returns the canonical dtype name
func (d DType) String() string {
	switch d {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	default:
		return "dtype(" + strconv.Itoa(int(d)) + ")"
	}
}

// Valid reports whether d is one of the three supported dtypes
func (d DType) Valid() bool {
	return d == Int64 || d == Float64 || d == String
}

// IsNumeric reports whether d is Int64 or Float64
func (d DType) IsNumeric() bool {
	return d == Int64 || d == Float64
}

// ParseDType parses a dtype name such as "int64", "float" or "str".
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int64", "int", "integer", "i64":
		return Int64, nil
	case "float64", "float", "double", "f64":
		return Float64, nil
	case "string", "str", "utf8", "object":
		return String, nil
	default:
		return 0, errors.Newf(errors.CodeInvalid, "unknown dtype %q", s)
	}
}

// Value is a single nullable cell. Only the field matching Type is meaningful.
type Value struct {
	Type  DType
	Null  bool
	Int   int64
	Float float64
	Str   string
}

// IntValue returns a non-null Int64 value
func IntValue(v int64) Value { return Value{Type: Int64, Int: v} }

// FloatValue returns a non-null Float64 value
func FloatValue(v float64) Value { return Value{Type: Float64, Float: v} }

// StringValue returns a non-null String value
func StringValue(v string) Value { return Value{Type: String, Str: v} }

// NullValue returns a null value of the given dtype
func NullValue(t DType) Value { return Value{Type: t, Null: true} }

// IsNaN reports whether v is a non-null Float64 NaN
func (v Value) IsNaN() bool {
	return v.Type == Float64 && !v.Null && math.IsNaN(v.Float)
}

// ValidNumeric reports whether v is non-null, numeric and not NaN
func (v Value) ValidNumeric() bool {
	switch v.Type {
	case Int64:
		return !v.Null
	case Float64:
		return !v.Null && !math.IsNaN(v.Float)
	}
	return false
}

// Equal compares by identity: nulls are equal to each other and NaN equals NaN.
// This is the equality used by grouping, deduplication and join keys; it is
// not the query-language "==".
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	if v.Null || o.Null {
		return v.Null && o.Null
	}
	switch v.Type {
	case Int64:
		return v.Int == o.Int
	case Float64:
		if math.IsNaN(v.Float) || math.IsNaN(o.Float) {
			return math.IsNaN(v.Float) && math.IsNaN(o.Float)
		}
		return v.Float == o.Float
	case String:
		return v.Str == o.Str
	}
	return false
}

// String formats v as text. Floats use the shortest round-trip representation.
func (v Value) String() string {
	if v.Null {
		return "null"
	}
	switch v.Type {
	case Int64:
		return strconv.FormatInt(v.Int, 10)
	case Float64:
		return formatFloat(v.Float)
	case String:
		return v.Str
	}
	return ""
}

// Interface returns the Go value held by v, or nil when null.
func (v Value) Interface() interface{} {
	if v.Null {
		return nil
	}
	switch v.Type {
	case Int64:
		return v.Int
	case Float64:
		return v.Float
	case String:
		return v.Str
	}
	return nil
}

// As converts v to dtype t for assignment into a column. Int64 widens to
// Float64; every other cross-type conversion is rejected.
func (v Value) As(t DType) (Value, error) {
	if v.Type == t {
		return v, nil
	}
	if v.Null {
		return NullValue(t), nil
	}
	if v.Type == Int64 && t == Float64 {
		return FloatValue(float64(v.Int)), nil
	}
	return Value{}, errors.Newf(errors.CodeInvalid, "cannot use %s value as %s", v.Type, t)
}

// ParseValue parses text as a value of dtype t. Numeric text is trimmed;
// string text is kept verbatim.
func ParseValue(t DType, text string) (Value, error) {
	switch t {
	case Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Value{}, errors.Newf(errors.CodeParse, "invalid int64 %q", text)
		}
		return IntValue(n), nil
	case Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Value{}, errors.Newf(errors.CodeParse, "invalid float64 %q", text)
		}
		return FloatValue(f), nil
	case String:
		return StringValue(text), nil
	}
	return Value{}, errors.Newf(errors.CodeInvalid, "unsupported dtype %s", t)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
