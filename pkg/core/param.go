package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ParamKind identifies the scalar type held by a ParamValue.
type ParamKind uint8

// Parameter value kinds.
const (
	ParamInvalid ParamKind = iota
	ParamString
	ParamNumber
	ParamBool
)

// String returns the kind name.
func (k ParamKind) String() string {
	switch k {
	case ParamString:
		return "string"
	case ParamNumber:
		return "number"
	case ParamBool:
		return "boolean"
	default:
		return "invalid"
	}
}

// ErrNonScalarParam is returned when a parameter value is not a string, number or boolean.
var ErrNonScalarParam = errors.New("parameter value must be a string, number or boolean")

// ParamValue is a scalar bound to a query parameter.
// The zero value is invalid and refuses to serialize.
type ParamValue struct {
	kind ParamKind
	str  string
	num  float64
	b    bool
}

// StringParam returns a string parameter value.
func StringParam(s string) ParamValue { return ParamValue{kind: ParamString, str: s} }

// NumberParam returns a numeric parameter value.
func NumberParam(n float64) ParamValue { return ParamValue{kind: ParamNumber, num: n} }

// BoolParam returns a boolean parameter value.
func BoolParam(b bool) ParamValue { return ParamValue{kind: ParamBool, b: b} }

// ParseParam interprets raw text the way a form field would: booleans and
// numbers are recognized, anything else is a string.
func ParseParam(raw string) ParamValue {
	switch raw {
	case "true":
		return BoolParam(true)
	case "false":
		return BoolParam(false)
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		return NumberParam(n)
	}
	return StringParam(raw)
}

// Kind reports the scalar type.
func (p ParamValue) Kind() ParamKind { return p.kind }

// Value returns the scalar as string, float64 or bool, or nil when invalid.
func (p ParamValue) Value() any {
	switch p.kind {
	case ParamString:
		return p.str
	case ParamNumber:
		return p.num
	case ParamBool:
		return p.b
	default:
		return nil
	}
}

// String formats the value for display.
func (p ParamValue) String() string {
	switch p.kind {
	case ParamString:
		return p.str
	case ParamNumber:
		return strconv.FormatFloat(p.num, 'g', -1, 64)
	case ParamBool:
		return strconv.FormatBool(p.b)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the value as a bare JSON scalar.
func (p ParamValue) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case ParamString:
		return json.Marshal(p.str)
	case ParamNumber:
		return json.Marshal(p.num)
	case ParamBool:
		return json.Marshal(p.b)
	default:
		return nil, ErrNonScalarParam
	}
}

// UnmarshalJSON accepts a JSON string, number or boolean.
func (p *ParamValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := paramFromAny(raw)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalYAML encodes the value as a bare YAML scalar.
func (p ParamValue) MarshalYAML() (any, error) {
	if p.kind == ParamInvalid {
		return nil, ErrNonScalarParam
	}
	return p.Value(), nil
}

// UnmarshalYAML accepts a YAML string, number or boolean.
func (p *ParamValue) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := paramFromAny(raw)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func paramFromAny(raw any) (ParamValue, error) {
	switch v := raw.(type) {
	case string:
		return StringParam(v), nil
	case float64:
		return NumberParam(v), nil
	case int:
		return NumberParam(float64(v)), nil
	case bool:
		return BoolParam(v), nil
	default:
		return ParamValue{}, fmt.Errorf("%w: got %T", ErrNonScalarParam, raw)
	}
}
