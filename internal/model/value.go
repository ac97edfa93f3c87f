package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindNumber
	KindString
)

// Value is a single cell of a dataset row: a number, a string or null.
type Value struct {
	kind ValueKind
	num  float64
	str  string
}

func NullValue() Value {
	return Value{}
}

func NumberValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// ValueOf converts a decoded scalar (as produced by encoding/json, yaml or
// spreadsheet readers) into a Value. Booleans become their string form.
func ValueOf(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return NullValue()
	case Value:
		return t
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return NumberValue(float64(t))
	case int64:
		return NumberValue(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return NumberValue(f)
		}
		return StringValue(t.String())
	case string:
		return StringValue(t)
	case bool:
		return StringValue(strconv.FormatBool(t))
	default:
		return StringValue(fmt.Sprint(t))
	}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Float coerces the value to a number. Strings are accepted when they parse
// as a finite float after trimming; null and anything else is not numeric.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// FloatOrZero is Float with non-numeric values mapped to 0.
func (v Value) FloatOrZero() float64 {
	f, _ := v.Float()
	return f
}

// String renders the value the way it is used as a group key or label.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	}
	return ""
}

func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*v = NullValue()
		return nil
	}
	switch trimmed[0] {
	case '{', '[':
		*v = StringValue(string(trimmed))
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("invalid cell value: %w", err)
	}
	*v = ValueOf(raw)
	return nil
}
