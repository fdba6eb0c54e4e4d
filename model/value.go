package model

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Value types as exchanged with Yamcs.
const (
	ValueTypeFloat      = "FLOAT"
	ValueTypeDouble     = "DOUBLE"
	ValueTypeUint32     = "UINT32"
	ValueTypeSint32     = "SINT32"
	ValueTypeUint64     = "UINT64"
	ValueTypeSint64     = "SINT64"
	ValueTypeBoolean    = "BOOLEAN"
	ValueTypeString     = "STRING"
	ValueTypeBinary     = "BINARY"
	ValueTypeTimestamp  = "TIMESTAMP"
	ValueTypeEnumerated = "ENUMERATED"
	ValueTypeAggregate  = "AGGREGATE"
	ValueTypeArray      = "ARRAY"
)

// Int64 is a 64-bit integer that is encoded as a JSON string but accepts plain numbers too.
type Int64 int64

func (i Int64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(i), 10))), nil
}

func (i *Int64) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid int64 %q: %w", b, err)
	}
	*i = Int64(v)
	return nil
}

// Uint64 is the unsigned counterpart of Int64.
type Uint64 uint64

func (u Uint64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(u), 10))), nil
}

func (u *Uint64) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*u = 0
		return nil
	}
	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 %q: %w", b, err)
	}
	*u = Uint64(v)
	return nil
}

// AggregateValue holds the members of an aggregate value in declaration order.
type AggregateValue struct {
	Name  []string `json:"name,omitempty"`
	Value []Value  `json:"value,omitempty"`
}

// Value is a typed scalar (or composite) value.
type Value struct {
	Type           string          `json:"type"`
	FloatValue     *float32        `json:"floatValue,omitempty"`
	DoubleValue    *float64        `json:"doubleValue,omitempty"`
	Sint32Value    *int32          `json:"sint32Value,omitempty"`
	Uint32Value    *uint32         `json:"uint32Value,omitempty"`
	Sint64Value    *Int64          `json:"sint64Value,omitempty"`
	Uint64Value    *Uint64         `json:"uint64Value,omitempty"`
	BooleanValue   *bool           `json:"booleanValue,omitempty"`
	StringValue    *string         `json:"stringValue,omitempty"`
	BinaryValue    []byte          `json:"binaryValue,omitempty"`
	TimestampValue *Int64          `json:"timestampValue,omitempty"`
	AggregateValue *AggregateValue `json:"aggregateValue,omitempty"`
	ArrayValue     []Value         `json:"arrayValue,omitempty"`
}

// Interface returns the Go representation of v.
//
// Timestamps are returned as time.Time, enumerations as their string label,
// aggregates as map[string]interface{} and arrays as []interface{}.
func (v *Value) Interface() interface{} {
	if v == nil {
		return nil
	}
	switch v.Type {
	case ValueTypeFloat:
		if v.FloatValue != nil {
			return *v.FloatValue
		}
	case ValueTypeDouble:
		if v.DoubleValue != nil {
			return *v.DoubleValue
		}
	case ValueTypeSint32:
		if v.Sint32Value != nil {
			return *v.Sint32Value
		}
	case ValueTypeUint32:
		if v.Uint32Value != nil {
			return *v.Uint32Value
		}
	case ValueTypeSint64:
		if v.Sint64Value != nil {
			return int64(*v.Sint64Value)
		}
	case ValueTypeUint64:
		if v.Uint64Value != nil {
			return uint64(*v.Uint64Value)
		}
	case ValueTypeBoolean:
		if v.BooleanValue != nil {
			return *v.BooleanValue
		}
	case ValueTypeString, ValueTypeEnumerated:
		if v.StringValue != nil {
			return *v.StringValue
		}
	case ValueTypeBinary:
		return v.BinaryValue
	case ValueTypeTimestamp:
		if v.StringValue != nil {
			if t, err := time.Parse(time.RFC3339Nano, *v.StringValue); err == nil {
				return t
			}
		}
		if v.TimestampValue != nil {
			return time.UnixMilli(int64(*v.TimestampValue)).UTC()
		}
	case ValueTypeAggregate:
		if v.AggregateValue == nil {
			return nil
		}
		m := make(map[string]interface{}, len(v.AggregateValue.Name))
		for i, name := range v.AggregateValue.Name {
			if i < len(v.AggregateValue.Value) {
				m[name] = v.AggregateValue.Value[i].Interface()
			}
		}
		return m
	case ValueTypeArray:
		arr := make([]interface{}, 0, len(v.ArrayValue))
		for i := range v.ArrayValue {
			arr = append(arr, v.ArrayValue[i].Interface())
		}
		return arr
	}
	return nil
}

// Float64 returns the numeric value of v, if it has one.
func (v *Value) Float64() (float64, bool) {
	switch n := v.Interface().(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (v *Value) String() string {
	if v == nil {
		return "None"
	}
	switch x := v.Interface().(type) {
	case nil:
		return "None"
	case []byte:
		return fmt.Sprintf("%x", x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
