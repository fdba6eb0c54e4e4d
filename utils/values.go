package utils

import (
	"fmt"
	"math"
	"time"

	"github.com/yamcs/yamcs-client-go/model"
)

// BuildValue converts a Go value into a typed Yamcs value.
//
// Integers that fit in 32 bits are sent as SINT32, others as SINT64.
func BuildValue(v interface{}) (model.Value, error) {
	switch x := v.(type) {
	case bool:
		return model.Value{Type: model.ValueTypeBoolean, BooleanValue: &x}, nil
	case float32:
		f := float64(x)
		return model.Value{Type: model.ValueTypeDouble, DoubleValue: &f}, nil
	case float64:
		return model.Value{Type: model.ValueTypeDouble, DoubleValue: &x}, nil
	case int:
		return buildInt(int64(x)), nil
	case int8:
		return buildInt(int64(x)), nil
	case int16:
		return buildInt(int64(x)), nil
	case int32:
		return buildInt(int64(x)), nil
	case int64:
		return buildInt(x), nil
	case uint8:
		return buildInt(int64(x)), nil
	case uint16:
		return buildInt(int64(x)), nil
	case uint32:
		return buildInt(int64(x)), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			u := model.Uint64(x)
			return model.Value{Type: model.ValueTypeUint64, Uint64Value: &u}, nil
		}
		return buildInt(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			u := model.Uint64(x)
			return model.Value{Type: model.ValueTypeUint64, Uint64Value: &u}, nil
		}
		return buildInt(int64(x)), nil
	case string:
		return model.Value{Type: model.ValueTypeString, StringValue: &x}, nil
	case []byte:
		return model.Value{Type: model.ValueTypeBinary, BinaryValue: x}, nil
	case time.Time:
		s := ToISOString(x)
		ms := model.Int64(x.UnixMilli())
		return model.Value{Type: model.ValueTypeTimestamp, TimestampValue: &ms, StringValue: &s}, nil
	case model.Value:
		return x, nil
	}
	return model.Value{}, fmt.Errorf("cannot convert %T: %w", v, model.ErrUnsupportedValue)
}

func buildInt(n int64) model.Value {
	if n > math.MaxInt32 || n < math.MinInt32 {
		v := model.Int64(n)
		return model.Value{Type: model.ValueTypeSint64, Sint64Value: &v}
	}
	v := int32(n)
	return model.Value{Type: model.ValueTypeSint32, Sint32Value: &v}
}
