package utils

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamcs/yamcs-client-go/model"
)

func TestAdaptNameForREST(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/YSS/SIMULATOR/BatteryVoltage1", "/YSS/SIMULATOR/BatteryVoltage1"},
		{"MDB:OPS Name/SIMULATOR_PrimBusVoltage1", "/MDB:OPS%20Name/SIMULATOR_PrimBusVoltage1"},
		{"standalone", "/standalone"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, AdaptNameForREST(tt.in))
		})
	}
}

func TestBuildNamedObjectID(t *testing.T) {
	id, err := BuildNamedObjectID("/YSS/SIMULATOR/BatteryVoltage1")
	require.NoError(t, err)
	assert.Equal(t, model.NamedObjectID{Name: "/YSS/SIMULATOR/BatteryVoltage1"}, id)

	id, err = BuildNamedObjectID("MDB:OPS Name/SIMULATOR_PrimBusVoltage1")
	require.NoError(t, err)
	assert.Equal(t, model.NamedObjectID{Namespace: "MDB:OPS Name", Name: "SIMULATOR_PrimBusVoltage1"}, id)
	assert.Equal(t, "MDB:OPS Name/SIMULATOR_PrimBusVoltage1", id.String())

	for _, invalid := range []string{"BatteryVoltage1", "ns/", ""} {
		_, err := BuildNamedObjectID(invalid)
		assert.True(t, errors.Is(err, model.ErrInvalidName), invalid)
	}

	_, err = BuildNamedObjectIDs([]string{"/a", "b"})
	assert.True(t, errors.Is(err, model.ErrInvalidName))
}

func TestBuildValue(t *testing.T) {
	tests := []struct {
		name     string
		in       interface{}
		wantType string
		want     interface{}
	}{
		{"bool", true, model.ValueTypeBoolean, true},
		{"int", 5, model.ValueTypeSint32, int32(5)},
		{"large int", int64(math.MaxInt32) + 1, model.ValueTypeSint64, int64(math.MaxInt32) + 1},
		{"huge uint", uint64(math.MaxUint64), model.ValueTypeUint64, uint64(math.MaxUint64)},
		{"float32", float32(0.5), model.ValueTypeDouble, 0.5},
		{"string", "on", model.ValueTypeString, "on"},
		{"bytes", []byte{0xca, 0xfe}, model.ValueTypeBinary, []byte{0xca, 0xfe}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := BuildValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, v.Type)
			assert.Equal(t, tt.want, v.Interface())
		})
	}

	ts := time.Date(2019, 1, 1, 12, 0, 0, 0, time.UTC)
	v, err := BuildValue(ts)
	require.NoError(t, err)
	assert.Equal(t, model.ValueTypeTimestamp, v.Type)
	assert.Equal(t, "2019-01-01T12:00:00.000Z", *v.StringValue)
	require.NotNil(t, v.TimestampValue)
	assert.Equal(t, model.Int64(1546344000000), *v.TimestampValue)
	assert.Equal(t, ts, v.Interface())

	_, err = BuildValue(struct{}{})
	assert.True(t, errors.Is(err, model.ErrUnsupportedValue))
}

func TestISOString(t *testing.T) {
	ts := time.Date(2019, 1, 1, 12, 0, 0, 123456789, time.FixedZone("CET", 3600))
	s := ToISOString(ts)
	assert.Equal(t, "2019-01-01T11:00:00.123Z", s)

	parsed, err := ParseISOString(s)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts.Truncate(time.Millisecond)))
	assert.Equal(t, time.UTC, parsed.Location())

	_, err = ParseISOString("yesterday")
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("YAMCS_TEST_TIMEOUT", "15s")
	t.Setenv("YAMCS_TEST_NUMBER", "nope")
	assert.Equal(t, 15*time.Second, GetEnvAsDuration("YAMCS_TEST_TIMEOUT", time.Second))
	assert.Equal(t, 3, GetEnvAsInt("YAMCS_TEST_NUMBER", 3))
	assert.Equal(t, "fallback", GetEnv("YAMCS_TEST_UNSET", "fallback"))
}
