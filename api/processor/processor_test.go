package processor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamcs/yamcs-client-go/internal/client"
	"github.com/yamcs/yamcs-client-go/model"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) add(req recordedRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

func (r *recorder) at(i int) recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[i]
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*ProcessorClient, *recorder) {
	t.Helper()
	recorded := &recorder{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		recorded.add(recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Query: r.URL.RawQuery, Body: string(body)})
		if handler != nil {
			handler(w, r)
		}
	}))
	t.Cleanup(ts.Close)

	session, err := client.NewSession(context.Background(), client.Config{Address: strings.TrimPrefix(ts.URL, "http://")})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close(context.Background()) })
	return NewProcessorClient(session, "simulator", "realtime"), recorded
}

func TestGetParameterValue(t *testing.T) {
	pc, recorded := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "BatteryVoltage2") {
			w.Write([]byte(`{"id":{"name":"/YSS/SIMULATOR/BatteryVoltage2"},"engValue":{"type":"UINT32","uint32Value":202}}`))
			return
		}
		w.Write([]byte(`{"id":{"name":"/YSS/SIMULATOR/Unset"}}`))
	})

	pval, err := pc.GetParameterValue(context.Background(), "/YSS/SIMULATOR/BatteryVoltage2")
	require.NoError(t, err)
	require.NotNil(t, pval)
	assert.Equal(t, uint32(202), pval.Eng())
	assert.Equal(t, "/api/processors/simulator/realtime/parameters/YSS/SIMULATOR/BatteryVoltage2", recorded.at(0).Path)
	assert.Equal(t, "fromCache=true&timeout=10000", recorded.at(0).Query)

	pval, err = pc.GetParameterValue(context.Background(), "/YSS/SIMULATOR/Unset", WithFromCache(false), WithTimeout(2*time.Second))
	require.NoError(t, err)
	assert.Nil(t, pval)
	assert.Equal(t, "fromCache=false&timeout=2000", recorded.at(1).Query)
}

func TestGetParameterValuesAlignsOrder(t *testing.T) {
	pc, recorded := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[
			{"id":{"name":"BatteryVoltage1","namespace":"MDB:OPS Name"},"engValue":{"type":"UINT32","uint32Value":1}},
			{"id":{"name":"/YSS/SIMULATOR/BatteryVoltage2"},"engValue":{"type":"UINT32","uint32Value":2}}
		]}`))
	})

	pvals, err := pc.GetParameterValues(context.Background(), []string{
		"/YSS/SIMULATOR/BatteryVoltage2",
		"/YSS/SIMULATOR/Missing",
		"MDB:OPS Name/BatteryVoltage1",
	})
	require.NoError(t, err)
	require.Len(t, pvals, 3)
	assert.Equal(t, uint32(2), pvals[0].Eng())
	assert.Nil(t, pvals[1])
	assert.Equal(t, uint32(1), pvals[2].Eng())

	req := recorded.at(0)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/processors/simulator/realtime/parameters/mget", req.Path)
	assert.JSONEq(t, `{"id":[
		{"name":"/YSS/SIMULATOR/BatteryVoltage2"},
		{"name":"/YSS/SIMULATOR/Missing"},
		{"name":"BatteryVoltage1","namespace":"MDB:OPS Name"}
	]}`, req.Body)

	_, err = pc.GetParameterValues(context.Background(), []string{"BatteryVoltage1"})
	assert.True(t, errors.Is(err, model.ErrInvalidName))
}

func TestSetParameterValues(t *testing.T) {
	pc, recorded := newTestClient(t, nil)

	require.NoError(t, pc.SetParameterValue(context.Background(), "/YSS/SIMULATOR/AllowCriticalTC1", true))
	assert.Equal(t, http.MethodPut, recorded.at(0).Method)
	assert.Equal(t, "/api/processors/simulator/realtime/parameters/YSS/SIMULATOR/AllowCriticalTC1", recorded.at(0).Path)
	assert.JSONEq(t, `{"type":"BOOLEAN","booleanValue":true}`, recorded.at(0).Body)

	require.NoError(t, pc.SetParameterValues(context.Background(), map[string]interface{}{
		"/YSS/SIMULATOR/AllowCriticalTC1": false,
		"/YSS/SIMULATOR/AllowCriticalTC2": false,
	}))
	assert.Equal(t, "/api/processors/simulator/realtime/parameters/mset", recorded.at(1).Path)
	assert.JSONEq(t, `{"request":[
		{"id":{"name":"/YSS/SIMULATOR/AllowCriticalTC1"},"value":{"type":"BOOLEAN","booleanValue":false}},
		{"id":{"name":"/YSS/SIMULATOR/AllowCriticalTC2"},"value":{"type":"BOOLEAN","booleanValue":false}}
	]}`, recorded.at(1).Body)

	err := pc.SetParameterValue(context.Background(), "/YSS/SIMULATOR/X", struct{}{})
	assert.True(t, errors.Is(err, model.ErrUnsupportedValue))
}

func TestIssueCommand(t *testing.T) {
	pc, recorded := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"commandQueueEntry":{"cmdId":{"generationTime":"1546300800000","origin":"host","sequenceNumber":1,"commandName":"/YSS/SIMULATOR/SWITCH_VOLTAGE_ON"},"username":"operator","queueName":"default"},"source":"SWITCH_VOLTAGE_ON(voltage_num: 1)"}`))
	})

	issued, err := pc.IssueCommand(context.Background(), "/YSS/SIMULATOR/SWITCH_VOLTAGE_ON",
		map[string]interface{}{"voltage_num": 1}, WithComment("test"), WithDryRun(true))
	require.NoError(t, err)
	assert.Equal(t, "/YSS/SIMULATOR/SWITCH_VOLTAGE_ON", issued.Name())
	assert.Equal(t, "operator", issued.Username())
	assert.Equal(t, "default", issued.Queue())

	var body issueCommandRequest
	require.NoError(t, json.Unmarshal([]byte(recorded.at(0).Body), &body))
	assert.Equal(t, "/api/processors/simulator/realtime/commands/YSS/SIMULATOR/SWITCH_VOLTAGE_ON", recorded.at(0).Path)
	assert.True(t, body.DryRun)
	assert.Equal(t, "test", body.Comment)
	assert.NotEmpty(t, body.Origin)
	assert.Equal(t, []argumentAssignment{{Name: "voltage_num", Value: "1"}}, body.Assignment)

	_, err = pc.IssueCommand(context.Background(), "/YSS/SIMULATOR/SWITCH_VOLTAGE_ON", nil)
	require.NoError(t, err)
	var second issueCommandRequest
	require.NoError(t, json.Unmarshal([]byte(recorded.at(1).Body), &second))
	assert.Greater(t, second.SequenceNumber, body.SequenceNumber)
	assert.Empty(t, second.Assignment)
}

func TestAlarms(t *testing.T) {
	pc, recorded := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"alarm":[{"type":"TRIGGERED","seqNum":3,"violations":2,"triggerValue":{"id":{"name":"/YSS/SIMULATOR/BatteryVoltage2"}}}]}`))
		}
	})

	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	alarms, err := pc.ListAlarms(context.Background(), start, time.Time{})
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, "/YSS/SIMULATOR/BatteryVoltage2", alarms[0].Name())
	assert.Equal(t, "order=asc&start=2019-01-01T00%3A00%3A00.000Z", recorded.at(0).Query)

	require.NoError(t, pc.AcknowledgeAlarm(context.Background(), &alarms[0], "seen"))
	assert.Equal(t, http.MethodPut, recorded.at(1).Method)
	assert.Equal(t, "/api/processors/simulator/realtime/parameters/YSS/SIMULATOR/BatteryVoltage2/alarms/3", recorded.at(1).Path)
	assert.JSONEq(t, `{"state":"acknowledged","comment":"seen"}`, recorded.at(1).Body)

	assert.Error(t, pc.AcknowledgeAlarm(context.Background(), &model.Alarm{}, ""))
}

func TestCalibrators(t *testing.T) {
	pc, recorded := newTestClient(t, nil)
	ctx := context.Background()
	name := "/YSS/SIMULATOR/BatteryVoltage2"

	require.NoError(t, pc.SetDefaultCalibrator(ctx, name, &model.Calibrator{Type: "POLYNOMIAL", Polynomial: []float64{1, 0.1}}))
	assert.Equal(t, "/api/mdb/simulator/realtime/parameters/YSS/SIMULATOR/BatteryVoltage2", recorded.at(0).Path)
	assert.JSONEq(t, `{"action":"SET_DEFAULT_CALIBRATOR","defaultCalibrator":{"type":"POLYNOMIAL","polynomialCalibrator":{"coefficient":[1,0.1]}}}`, recorded.at(0).Body)

	require.NoError(t, pc.SetCalibrators(ctx, name, []model.Calibrator{
		{Context: "/YSS/SIMULATOR/BatteryVoltage1 > 1", Type: model.CalibratorSpline, Spline: []model.SplinePoint{{Raw: 0, Calibrated: 1}, {Raw: 10, Calibrated: 2}}},
		{Type: model.CalibratorPolynomial, Polynomial: []float64{0, 2}},
	}))
	assert.JSONEq(t, `{"action":"SET_CALIBRATORS",
		"defaultCalibrator":{"type":"POLYNOMIAL","polynomialCalibrator":{"coefficient":[0,2]}},
		"contextCalibrator":[{"context":"/YSS/SIMULATOR/BatteryVoltage1 > 1","calibrator":{"type":"SPLINE","splineCalibrator":{"point":[{"raw":0,"calibrated":1},{"raw":10,"calibrated":2}]}}}]}`,
		recorded.at(1).Body)

	require.NoError(t, pc.ClearCalibrators(ctx, name))
	assert.JSONEq(t, `{"action":"SET_DEFAULT_CALIBRATOR"}`, recorded.at(2).Body)
	assert.JSONEq(t, `{"action":"SET_CALIBRATORS"}`, recorded.at(3).Body)

	require.NoError(t, pc.ResetCalibrators(ctx, name))
	assert.JSONEq(t, `{"action":"RESET_CALIBRATORS"}`, recorded.at(4).Body)

	err := pc.SetDefaultCalibrator(ctx, name, &model.Calibrator{Type: "lookup"})
	assert.Error(t, err)
	assert.Equal(t, 5, recorded.len())
}

func TestAlarmRanges(t *testing.T) {
	pc, recorded := newTestClient(t, nil)
	ctx := context.Background()
	name := "/YSS/SIMULATOR/BatteryVoltage2"

	require.NoError(t, pc.SetDefaultAlarmRanges(ctx, name, model.RangeSet{
		Watch:    model.NewRange(-10, 10),
		Critical: &model.Range{High: floatPtr(50)},
	}))
	assert.JSONEq(t, `{"action":"SET_DEFAULT_ALARMS","defaultAlarm":{"minViolations":1,"staticAlarmRange":[
		{"level":"WATCH","minExclusive":-10,"maxExclusive":10},
		{"level":"CRITICAL","maxExclusive":50}]}}`, recorded.at(0).Body)

	require.NoError(t, pc.SetAlarmRangeSets(ctx, name, []model.RangeSet{
		{Context: "/YSS/SIMULATOR/Mode == 1", Warning: model.NewRange(0, 5), MinViolations: 3},
	}))
	assert.JSONEq(t, `{"action":"SET_ALARMS","contextAlarm":[{"context":"/YSS/SIMULATOR/Mode == 1",
		"alarm":{"minViolations":3,"staticAlarmRange":[{"level":"WARNING","minExclusive":0,"maxExclusive":5}]}}]}`, recorded.at(1).Body)

	require.NoError(t, pc.ClearAlarmRanges(ctx, name))
	assert.JSONEq(t, `{"action":"SET_DEFAULT_ALARMS"}`, recorded.at(2).Body)
	assert.JSONEq(t, `{"action":"SET_ALARMS"}`, recorded.at(3).Body)

	require.NoError(t, pc.ResetAlarmRanges(ctx, name))
	assert.JSONEq(t, `{"action":"RESET_ALARMS"}`, recorded.at(4).Body)
}

func TestAlgorithms(t *testing.T) {
	pc, recorded := newTestClient(t, nil)
	ctx := context.Background()

	require.NoError(t, pc.SetAlgorithm(ctx, "/YSS/SIMULATOR/Copy", "out0.setFloatValue(in0.getEngValue().getFloatValue());"))
	assert.Equal(t, "/api/mdb/simulator/realtime/algorithms/YSS/SIMULATOR/Copy", recorded.at(0).Path)
	assert.JSONEq(t, `{"action":"SET","algorithm":{"text":"out0.setFloatValue(in0.getEngValue().getFloatValue());"}}`, recorded.at(0).Body)

	require.NoError(t, pc.ResetAlgorithm(ctx, "/YSS/SIMULATOR/Copy"))
	assert.JSONEq(t, `{"action":"RESET"}`, recorded.at(1).Body)
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{in: "ON", want: "ON"},
		{in: 3, want: "3"},
		{in: true, want: "true"},
		{in: 2.5, want: "2.5"},
		{in: float32(0.1), want: "0.1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stringify(tt.in))
	}
}

func floatPtr(f float64) *float64 { return &f }
