package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yamcs/yamcs-client-go/internal/client"
	"github.com/yamcs/yamcs-client-go/internal/websocket"
	"github.com/yamcs/yamcs-client-go/internal/websocket/wstest"
	"github.com/yamcs/yamcs-client-go/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newSubscriptionClient(t *testing.T, srv *wstest.Server) *ProcessorClient {
	t.Helper()
	session, err := client.NewSession(context.Background(), client.Config{Address: srv.Address()})
	require.NoError(t, err)
	return NewProcessorClient(session, "simulator", "realtime")
}

func parameterData(name string, value uint32) map[string]interface{} {
	return map[string]interface{}{
		"parameter": []map[string]interface{}{{
			"id":       map[string]string{"name": name},
			"engValue": map[string]interface{}{"type": "UINT32", "uint32Value": value},
		}},
	}
}

func TestParameterSubscription(t *testing.T) {
	requests := make(chan *wstest.Request, 4)
	srv := wstest.NewServer(func(c *wstest.Conn) {
		assert.Equal(t, "/_websocket/simulator/realtime", c.Path)
		req, err := c.ReadRequest()
		if err != nil {
			return
		}
		requests <- req
		_ = c.Reply(req.Seq, "ParameterSubscriptionResponse", map[string]int{"subscriptionId": 7})
		_ = c.Data(req.Seq, websocket.DataTypeParameter, parameterData("/YSS/SIMULATOR/BatteryVoltage1", 10))
		_ = c.Data(req.Seq, websocket.DataTypeParameter, parameterData("/YSS/SIMULATOR/BatteryVoltage1", 11))
		for {
			req, err := c.ReadRequest()
			if err != nil {
				return
			}
			requests <- req
		}
	})
	defer srv.Close()

	pc := newSubscriptionClient(t, srv)
	received := make(chan *model.ParameterData, 2)
	sub, err := pc.CreateParameterSubscription(context.Background(), []string{"/YSS/SIMULATOR/BatteryVoltage1"},
		func(data *model.ParameterData) { received <- data }, WithSendFromCache(false))
	require.NoError(t, err)
	defer sub.Cancel()

	first := <-requests
	assert.Equal(t, "parameter", first.Resource)
	assert.Equal(t, "subscribe", first.Operation)
	assert.JSONEq(t, `{"id":[{"name":"/YSS/SIMULATOR/BatteryVoltage1"}],"subscriptionId":-1,
		"abortOnInvalid":true,"updateOnExpiration":false,"sendFromCache":false}`, string(first.Data))
	assert.Equal(t, int32(7), sub.SubscriptionID())

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for parameter data")
		}
	}
	assert.Equal(t, 2, sub.DeliveryCount())
	pval, ok := sub.GetValue("/YSS/SIMULATOR/BatteryVoltage1")
	require.True(t, ok)
	assert.Equal(t, uint32(11), pval.Eng())
	assert.Len(t, sub.ValueCache(), 1)

	require.NoError(t, sub.Add(nil))
	require.NoError(t, sub.Add([]string{"/YSS/SIMULATOR/BatteryVoltage2"}))
	added := <-requests
	assert.Equal(t, "subscribe", added.Operation)
	assert.JSONEq(t, `{"id":[{"name":"/YSS/SIMULATOR/BatteryVoltage2"}],"subscriptionId":7,
		"abortOnInvalid":true,"sendFromCache":true}`, string(added.Data))

	require.NoError(t, sub.Remove([]string{"/YSS/SIMULATOR/BatteryVoltage1"}))
	removed := <-requests
	assert.Equal(t, "unsubscribe", removed.Operation)
	assert.JSONEq(t, `{"id":[{"name":"/YSS/SIMULATOR/BatteryVoltage1"}],"subscriptionId":7}`, string(removed.Data))

	sub.Cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, sub.Wait(ctx))
}

func TestParameterSubscriptionWithoutID(t *testing.T) {
	sub := &ParameterSubscription{subscriptionID: -1, valueCache: map[string]model.ParameterValue{}}
	assert.True(t, errors.Is(sub.Add([]string{"/YSS/SIMULATOR/BatteryVoltage1"}), model.ErrNoSubscription))
	assert.True(t, errors.Is(sub.Remove(nil), model.ErrNoSubscription))
}

func TestParameterSubscriptionRejected(t *testing.T) {
	srv := wstest.NewServer(func(c *wstest.Conn) {
		req, err := c.ReadRequest()
		if err != nil {
			return
		}
		_ = c.Exception(req.Seq, "InvalidIdentification", "Invalid identification")
		c.Drain()
	})
	defer srv.Close()

	pc := newSubscriptionClient(t, srv)
	_, err := pc.CreateParameterSubscription(context.Background(), []string{"/YSS/SIMULATOR/Nope"}, nil)
	require.Error(t, err)
	assert.True(t, websocket.IsException(err))

	_, err = pc.CreateParameterSubscription(context.Background(), []string{"Nope"}, nil)
	assert.True(t, errors.Is(err, model.ErrInvalidName))
}

func commandEntry(attrs ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"commandId": map[string]interface{}{
			"generationTime": "1546300800000",
			"origin":         "host",
			"sequenceNumber": 1,
			"commandName":    "/YSS/SIMULATOR/SWITCH_VOLTAGE_ON",
		},
		"attr": attrs,
	}
}

func TestCommandHistorySubscription(t *testing.T) {
	requests := make(chan *wstest.Request, 1)
	srv := wstest.NewServer(func(c *wstest.Conn) {
		req, err := c.ReadRequest()
		if err != nil {
			return
		}
		requests <- req
		_ = c.Reply(req.Seq, "", nil)
		_ = c.Data(req.Seq, websocket.DataTypeCommandHistory, commandEntry(
			map[string]interface{}{"name": "username", "value": map[string]interface{}{"type": "STRING", "stringValue": "operator"}},
		))
		_ = c.Data(req.Seq, websocket.DataTypeCommandHistory, commandEntry(
			map[string]interface{}{"name": "CommandComplete", "value": map[string]interface{}{"type": "STRING", "stringValue": "OK"}},
		))
		c.Drain()
	})
	defer srv.Close()

	pc := newSubscriptionClient(t, srv)
	issued := &IssuedCommand{client: pc}
	issued.CommandQueueEntry.CmdID = model.CommandID{
		GenerationTime: 1546300800000,
		Origin:         "host",
		SequenceNumber: 1,
		CommandName:    "/YSS/SIMULATOR/SWITCH_VOLTAGE_ON",
	}

	var mu sync.Mutex
	var updates []*model.CommandHistory
	complete := make(chan struct{})
	sub, err := issued.CreateCommandHistorySubscription(context.Background(), func(rec *model.CommandHistory) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, rec)
		if rec.IsComplete() {
			close(complete)
		}
	})
	require.NoError(t, err)
	defer sub.Cancel()

	req := <-requests
	assert.Equal(t, "cmdhistory", req.Resource)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(req.Data, &body))
	assert.Equal(t, "true", string(body["ignorePastCommands"]))
	assert.Contains(t, string(body["commandId"]), "SWITCH_VOLTAGE_ON")

	select {
	case <-complete:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for command history")
	}
	rec, ok := sub.GetCommandHistory(issued)
	require.True(t, ok)
	assert.Equal(t, "operator", rec.Username())
	assert.True(t, rec.IsComplete())
	mu.Lock()
	assert.Len(t, updates, 2)
	assert.Same(t, updates[0], updates[1])
	mu.Unlock()

	sub.ClearCache()
	_, ok = sub.GetCommandHistory(issued)
	assert.False(t, ok)
}

func alarmData(eventType, name string, seq int) map[string]interface{} {
	return map[string]interface{}{
		"type":         eventType,
		"seqNum":       seq,
		"triggerValue": map[string]interface{}{"id": map[string]string{"name": name}},
	}
}

func TestAlarmSubscription(t *testing.T) {
	srv := wstest.NewServer(func(c *wstest.Conn) {
		req, err := c.ReadRequest()
		if err != nil {
			return
		}
		_ = c.Reply(req.Seq, "", nil)
		_ = c.Data(req.Seq, websocket.DataTypeAlarm, alarmData("TRIGGERED", "/YSS/SIMULATOR/BatteryVoltage1", 1))
		_ = c.Data(req.Seq, websocket.DataTypeAlarm, alarmData("TRIGGERED", "/YSS/SIMULATOR/BatteryVoltage2", 2))
		_ = c.Data(req.Seq, websocket.DataTypeAlarm, alarmData("ACKNOWLEDGED", "/YSS/SIMULATOR/BatteryVoltage1", 1))
		c.Drain()
	})
	defer srv.Close()

	pc := newSubscriptionClient(t, srv)
	events := make(chan *model.AlarmEvent, 3)
	sub, err := pc.CreateAlarmSubscription(context.Background(), func(e *model.AlarmEvent) { events <- e })
	require.NoError(t, err)
	defer sub.Cancel()

	var last *model.AlarmEvent
	for i := 0; i < 3; i++ {
		select {
		case last = <-events:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for alarm events")
		}
	}
	assert.Equal(t, model.AlarmEventAcknowledged, last.EventType())

	alarms := sub.ListAlarms()
	require.Len(t, alarms, 1)
	assert.Equal(t, "/YSS/SIMULATOR/BatteryVoltage2", alarms[0].Name())
	_, ok := sub.GetAlarm("/YSS/SIMULATOR/BatteryVoltage1")
	assert.False(t, ok)
}
