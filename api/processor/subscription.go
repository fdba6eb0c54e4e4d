package processor

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/yamcs/yamcs-client-go/internal/websocket"
	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/utils"
)

// Subscription is the handle of a background WebSocket subscription.
// Reply, Done, Err, Wait and Cancel come from the underlying future.
type Subscription struct {
	*websocket.Future
	manager *websocket.Manager
}

// openSubscription connects a new WebSocket, sends the subscribe request and
// waits for the server reply.
func (c *ProcessorClient) openSubscription(ctx context.Context, resource string, data interface{}, handler websocket.Handler) (*Subscription, *websocket.ReplyMessage, error) {
	header, err := c.session.Headers(ctx)
	if err != nil {
		return nil, nil, err
	}
	m := websocket.NewManager(websocket.Config{
		URL:       c.session.WebSocketRoot() + "/" + url.PathEscape(c.instance) + "/" + url.PathEscape(c.processor),
		Header:    header,
		TLSConfig: c.session.TLSConfig(),
		Logger:    c.logger.With().Str("resource", resource).Logger(),
	})
	future, err := m.Open(ctx, handler)
	if err != nil {
		return nil, nil, err
	}
	if _, err := m.Send(resource, "subscribe", data); err != nil {
		future.Cancel()
		return nil, nil, err
	}

	replyCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		replyCtx, cancel = context.WithTimeout(ctx, defaultReplyTimeout)
		defer cancel()
	}
	reply, err := future.Reply(replyCtx)
	if err != nil {
		future.Cancel()
		return nil, nil, err
	}
	return &Subscription{Future: future, manager: m}, reply, nil
}

type parameterSubscriptionRequest struct {
	ID                 []model.NamedObjectID `json:"id"`
	SubscriptionID     int32                 `json:"subscriptionId"`
	AbortOnInvalid     *bool                 `json:"abortOnInvalid,omitempty"`
	UpdateOnExpiration *bool                 `json:"updateOnExpiration,omitempty"`
	SendFromCache      *bool                 `json:"sendFromCache,omitempty"`
}

type parameterSubscriptionResponse struct {
	SubscriptionID int32 `json:"subscriptionId"`
}

func boolPtr(b bool) *bool { return &b }

// ParameterSubscription stores the last received value of each subscribed
// parameter.
type ParameterSubscription struct {
	*Subscription

	mu             sync.RWMutex
	valueCache     map[string]model.ParameterValue
	deliveryCount  int
	subscriptionID int32
	onData         func(*model.ParameterData)
}

// CreateParameterSubscription subscribes to parameter updates. onData may be
// nil. It returns once the server accepted the subscription.
func (c *ProcessorClient) CreateParameterSubscription(ctx context.Context, names []string, onData func(*model.ParameterData), opts ...SubscriptionOption) (*ParameterSubscription, error) {
	ids, err := utils.BuildNamedObjectIDs(names)
	if err != nil {
		return nil, err
	}
	req := parameterSubscriptionRequest{
		ID:                 ids,
		SubscriptionID:     -1,
		AbortOnInvalid:     boolPtr(true),
		UpdateOnExpiration: boolPtr(false),
		SendFromCache:      boolPtr(true),
	}
	for _, opt := range opts {
		if err := opt(&req); err != nil {
			return nil, err
		}
	}

	sub := &ParameterSubscription{
		valueCache:     make(map[string]model.ParameterValue),
		subscriptionID: -1,
		onData:         onData,
	}
	s, reply, err := c.openSubscription(ctx, "parameter", req, sub.handle)
	if err != nil {
		return nil, err
	}
	sub.Subscription = s
	sub.processReply(reply)
	return sub, nil
}

func (s *ParameterSubscription) processReply(reply *websocket.ReplyMessage) {
	if reply == nil || len(reply.Data) == 0 {
		return
	}
	var resp parameterSubscriptionResponse
	if err := json.Unmarshal(reply.Data, &resp); err != nil {
		return
	}
	s.mu.Lock()
	s.subscriptionID = resp.SubscriptionID
	s.mu.Unlock()
}

func (s *ParameterSubscription) handle(frame websocket.Frame) {
	switch frame.Type {
	case websocket.MessageTypeReply:
		reply, err := frame.Reply()
		if err == nil {
			s.processReply(reply)
		}
	case websocket.MessageTypeData:
		msg, err := frame.Data()
		if err != nil || msg.DataType != websocket.DataTypeParameter {
			return
		}
		var data model.ParameterData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		s.process(&data)
		if s.onData != nil {
			s.onData(&data)
		}
	}
}

func (s *ParameterSubscription) process(data *model.ParameterData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveryCount++
	for _, pval := range data.Parameter {
		s.valueCache[pval.Name()] = pval
	}
}

// SubscriptionID is the number assigned by the server, or -1 until the
// server replied.
func (s *ParameterSubscription) SubscriptionID() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscriptionID
}

// DeliveryCount is the number of parameter deliveries.
func (s *ParameterSubscription) DeliveryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deliveryCount
}

// GetValue returns the last received value of a parameter.
func (s *ParameterSubscription) GetValue(name string) (model.ParameterValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pval, ok := s.valueCache[name]
	return pval, ok
}

// ValueCache returns a snapshot of the last value of each parameter.
func (s *ParameterSubscription) ValueCache() map[string]model.ParameterValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.ParameterValue, len(s.valueCache))
	for name, pval := range s.valueCache {
		out[name] = pval
	}
	return out
}

// Add adds parameters to this subscription. Only AbortOnInvalid and
// SendFromCache options are honored.
func (s *ParameterSubscription) Add(names []string, opts ...SubscriptionOption) error {
	id := s.SubscriptionID()
	if id == -1 {
		return model.ErrNoSubscription
	}
	if len(names) == 0 {
		return nil
	}
	ids, err := utils.BuildNamedObjectIDs(names)
	if err != nil {
		return err
	}
	req := parameterSubscriptionRequest{
		ID:             ids,
		SubscriptionID: id,
		AbortOnInvalid: boolPtr(true),
		SendFromCache:  boolPtr(true),
	}
	for _, opt := range opts {
		if err := opt(&req); err != nil {
			return err
		}
	}
	req.UpdateOnExpiration = nil
	_, err = s.manager.Send("parameter", "subscribe", req)
	return err
}

// Remove removes parameters from this subscription.
func (s *ParameterSubscription) Remove(names []string) error {
	id := s.SubscriptionID()
	if id == -1 {
		return model.ErrNoSubscription
	}
	if len(names) == 0 {
		return nil
	}
	ids, err := utils.BuildNamedObjectIDs(names)
	if err != nil {
		return err
	}
	_, err = s.manager.Send("parameter", "unsubscribe", parameterSubscriptionRequest{ID: ids, SubscriptionID: id})
	return err
}

type commandHistorySubscriptionRequest struct {
	IgnorePastCommands bool              `json:"ignorePastCommands"`
	CommandID          []model.CommandID `json:"commandId,omitempty"`
}

// CommandHistorySubscription buffers received command history so that
// incremental updates can be stitched together. Updates for commands that
// are not in the cache yield incomplete history. Call ClearCache
// periodically when many commands are expected.
type CommandHistorySubscription struct {
	*Subscription

	mu     sync.RWMutex
	cache  map[string]*model.CommandHistory
	onData func(*model.CommandHistory)
}

// CreateCommandHistorySubscription subscribes to command history updates of
// the given commands, or of all commands when issued is empty.
func (c *ProcessorClient) CreateCommandHistorySubscription(ctx context.Context, issued []*IssuedCommand, onData func(*model.CommandHistory)) (*CommandHistorySubscription, error) {
	req := commandHistorySubscriptionRequest{IgnorePastCommands: true}
	for _, ic := range issued {
		req.CommandID = append(req.CommandID, ic.ID())
	}

	sub := &CommandHistorySubscription{
		cache:  make(map[string]*model.CommandHistory),
		onData: onData,
	}
	s, _, err := c.openSubscription(ctx, "cmdhistory", req, sub.handle)
	if err != nil {
		return nil, err
	}
	sub.Subscription = s
	return sub, nil
}

func (s *CommandHistorySubscription) handle(frame websocket.Frame) {
	if frame.Type != websocket.MessageTypeData {
		return
	}
	msg, err := frame.Data()
	if err != nil || msg.DataType != websocket.DataTypeCommandHistory {
		return
	}
	var entry model.CommandHistoryEntry
	if err := json.Unmarshal(msg.Data, &entry); err != nil {
		return
	}
	rec := s.process(entry)
	if s.onData != nil {
		s.onData(rec)
	}
}

func (s *CommandHistorySubscription) process(entry model.CommandHistoryEntry) *model.CommandHistory {
	key := entry.CommandID.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.cache[key]; ok {
		rec.Update(entry.Attr)
		return rec
	}
	rec := model.NewCommandHistory(entry)
	s.cache[key] = rec
	return rec
}

// GetCommandHistory returns the cached history of a previously issued command.
func (s *CommandHistorySubscription) GetCommandHistory(issued *IssuedCommand) (*model.CommandHistory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.cache[issued.ID().Key()]
	return rec, ok
}

// ClearCache clears the local command history cache.
func (s *CommandHistorySubscription) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*model.CommandHistory)
}

// AlarmSubscription stores the currently active alarms. There is at most one
// active alarm per parameter.
type AlarmSubscription struct {
	*Subscription

	mu     sync.RWMutex
	cache  map[string]model.Alarm
	order  []string
	onData func(*model.AlarmEvent)
}

// CreateAlarmSubscription subscribes to alarm updates.
func (c *ProcessorClient) CreateAlarmSubscription(ctx context.Context, onData func(*model.AlarmEvent)) (*AlarmSubscription, error) {
	sub := &AlarmSubscription{
		cache:  make(map[string]model.Alarm),
		onData: onData,
	}
	s, _, err := c.openSubscription(ctx, "alarms", nil, sub.handle)
	if err != nil {
		return nil, err
	}
	sub.Subscription = s
	return sub, nil
}

func (s *AlarmSubscription) handle(frame websocket.Frame) {
	if frame.Type != websocket.MessageTypeData {
		return
	}
	msg, err := frame.Data()
	if err != nil || msg.DataType != websocket.DataTypeAlarm {
		return
	}
	var event model.AlarmEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return
	}
	s.process(&event)
	if s.onData != nil {
		s.onData(&event)
	}
}

func (s *AlarmSubscription) process(event *model.AlarmEvent) {
	name := event.Name()
	s.mu.Lock()
	defer s.mu.Unlock()
	_, known := s.cache[name]
	if event.Removes() {
		if known {
			delete(s.cache, name)
			for i, n := range s.order {
				if n == name {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
		return
	}
	if !known {
		s.order = append(s.order, name)
	}
	s.cache[name] = event.Alarm
}

// GetAlarm returns the active alarm of a parameter, by fully-qualified name.
func (s *AlarmSubscription) GetAlarm(name string) (model.Alarm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alarm, ok := s.cache[name]
	return alarm, ok
}

// ListAlarms returns a snapshot of all active alarms, oldest first.
func (s *AlarmSubscription) ListAlarms() []model.Alarm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Alarm, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.cache[name])
	}
	return out
}
