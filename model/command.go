package model

import (
	"fmt"
	"sync"
	"time"
)

// Command history attribute names.
const (
	AttrCommandComplete        = "CommandComplete"
	AttrCommandFailed          = "CommandFailed"
	AttrUsername               = "username"
	AttrSource                 = "source"
	AttrBinary                 = "binary"
	AttrComment                = "comment"
	AttrCommentLegacy          = "Comment"
	AttrTransmissionConstraint = "TransmissionContraints"

	EventAcknowledgeSent = "Acknowledge_Sent"
	EventVerifierQueued  = "Verifier_Queued"
	EventVerifierStarted = "Verifier_Started"

	CommandStatusNOK = "NOK"
)

// CommandID identifies an issued command. The combination of all fields is unique.
type CommandID struct {
	GenerationTime Int64  `json:"generationTime"`
	Origin         string `json:"origin,omitempty"`
	SequenceNumber int32  `json:"sequenceNumber"`
	CommandName    string `json:"commandName"`
}

// Key returns a string that identifies the command id in local caches.
func (id CommandID) Key() string {
	return fmt.Sprintf("%d__%s__%d__%s", id.GenerationTime, id.Origin, id.SequenceNumber, id.CommandName)
}

// CommandQueueEntry describes a command as it was accepted by a processor.
type CommandQueueEntry struct {
	Instance          string    `json:"instance,omitempty"`
	ProcessorName     string    `json:"processorName,omitempty"`
	CmdID             CommandID `json:"cmdId"`
	Source            string    `json:"source,omitempty"`
	Username          string    `json:"username,omitempty"`
	GenerationTimeUTC string    `json:"generationTimeUTC,omitempty"`
	QueueName         string    `json:"queueName,omitempty"`
	UUID              string    `json:"uuid,omitempty"`
}

// IssuedCommand is the server's answer to a command issue request.
type IssuedCommand struct {
	CommandQueueEntry CommandQueueEntry `json:"commandQueueEntry"`
	Source            string            `json:"source,omitempty"`
	Hex               string            `json:"hex,omitempty"`
	Binary            []byte            `json:"binary,omitempty"`
}

// Name is the fully-qualified name of the command.
func (ic *IssuedCommand) Name() string {
	return ic.CommandQueueEntry.CmdID.CommandName
}

// ID returns the identifier of this command.
func (ic *IssuedCommand) ID() CommandID {
	return ic.CommandQueueEntry.CmdID
}

// GenerationTime as set by Yamcs.
func (ic *IssuedCommand) GenerationTime() *time.Time {
	return parseOptionalTime(ic.CommandQueueEntry.GenerationTimeUTC)
}

// Username of the issuer.
func (ic *IssuedCommand) Username() string {
	return ic.CommandQueueEntry.Username
}

// Queue is the name of the queue that this command was assigned to.
func (ic *IssuedCommand) Queue() string {
	return ic.CommandQueueEntry.QueueName
}

// Origin is often empty, but may also be a hostname.
func (ic *IssuedCommand) Origin() string {
	return ic.CommandQueueEntry.CmdID.Origin
}

// SequenceNumber as assigned by the issuing client.
func (ic *IssuedCommand) SequenceNumber() int32 {
	return ic.CommandQueueEntry.CmdID.SequenceNumber
}

func (ic *IssuedCommand) String() string {
	gentime := "None"
	if t := ic.GenerationTime(); t != nil {
		gentime = t.Format(time.RFC3339Nano)
	}
	return gentime + " " + ic.Source
}

// CommandHistoryAttribute is a single key/value of a command history entry.
type CommandHistoryAttribute struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// CommandHistoryEntry is an incremental command history update.
type CommandHistoryEntry struct {
	CommandID         CommandID                 `json:"commandId"`
	Attr              []CommandHistoryAttribute `json:"attr"`
	GenerationTimeUTC string                    `json:"generationTimeUTC,omitempty"`
}

// CommandHistoryEvent is a named status change of a command.
type CommandHistoryEvent struct {
	Name   string
	Time   interface{}
	Status interface{}
}

func (e CommandHistoryEvent) String() string {
	return fmt.Sprintf("%s: %v at %v", e.Name, e.Status, e.Time)
}

// CommandHistory accumulates the history of a single command. Updates are
// merged as they arrive, so later attributes overwrite earlier ones.
type CommandHistory struct {
	mu             sync.RWMutex
	id             CommandID
	generationTime *time.Time
	attributes     map[string]interface{}
}

// NewCommandHistory creates the history of a command from its first entry.
func NewCommandHistory(entry CommandHistoryEntry) *CommandHistory {
	ch := &CommandHistory{
		id:             entry.CommandID,
		generationTime: parseOptionalTime(entry.GenerationTimeUTC),
		attributes:     make(map[string]interface{}),
	}
	ch.Update(entry.Attr)
	return ch
}

// Update merges attributes into this history.
func (ch *CommandHistory) Update(attrs []CommandHistoryAttribute) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for i := range attrs {
		ch.attributes[attrs[i].Name] = attrs[i].Value.Interface()
	}
}

// ID of the command.
func (ch *CommandHistory) ID() CommandID { return ch.id }

// Name of the command.
func (ch *CommandHistory) Name() string { return ch.id.CommandName }

// Origin of the command.
func (ch *CommandHistory) Origin() string { return ch.id.Origin }

// SequenceNumber assigned by the issuing client.
func (ch *CommandHistory) SequenceNumber() int32 { return ch.id.SequenceNumber }

// GenerationTime as set by Yamcs.
func (ch *CommandHistory) GenerationTime() *time.Time { return ch.generationTime }

// Attribute returns a single attribute value.
func (ch *CommandHistory) Attribute(name string) (interface{}, bool) {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	v, ok := ch.attributes[name]
	return v, ok
}

// Attributes returns a copy of all attributes.
func (ch *CommandHistory) Attributes() map[string]interface{} {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	out := make(map[string]interface{}, len(ch.attributes))
	for k, v := range ch.attributes {
		out[k] = v
	}
	return out
}

func (ch *CommandHistory) stringAttr(name string) string {
	if v, ok := ch.Attribute(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// Username of the issuer.
func (ch *CommandHistory) Username() string { return ch.stringAttr(AttrUsername) }

// Source is the string representation of the command.
func (ch *CommandHistory) Source() string { return ch.stringAttr(AttrSource) }

// Binary representation of the command.
func (ch *CommandHistory) Binary() []byte {
	if v, ok := ch.Attribute(AttrBinary); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}

// Comment attached when issuing the command.
func (ch *CommandHistory) Comment() string {
	if c := ch.stringAttr(AttrComment); c != "" {
		return c
	}
	return ch.stringAttr(AttrCommentLegacy)
}

// TransmissionConstraints returns the transmission constraints status, if any.
func (ch *CommandHistory) TransmissionConstraints() string {
	return ch.stringAttr(AttrTransmissionConstraint)
}

// IsComplete reports whether the command is complete. A complete command may
// still have failed.
func (ch *CommandHistory) IsComplete() bool {
	_, ok := ch.Attribute(AttrCommandComplete)
	return ok
}

// IsFailed reports whether the command completed with a failure. The failure
// message is available through FailureMessage.
func (ch *CommandHistory) IsFailed() bool {
	return ch.IsComplete() && ch.stringAttr(AttrCommandComplete) == CommandStatusNOK
}

// FailureMessage is set when the command failed.
func (ch *CommandHistory) FailureMessage() string {
	return ch.stringAttr(AttrCommandFailed)
}

// AcknowledgeEvent indicates the command was acknowledged.
func (ch *CommandHistory) AcknowledgeEvent() *CommandHistoryEvent {
	return ch.assembleEvent(EventAcknowledgeSent)
}

// VerificationEvents returns the known verifier events.
func (ch *CommandHistory) VerificationEvents() []CommandHistoryEvent {
	var events []CommandHistoryEvent
	for _, name := range []string{EventVerifierQueued, EventVerifierStarted} {
		if e := ch.assembleEvent(name); e != nil {
			events = append(events, *e)
		}
	}
	return events
}

// Events returns all known events, acknowledgment first.
func (ch *CommandHistory) Events() []CommandHistoryEvent {
	var events []CommandHistoryEvent
	if ack := ch.AcknowledgeEvent(); ack != nil {
		events = append(events, *ack)
	}
	return append(events, ch.VerificationEvents()...)
}

func (ch *CommandHistory) assembleEvent(name string) *CommandHistoryEvent {
	t, okTime := ch.Attribute(name + "_Time")
	status, okStatus := ch.Attribute(name + "_Status")
	if !okTime || !okStatus || t == nil || status == nil {
		return nil
	}
	return &CommandHistoryEvent{Name: name, Time: t, Status: status}
}

func (ch *CommandHistory) String() string {
	return fmt.Sprintf("%s %v", ch.Name(), ch.Events())
}
