package websocket

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

const protocolVersion = 1

// Message types of the WebSocket protocol.
const (
	MessageTypeRequest   = 1
	MessageTypeReply     = 2
	MessageTypeException = 3
	MessageTypeData      = 4
)

// Data types carried by DATA messages.
const (
	DataTypeParameter      = "PARAMETER"
	DataTypeCommandHistory = "CMD_HISTORY"
	DataTypeAlarm          = "ALARM_DATA"
)

var requestSequence atomic.Int32

// nextSequence returns the next request sequence number. Numbers are unique
// within the process.
func nextSequence() int32 {
	return requestSequence.Add(1)
}

// Frame is a single protocol message: [version, type, seq, payload].
type Frame struct {
	Type    int
	Seq     int32
	Payload json.RawMessage
}

// MarshalJSON encodes the frame as a JSON array.
func (f Frame) MarshalJSON() ([]byte, error) {
	payload := f.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	return json.Marshal([]interface{}{protocolVersion, f.Type, f.Seq, payload})
}

// UnmarshalJSON decodes a JSON array frame.
func (f *Frame) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("malformed frame: %w", err)
	}
	if len(parts) < 3 {
		return fmt.Errorf("malformed frame: expected at least 3 elements, got %d", len(parts))
	}
	var version int
	if err := json.Unmarshal(parts[0], &version); err != nil {
		return fmt.Errorf("malformed frame version: %w", err)
	}
	if version != protocolVersion {
		return fmt.Errorf("unsupported protocol version %d", version)
	}
	if err := json.Unmarshal(parts[1], &f.Type); err != nil {
		return fmt.Errorf("malformed frame type: %w", err)
	}
	if err := json.Unmarshal(parts[2], &f.Seq); err != nil {
		return fmt.Errorf("malformed frame sequence: %w", err)
	}
	f.Payload = nil
	if len(parts) > 3 {
		f.Payload = parts[3]
	}
	return nil
}

// DataMessage is the payload of a DATA frame.
type DataMessage struct {
	DataType string          `json:"dt"`
	Data     json.RawMessage `json:"data"`
}

// ReplyMessage is the payload of a REPLY frame.
type ReplyMessage struct {
	Type string          `json:"type,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Exception is the payload of an EXCEPTION frame.
type Exception struct {
	Type string `json:"et"`
	Msg  string `json:"msg"`
}

func (e *Exception) Error() string {
	if e.Type == "" {
		return e.Msg
	}
	return e.Type + ": " + e.Msg
}

// Data decodes the payload of a DATA frame.
func (f Frame) Data() (*DataMessage, error) {
	var msg DataMessage
	if err := json.Unmarshal(f.Payload, &msg); err != nil {
		return nil, fmt.Errorf("malformed data message: %w", err)
	}
	return &msg, nil
}

// Reply decodes the payload of a REPLY frame.
func (f Frame) Reply() (*ReplyMessage, error) {
	var msg ReplyMessage
	if len(f.Payload) == 0 {
		return &msg, nil
	}
	if err := json.Unmarshal(f.Payload, &msg); err != nil {
		return nil, fmt.Errorf("malformed reply message: %w", err)
	}
	return &msg, nil
}

// Exception decodes the payload of an EXCEPTION frame.
func (f Frame) Exception() *Exception {
	exc := &Exception{}
	if err := json.Unmarshal(f.Payload, exc); err != nil || exc.Msg == "" {
		exc.Msg = string(f.Payload)
	}
	return exc
}

func requestFrame(resource, operation string, data interface{}) (Frame, error) {
	payload := map[string]interface{}{resource: operation}
	if data != nil {
		payload["data"] = data
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("error in marshaling %s request: %w", resource, err)
	}
	return Frame{Type: MessageTypeRequest, Seq: nextSequence(), Payload: b}, nil
}
