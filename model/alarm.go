package model

import (
	"fmt"
	"time"
)

// Alarm event types.
const (
	AlarmEventActive            = "ACTIVE"
	AlarmEventTriggered         = "TRIGGERED"
	AlarmEventSeverityIncreased = "SEVERITY_INCREASED"
	AlarmEventValueUpdated      = "VALUE_UPDATED"
	AlarmEventAcknowledged      = "ACKNOWLEDGED"
	AlarmEventCleared           = "CLEARED"
)

// AcknowledgeInfo is present once an alarm was acknowledged.
type AcknowledgeInfo struct {
	AcknowledgedBy     string `json:"acknowledgedBy,omitempty"`
	AcknowledgeMessage string `json:"acknowledgeMessage,omitempty"`
	AcknowledgeTime    string `json:"acknowledgeTime,omitempty"`
}

// Alarm is the state of a parameter alarm. There is at most one active alarm
// per parameter.
type Alarm struct {
	Type            string           `json:"type,omitempty"`
	SeqNum          *int32           `json:"seqNum,omitempty"`
	TriggerValue    *ParameterValue  `json:"triggerValue,omitempty"`
	MostSevereValue *ParameterValue  `json:"mostSevereValue,omitempty"`
	CurrentValue    *ParameterValue  `json:"currentValue,omitempty"`
	Violations      *int32           `json:"violations,omitempty"`
	AcknowledgeInfo *AcknowledgeInfo `json:"acknowledgeInfo,omitempty"`
}

// Name is the fully-qualified XTCE name of the parameter that triggered this alarm.
func (a *Alarm) Name() string {
	if a.TriggerValue == nil {
		return ""
	}
	return a.TriggerValue.Name()
}

// SequenceNumber identifies this specific alarm instance, so that operations
// such as acknowledgment apply to the expected instance.
func (a *Alarm) SequenceNumber() (int32, bool) {
	if a.SeqNum == nil {
		return 0, false
	}
	return *a.SeqNum, true
}

// IsAcknowledged reports whether this alarm has been acknowledged.
func (a *Alarm) IsAcknowledged() bool {
	return a.AcknowledgeInfo != nil
}

// AcknowledgedBy is the username of the acknowledger.
func (a *Alarm) AcknowledgedBy() string {
	if a.AcknowledgeInfo == nil {
		return ""
	}
	return a.AcknowledgeInfo.AcknowledgedBy
}

// AcknowledgeMessage is the comment provided when acknowledging.
func (a *Alarm) AcknowledgeMessage() string {
	if a.AcknowledgeInfo == nil {
		return ""
	}
	return a.AcknowledgeInfo.AcknowledgeMessage
}

// AcknowledgeTime is the processor time of the acknowledgment.
func (a *Alarm) AcknowledgeTime() *time.Time {
	if a.AcknowledgeInfo == nil {
		return nil
	}
	return parseOptionalTime(a.AcknowledgeInfo.AcknowledgeTime)
}

// ViolationCount is the number of updates that violated limits while this
// alarm is active.
func (a *Alarm) ViolationCount() (int32, bool) {
	if a.Violations == nil {
		return 0, false
	}
	return *a.Violations, true
}

func (a *Alarm) String() string {
	violations := "None"
	if n, ok := a.ViolationCount(); ok {
		violations = fmt.Sprint(n)
	}
	trigger := "None"
	if a.TriggerValue != nil {
		trigger = a.TriggerValue.String()
	}
	return fmt.Sprintf("%s (%s violations)", trigger, violations)
}

// AlarmEvent is delivered to alarm subscribers on every alarm update.
type AlarmEvent struct {
	Alarm
}

// EventType is the type of update.
func (e *AlarmEvent) EventType() string {
	return e.Type
}

// Removes reports whether the event ends the alarm as an active alarm.
func (e *AlarmEvent) Removes() bool {
	return e.Type == AlarmEventAcknowledged || e.Type == AlarmEventCleared
}

func (e *AlarmEvent) String() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Alarm.String())
}
