package model

import (
	"fmt"
	"strings"
	"time"
)

// NamedObjectID identifies an MDB item either by its fully-qualified XTCE name
// (empty namespace) or by an alias within a namespace.
type NamedObjectID struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

func (id NamedObjectID) String() string {
	if id.Namespace != "" {
		return id.Namespace + "/" + id.Name
	}
	return id.Name
}

// ParameterValue is a single update of a parameter.
type ParameterValue struct {
	ID                 NamedObjectID `json:"id"`
	RawValue           *Value        `json:"rawValue,omitempty"`
	EngValue           *Value        `json:"engValue,omitempty"`
	GenerationTimeUTC  string        `json:"generationTimeUTC,omitempty"`
	AcquisitionTimeUTC string        `json:"acquisitionTimeUTC,omitempty"`
	AcquisitionStatus  string        `json:"acquisitionStatus,omitempty"`
	ProcessingStatus   bool          `json:"processingStatus"`
	MonitoringResult   string        `json:"monitoringResult,omitempty"`
	RangeCondition     string        `json:"rangeCondition,omitempty"`
	ExpireMillis       *Int64        `json:"expireMillis,omitempty"`
}

// Name returns an identifying name for the value. Typically this is the
// fully-qualified XTCE name, but it is an alias when the value was requested
// by alias.
func (pv *ParameterValue) Name() string {
	return pv.ID.String()
}

// GenerationTime is the time when the parameter was generated. For parameters
// extracted from packets this usually is the packet time.
func (pv *ParameterValue) GenerationTime() *time.Time {
	return parseOptionalTime(pv.GenerationTimeUTC)
}

// ReceptionTime is the time when the value was received by Yamcs.
func (pv *ParameterValue) ReceptionTime() *time.Time {
	return parseOptionalTime(pv.AcquisitionTimeUTC)
}

// ValidityDuration is how long this value remains valid, or 0 when unknown.
func (pv *ParameterValue) ValidityDuration() time.Duration {
	if pv.ExpireMillis == nil {
		return 0
	}
	return time.Duration(*pv.ExpireMillis) * time.Millisecond
}

// HasValue reports whether the server returned an actual value. Yamcs replies
// with only the id set when no value is known.
func (pv *ParameterValue) HasValue() bool {
	return pv.RawValue != nil || pv.EngValue != nil
}

// Raw returns the raw (uncalibrated) value as a Go value.
func (pv *ParameterValue) Raw() interface{} {
	return pv.RawValue.Interface()
}

// Eng returns the engineering (calibrated) value as a Go value.
func (pv *ParameterValue) Eng() interface{} {
	return pv.EngValue.Interface()
}

func (pv *ParameterValue) String() string {
	gentime := "None"
	if t := pv.GenerationTime(); t != nil {
		gentime = t.Format(time.RFC3339Nano)
	}
	line := fmt.Sprintf("%s %s %s %s", gentime, pv.Name(), pv.RawValue.String(), pv.EngValue.String())
	if pv.MonitoringResult != "" {
		line += " [" + pv.MonitoringResult + "]"
	}
	return line
}

// ParameterData is a delivery of one or more parameter values.
type ParameterData struct {
	Parameter      []ParameterValue `json:"parameter"`
	SubscriptionID int32            `json:"subscriptionId,omitempty"`
}

// Parameters returns the values contained in this delivery.
func (pd *ParameterData) Parameters() []ParameterValue {
	return pd.Parameter
}

func (pd *ParameterData) String() string {
	lines := make([]string, 0, len(pd.Parameter))
	for i := range pd.Parameter {
		lines = append(lines, pd.Parameter[i].String())
	}
	return strings.Join(lines, "\n")
}

func parseOptionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
