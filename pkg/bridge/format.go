package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/utils/translator"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatOTLPJSON = "otlp-json"
)

// Formatter encodes subscription updates into sink messages.
type Formatter struct {
	format    string
	instance  string
	processor string
}

// NewFormatter validates format. An empty format selects json.
func NewFormatter(format, instance, processor string) (*Formatter, error) {
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatOTLPJSON:
	default:
		return nil, fmt.Errorf("unknown format %q, expected %s or %s", format, FormatJSON, FormatOTLPJSON)
	}
	return &Formatter{format: format, instance: instance, processor: processor}, nil
}

// Format is the selected format.
func (f *Formatter) Format() string { return f.format }

// FormatParameters encodes one parameter delivery. It returns nil when the
// delivery has nothing to forward in the selected format.
func (f *Formatter) FormatParameters(data *model.ParameterData) ([]byte, error) {
	if f.format == FormatOTLPJSON {
		md := translator.ConvertToMetrics(f.instance, f.processor, data.Parameter)
		if md.DataPointCount() == 0 {
			return nil, nil
		}
		return translator.MarshalMetricsJSON(md)
	}
	if len(data.Parameter) == 0 {
		return nil, nil
	}
	return json.Marshal(data.Parameter)
}

// FormatAlarm encodes an alarm event. Alarms have no metric representation
// and are always encoded as JSON.
func (f *Formatter) FormatAlarm(event *model.AlarmEvent) ([]byte, error) {
	return json.Marshal(event)
}
