package translator

import (
	"time"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pmetric"

	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/utils"
)

const (
	scopeName           = "github.com/yamcs/yamcs-client-go"
	attrInstance        = "yamcs.instance"
	attrProcessor       = "yamcs.processor"
	attrParameter       = "yamcs.parameter"
	attrMonitoring      = "yamcs.monitoring_result"
	attrAcquisition     = "yamcs.acquisition_status"
	attrRangeCondition  = "yamcs.range_condition"
	resourceServiceName = "service.name"
)

// ConvertToMetrics turns parameter values into OTLP gauges, one metric per
// parameter. Values without a numeric engineering value are skipped.
func ConvertToMetrics(instance, processor string, values []model.ParameterValue) pmetric.Metrics {
	md := pmetric.NewMetrics()
	rm := md.ResourceMetrics().AppendEmpty()
	rm.Resource().Attributes().PutStr(resourceServiceName, "yamcs")
	rm.Resource().Attributes().PutStr(attrInstance, instance)
	rm.Resource().Attributes().PutStr(attrProcessor, processor)

	sm := rm.ScopeMetrics().AppendEmpty()
	sm.Scope().SetName(scopeName)
	sm.Scope().SetVersion(utils.PACKAGE_VERSION)

	for i := range values {
		pv := &values[i]
		v := pv.EngValue
		if v == nil {
			v = pv.RawValue
		}
		if v == nil {
			continue
		}
		f, ok := v.Float64()
		if !ok {
			continue
		}

		m := sm.Metrics().AppendEmpty()
		m.SetName(pv.Name())
		dp := m.SetEmptyGauge().DataPoints().AppendEmpty()
		switch n := v.Interface().(type) {
		case int32:
			dp.SetIntValue(int64(n))
		case int64:
			dp.SetIntValue(n)
		case uint32:
			dp.SetIntValue(int64(n))
		default:
			dp.SetDoubleValue(f)
		}

		ts := time.Now()
		if t := pv.GenerationTime(); t != nil {
			ts = *t
		}
		dp.SetTimestamp(pcommon.NewTimestampFromTime(ts))

		attrs := dp.Attributes()
		attrs.PutStr(attrParameter, pv.Name())
		if pv.MonitoringResult != "" {
			attrs.PutStr(attrMonitoring, pv.MonitoringResult)
		}
		if pv.AcquisitionStatus != "" {
			attrs.PutStr(attrAcquisition, pv.AcquisitionStatus)
		}
		if pv.RangeCondition != "" {
			attrs.PutStr(attrRangeCondition, pv.RangeCondition)
		}
	}
	return md
}

// MarshalMetricsJSON encodes metrics in the OTLP/JSON format.
func MarshalMetricsJSON(md pmetric.Metrics) ([]byte, error) {
	marshaler := &pmetric.JSONMarshaler{}
	return marshaler.MarshalMetrics(md)
}
