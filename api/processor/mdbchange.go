package processor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/multierr"

	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/utils"
)

// Actions of a parameter change request.
const (
	ActionSetDefaultCalibrator = "SET_DEFAULT_CALIBRATOR"
	ActionSetCalibrators       = "SET_CALIBRATORS"
	ActionResetCalibrators     = "RESET_CALIBRATORS"
	ActionSetDefaultAlarms     = "SET_DEFAULT_ALARMS"
	ActionSetAlarms            = "SET_ALARMS"
	ActionResetAlarms          = "RESET_ALARMS"

	ActionSetAlgorithm   = "SET"
	ActionResetAlgorithm = "RESET"
)

type polynomialCalibrator struct {
	Coefficient []float64 `json:"coefficient"`
}

type splineCalibrator struct {
	Point []model.SplinePoint `json:"point"`
}

type calibratorInfo struct {
	Type                 string                `json:"type"`
	PolynomialCalibrator *polynomialCalibrator `json:"polynomialCalibrator,omitempty"`
	SplineCalibrator     *splineCalibrator     `json:"splineCalibrator,omitempty"`
}

type contextCalibratorInfo struct {
	Context    string         `json:"context"`
	Calibrator calibratorInfo `json:"calibrator"`
}

type alarmRange struct {
	Level        string   `json:"level"`
	MinExclusive *float64 `json:"minExclusive,omitempty"`
	MaxExclusive *float64 `json:"maxExclusive,omitempty"`
}

type alarmInfo struct {
	MinViolations    int32        `json:"minViolations"`
	StaticAlarmRange []alarmRange `json:"staticAlarmRange,omitempty"`
}

type contextAlarmInfo struct {
	Context string    `json:"context"`
	Alarm   alarmInfo `json:"alarm"`
}

type changeParameterRequest struct {
	Action            string                  `json:"action"`
	DefaultCalibrator *calibratorInfo         `json:"defaultCalibrator,omitempty"`
	ContextCalibrator []contextCalibratorInfo `json:"contextCalibrator,omitempty"`
	DefaultAlarm      *alarmInfo              `json:"defaultAlarm,omitempty"`
	ContextAlarm      []contextAlarmInfo      `json:"contextAlarm,omitempty"`
}

type algorithmText struct {
	Text string `json:"text"`
}

type changeAlgorithmRequest struct {
	Action    string         `json:"action"`
	Algorithm *algorithmText `json:"algorithm,omitempty"`
}

func buildCalibrator(cal model.Calibrator) (calibratorInfo, error) {
	switch strings.ToLower(cal.Type) {
	case model.CalibratorPolynomial:
		return calibratorInfo{
			Type:                 "POLYNOMIAL",
			PolynomialCalibrator: &polynomialCalibrator{Coefficient: cal.Polynomial},
		}, nil
	case model.CalibratorSpline:
		return calibratorInfo{
			Type:             "SPLINE",
			SplineCalibrator: &splineCalibrator{Point: cal.Spline},
		}, nil
	default:
		return calibratorInfo{}, fmt.Errorf("unrecognized calibrator type %q", cal.Type)
	}
}

func buildAlarmInfo(rs model.RangeSet) alarmInfo {
	info := alarmInfo{MinViolations: rs.MinViolations}
	if info.MinViolations <= 0 {
		info.MinViolations = 1
	}
	for _, lr := range rs.Levels() {
		info.StaticAlarmRange = append(info.StaticAlarmRange, alarmRange{
			Level:        lr.Level,
			MinExclusive: lr.Range.Low,
			MaxExclusive: lr.Range.High,
		})
	}
	return info
}

func (c *ProcessorClient) mdbPath(kind, name string) string {
	return "/mdb/" + url.PathEscape(c.instance) + "/" + url.PathEscape(c.processor) + "/" + kind + utils.AdaptNameForREST(name)
}

func (c *ProcessorClient) changeParameter(ctx context.Context, name string, req changeParameterRequest) error {
	if err := c.session.Post(ctx, c.mdbPath("parameters", name), req, nil); err != nil {
		return err
	}
	c.logger.Debug().Str("parameter", name).Str("action", req.Action).Msg("parameter definition changed")
	return nil
}

// SetDefaultCalibrator applies a calibrator to the raw values of a parameter,
// replacing any previous default calibrator. A nil calibrator removes the
// default calibrator. Contextual calibrators take precedence over the default.
func (c *ProcessorClient) SetDefaultCalibrator(ctx context.Context, name string, calibrator *model.Calibrator) error {
	req := changeParameterRequest{Action: ActionSetDefaultCalibrator}
	if calibrator != nil {
		info, err := buildCalibrator(*calibrator)
		if err != nil {
			return err
		}
		req.DefaultCalibrator = &info
	}
	return c.changeParameter(ctx, name, req)
}

// SetCalibrators applies an ordered list of calibrators, replacing existing
// ones. Only the first matching contextual calibrator is applied. A calibrator
// without context is the default and applies when no other matches.
func (c *ProcessorClient) SetCalibrators(ctx context.Context, name string, calibrators []model.Calibrator) error {
	req := changeParameterRequest{Action: ActionSetCalibrators}
	for _, cal := range calibrators {
		info, err := buildCalibrator(cal)
		if err != nil {
			return err
		}
		if cal.Context == "" {
			req.DefaultCalibrator = &info
			continue
		}
		req.ContextCalibrator = append(req.ContextCalibrator, contextCalibratorInfo{Context: cal.Context, Calibrator: info})
	}
	return c.changeParameter(ctx, name, req)
}

// ClearCalibrators removes all calibrators of a parameter.
func (c *ProcessorClient) ClearCalibrators(ctx context.Context, name string) error {
	return multierr.Combine(
		c.SetDefaultCalibrator(ctx, name, nil),
		c.SetCalibrators(ctx, name, nil),
	)
}

// ResetCalibrators restores the calibrators of the mission database.
func (c *ProcessorClient) ResetCalibrators(ctx context.Context, name string) error {
	return c.changeParameter(ctx, name, changeParameterRequest{Action: ActionResetCalibrators})
}

// SetDefaultAlarmRanges generates out-of-limit alarms using the ranges of rs,
// replacing previous default alarms. The context of rs is ignored. A range
// set without ranges removes the default alarms.
func (c *ProcessorClient) SetDefaultAlarmRanges(ctx context.Context, name string, rs model.RangeSet) error {
	req := changeParameterRequest{Action: ActionSetDefaultAlarms}
	if len(rs.Levels()) > 0 {
		info := buildAlarmInfo(rs)
		req.DefaultAlarm = &info
	}
	return c.changeParameter(ctx, name, req)
}

// SetAlarmRangeSets applies an ordered list of range sets, replacing existing
// ones. A set without context is the default set.
func (c *ProcessorClient) SetAlarmRangeSets(ctx context.Context, name string, sets []model.RangeSet) error {
	req := changeParameterRequest{Action: ActionSetAlarms}
	for _, rs := range sets {
		info := buildAlarmInfo(rs)
		if rs.Context == "" {
			req.DefaultAlarm = &info
			continue
		}
		req.ContextAlarm = append(req.ContextAlarm, contextAlarmInfo{Context: rs.Context, Alarm: info})
	}
	return c.changeParameter(ctx, name, req)
}

// ClearAlarmRanges removes all alarm limits of a parameter.
func (c *ProcessorClient) ClearAlarmRanges(ctx context.Context, name string) error {
	return multierr.Combine(
		c.SetDefaultAlarmRanges(ctx, name, model.RangeSet{}),
		c.SetAlarmRangeSets(ctx, name, nil),
	)
}

// ResetAlarmRanges restores the alarm limits of the mission database.
func (c *ProcessorClient) ResetAlarmRanges(ctx context.Context, name string) error {
	return c.changeParameter(ctx, name, changeParameterRequest{Action: ActionResetAlarms})
}

// SetAlgorithm changes the text of a JavaScript or Python algorithm.
func (c *ProcessorClient) SetAlgorithm(ctx context.Context, name, text string) error {
	req := changeAlgorithmRequest{Action: ActionSetAlgorithm, Algorithm: &algorithmText{Text: text}}
	return c.session.Post(ctx, c.mdbPath("algorithms", name), req, nil)
}

// ResetAlgorithm restores the algorithm text of the mission database.
func (c *ProcessorClient) ResetAlgorithm(ctx context.Context, name string) error {
	return c.session.Post(ctx, c.mdbPath("algorithms", name), changeAlgorithmRequest{Action: ActionResetAlgorithm}, nil)
}
