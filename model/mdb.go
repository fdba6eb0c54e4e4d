package model

// Calibrator types.
const (
	CalibratorPolynomial = "polynomial"
	CalibratorSpline     = "spline"
)

// Alarm levels used in alarm ranges.
const (
	AlarmLevelWatch    = "WATCH"
	AlarmLevelWarning  = "WARNING"
	AlarmLevelDistress = "DISTRESS"
	AlarmLevelCritical = "CRITICAL"
	AlarmLevelSevere   = "SEVERE"
)

// SplinePoint is a point of a spline calibration curve.
type SplinePoint struct {
	Raw        float64 `json:"raw"`
	Calibrated float64 `json:"calibrated"`
}

// Calibrator may be applied to a numeric raw value.
//
// Polynomial calibrators apply y = a + bx + cx^2 + ... with Polynomial holding
// [a, b, c, ...]. Spline calibrators interpolate linearly between Spline points.
// An empty Context marks the default calibrator, which applies only when no
// contextual calibrator matches.
type Calibrator struct {
	Context    string
	Type       string
	Polynomial []float64
	Spline     []SplinePoint
}

// Range is an alarm range with exclusive bounds. A nil bound is unbounded.
type Range struct {
	Low  *float64
	High *float64
}

// NewRange is a shorthand for a range with both bounds set.
func NewRange(low, high float64) *Range {
	return &Range{Low: &low, High: &high}
}

// RangeSet is a set of alarm ranges that apply in a specific context. An empty
// Context marks the default set.
type RangeSet struct {
	Context       string
	Watch         *Range
	Warning       *Range
	Distress      *Range
	Critical      *Range
	Severe        *Range
	MinViolations int32
}

// Levels returns the configured ranges keyed by alarm level, most lenient first.
func (rs RangeSet) Levels() []LeveledRange {
	var out []LeveledRange
	for _, lr := range []LeveledRange{
		{AlarmLevelWatch, rs.Watch},
		{AlarmLevelWarning, rs.Warning},
		{AlarmLevelDistress, rs.Distress},
		{AlarmLevelCritical, rs.Critical},
		{AlarmLevelSevere, rs.Severe},
	} {
		if lr.Range != nil {
			out = append(out, lr)
		}
	}
	return out
}

// LeveledRange couples a range with its alarm level.
type LeveledRange struct {
	Level string
	Range *Range
}

// ParameterInfo describes a parameter of the mission database.
type ParameterInfo struct {
	Name           string          `json:"name"`
	QualifiedName  string          `json:"qualifiedName"`
	Alias          []NamedObjectID `json:"alias,omitempty"`
	ShortDesc      string          `json:"shortDescription,omitempty"`
	LongDesc       string          `json:"longDescription,omitempty"`
	DataSource     string          `json:"dataSource,omitempty"`
	Type           *ParameterType  `json:"type,omitempty"`
	UsedBy         interface{}     `json:"usedBy,omitempty"`
	AncillaryData  interface{}     `json:"ancillaryData,omitempty"`
	RecordingGroup []string        `json:"recordingGroup,omitempty"`
}

// ParameterType is the engineering type of a parameter.
type ParameterType struct {
	EngType      string      `json:"engType,omitempty"`
	DataEncoding interface{} `json:"dataEncoding,omitempty"`
	UnitSet      []UnitInfo  `json:"unitSet,omitempty"`
	DefaultAlarm interface{} `json:"defaultAlarm,omitempty"`
}

// UnitInfo is a unit of measurement.
type UnitInfo struct {
	Unit string `json:"unit"`
}

// ContainerInfo describes a container (packet definition).
type ContainerInfo struct {
	Name          string          `json:"name"`
	QualifiedName string          `json:"qualifiedName"`
	Alias         []NamedObjectID `json:"alias,omitempty"`
	ShortDesc     string          `json:"shortDescription,omitempty"`
	LongDesc      string          `json:"longDescription,omitempty"`
	MaxInterval   Int64           `json:"maxInterval,omitempty"`
	SizeInBits    int32           `json:"sizeInBits,omitempty"`
	Archive       bool            `json:"archivePartition,omitempty"`
	Entry         interface{}     `json:"entry,omitempty"`
}

// Description returns the most specific description available.
func (c ContainerInfo) Description() string {
	if c.LongDesc != "" {
		return c.LongDesc
	}
	return c.ShortDesc
}

// CommandInfo describes a command definition.
type CommandInfo struct {
	Name          string          `json:"name"`
	QualifiedName string          `json:"qualifiedName"`
	Alias         []NamedObjectID `json:"alias,omitempty"`
	ShortDesc     string          `json:"shortDescription,omitempty"`
	LongDesc      string          `json:"longDescription,omitempty"`
	Abstract      bool            `json:"abstract,omitempty"`
	Significance  interface{}     `json:"significance,omitempty"`
	Argument      []ArgumentInfo  `json:"argument,omitempty"`
}

// ArgumentInfo describes a command argument.
type ArgumentInfo struct {
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	InitialValue string      `json:"initialValue,omitempty"`
	Type         interface{} `json:"type,omitempty"`
}

// SpaceSystemInfo describes a node of the space system tree.
type SpaceSystemInfo struct {
	Name           string `json:"name"`
	QualifiedName  string `json:"qualifiedName"`
	ShortDesc      string `json:"shortDescription,omitempty"`
	LongDesc       string `json:"longDescription,omitempty"`
	Version        string `json:"version,omitempty"`
	ParameterCount int32  `json:"parameterCount,omitempty"`
	ContainerCount int32  `json:"containerCount,omitempty"`
	CommandCount   int32  `json:"commandCount,omitempty"`
	AlgorithmCount int32  `json:"algorithmCount,omitempty"`
}
