package model

// Instance is a Yamcs instance.
type Instance struct {
	Name         string            `json:"name"`
	State        string            `json:"state,omitempty"`
	MissionTime  string            `json:"missionTime,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	Processor    []Processor       `json:"processor,omitempty"`
	TemplateName string            `json:"template,omitempty"`
}

// Processor is a named execution context of an instance.
type Processor struct {
	Instance    string `json:"instance"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Creator     string `json:"creator,omitempty"`
	HasAlarms   bool   `json:"hasAlarms,omitempty"`
	HasCommands bool   `json:"hasCommanding,omitempty"`
	State       string `json:"state,omitempty"`
	Persistent  bool   `json:"persistent,omitempty"`
	Time        string `json:"time,omitempty"`
	Replay      bool   `json:"replay,omitempty"`
}

// Link is a data link of an instance.
type Link struct {
	Instance       string `json:"instance"`
	Name           string `json:"name"`
	Type           string `json:"type,omitempty"`
	Spec           string `json:"spec,omitempty"`
	Stream         string `json:"stream,omitempty"`
	Disabled       bool   `json:"disabled"`
	DataInCount    Int64  `json:"dataInCount,omitempty"`
	DataOutCount   Int64  `json:"dataOutCount,omitempty"`
	Status         string `json:"status,omitempty"`
	DetailedStatus string `json:"detailedStatus,omitempty"`
}

// ClassName is the implementation class of the link.
func (l Link) ClassName() string { return l.Type }

// ServerInfo describes the Yamcs server.
type ServerInfo struct {
	YamcsVersion    string `json:"yamcsVersion"`
	ServerID        string `json:"serverId"`
	DefaultYamcsIns string `json:"defaultYamcsInstance,omitempty"`
}
