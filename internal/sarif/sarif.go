// Package sarif models the subset of SARIF 2.1.0 sharplint emits and
// assembles logs from analysis results.
package sarif

const SchemaURI = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"
const Version = "2.1.0"

// ToolName is the driver name written into every log.
const ToolName = "sharplint"

type Log struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Run  `json:"runs"`
}

type Run struct {
	Tool        Tool           `json:"tool"`
	Invocations []Invocation   `json:"invocations,omitempty"`
	Results     []Result       `json:"results"`
	Properties  map[string]any `json:"properties,omitempty"`
}

type Tool struct {
	Driver Driver `json:"driver"`
}

type Driver struct {
	Name           string                `json:"name"`
	Version        string                `json:"version,omitempty"`
	InformationURI string                `json:"informationUri,omitempty"`
	Rules          []ReportingDescriptor `json:"rules,omitempty"`
}

type ReportingDescriptor struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name,omitempty"`
	ShortDescription Message                 `json:"shortDescription"`
	FullDescription  *Message                `json:"fullDescription,omitempty"`
	DefaultConfig    *ReportingConfiguration `json:"defaultConfiguration,omitempty"`
	Properties       map[string]any          `json:"properties,omitempty"`
}

type ReportingConfiguration struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Level   string `json:"level,omitempty"`
}

// Invocation records how the run went, including analyzer faults.
type Invocation struct {
	ExecutionSuccessful        bool              `json:"executionSuccessful"`
	WorkingDirectory           *ArtifactLocation `json:"workingDirectory,omitempty"`
	ToolExecutionNotifications []Notification    `json:"toolExecutionNotifications,omitempty"`
	Properties                 map[string]any    `json:"properties,omitempty"`
}

type Notification struct {
	Level      string         `json:"level"`
	Message    Message        `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

type Result struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             Message           `json:"message"`
	Locations           []Location        `json:"locations,omitempty"`
	RelatedLocations    []Location        `json:"relatedLocations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          map[string]any    `json:"properties,omitempty"`
}

type Message struct {
	Text string `json:"text"`
}

type Location struct {
	ID               int              `json:"id,omitempty"`
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           Region           `json:"region,omitempty"`
}

type ArtifactLocation struct {
	URI string `json:"uri"`
}

// Region columns are 1-based and the end column is exclusive.
type Region struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

func NewLog(toolName, toolVersion string) *Log {
	return &Log{
		Schema:  SchemaURI,
		Version: Version,
		Runs: []Run{{
			Tool: Tool{
				Driver: Driver{
					Name:    toolName,
					Version: toolVersion,
				},
			},
			Results: []Result{},
		}},
	}
}

// Results returns the results of every run.
func (l *Log) Results() []Result {
	var out []Result
	for _, run := range l.Runs {
		out = append(out, run.Results...)
	}
	return out
}

// CountByLevel tallies results per level.
func (l *Log) CountByLevel() map[string]int {
	counts := make(map[string]int)
	for _, r := range l.Results() {
		counts[r.Level]++
	}
	return counts
}

// Rule finds the reporting descriptor with the given id in the first run.
func (l *Log) Rule(id string) (ReportingDescriptor, bool) {
	if len(l.Runs) == 0 {
		return ReportingDescriptor{}, false
	}
	for _, rd := range l.Runs[0].Tool.Driver.Rules {
		if rd.ID == id {
			return rd, true
		}
	}
	return ReportingDescriptor{}, false
}
