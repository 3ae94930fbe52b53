package sarif

import (
	"path/filepath"
	"sort"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

// Assembler builds a SARIF log from a rule catalog, diagnostics and faults.
type Assembler struct {
	version       string
	rules         []ReportingDescriptor
	ruleIndex     map[string]int
	results       []Result
	notifications []Notification
	properties    map[string]any
}

// NewAssembler creates an Assembler for the given tool version.
func NewAssembler(toolVersion string) *Assembler {
	return &Assembler{
		version:    toolVersion,
		ruleIndex:  make(map[string]int),
		properties: make(map[string]any),
	}
}

// AddRules adds the catalog entries for descriptors, applying the
// enablement and severity opts give them.
func (a *Assembler) AddRules(descriptors []*analysis.Descriptor, opts analysis.Options) *Assembler {
	for _, d := range descriptors {
		if _, dup := a.ruleIndex[d.ID]; dup {
			continue
		}
		enabled := opts.Enabled(d)
		rd := ReportingDescriptor{
			ID:               d.ID,
			Name:             d.Title,
			ShortDescription: Message{Text: d.Title},
			DefaultConfig: &ReportingConfiguration{
				Enabled: &enabled,
				Level:   opts.Severity(d).Level(),
			},
			Properties: map[string]any{
				"sharplint/severity": opts.Severity(d).String(),
			},
		}
		if d.Description != "" {
			rd.FullDescription = &Message{Text: d.Description}
		}
		if len(d.Tags) > 0 {
			rd.Properties["tags"] = d.Tags
		}
		if d.Remediation != "" {
			rd.Properties["sharplint/remediation"] = d.Remediation
		}
		a.ruleIndex[d.ID] = len(a.rules)
		a.rules = append(a.rules, rd)
	}
	return a
}

// AddDiagnostics converts diagnostics into results.
func (a *Assembler) AddDiagnostics(ds []diag.Diagnostic) *Assembler {
	for _, d := range ds {
		r := Result{
			RuleID:    d.RuleID,
			RuleIndex: -1,
			Level:     d.Severity.Level(),
			Message:   Message{Text: d.Message},
			Locations: []Location{location(d.Location)},
			Properties: map[string]any{
				"sharplint/severity": d.Severity.String(),
			},
		}
		for i, loc := range d.Additional {
			related := location(loc)
			related.ID = i + 1
			r.RelatedLocations = append(r.RelatedLocations, related)
		}
		a.results = append(a.results, r)
	}
	return a
}

// AddFaults records analyzer faults as tool execution notifications.
func (a *Assembler) AddFaults(faults []analysis.Fault) *Assembler {
	for _, f := range faults {
		n := Notification{
			Level:   "error",
			Message: Message{Text: f.Error()},
			Properties: map[string]any{
				"sharplint/analyzer": f.Analyzer,
				"sharplint/phase":    string(f.Phase),
			},
		}
		if f.Location.Path != "" {
			n.Locations = []Location{location(f.Location)}
		}
		a.notifications = append(a.notifications, n)
	}
	return a
}

// WithInputScope records how the input was selected (files, dir or diff).
func (a *Assembler) WithInputScope(scope string) *Assembler {
	return a.WithProperty("sharplint/inputScope", scope)
}

// WithProperty sets a run-level property.
func (a *Assembler) WithProperty(key string, value any) *Assembler {
	a.properties[key] = value
	return a
}

// Build constructs the log. Results are deduplicated and sorted by file,
// position and rule.
func (a *Assembler) Build() *Log {
	results := dedup(a.results)
	sortResults(results)
	for i := range results {
		if idx, ok := a.ruleIndex[results[i].RuleID]; ok {
			results[i].RuleIndex = idx
		}
	}

	log := NewLog(ToolName, a.version)
	run := &log.Runs[0]
	run.Tool.Driver.Rules = a.rules
	run.Results = results
	run.Invocations = []Invocation{{
		ExecutionSuccessful:        len(a.notifications) == 0,
		ToolExecutionNotifications: a.notifications,
	}}
	if len(a.properties) > 0 {
		run.Properties = a.properties
	}
	return log
}

func location(l diag.Location) Location {
	return Location{PhysicalLocation: PhysicalLocation{
		ArtifactLocation: ArtifactLocation{URI: filepath.ToSlash(l.Path)},
		Region:           region(l.Range),
	}}
}

func region(r syntax.Range) Region {
	return Region{
		StartLine:   r.Start.Line,
		StartColumn: r.Start.Column,
		EndLine:     r.End.Line,
		EndColumn:   r.End.Column,
	}
}

// dedup drops results that repeat the rule, message and primary region of
// an earlier one.
func dedup(results []Result) []Result {
	type key struct {
		ruleID  string
		message string
		uri     string
		region  Region
	}

	seen := make(map[key]bool)
	out := make([]Result, 0, len(results))
	for _, r := range results {
		k := key{ruleID: r.RuleID, message: r.Message.Text}
		if len(r.Locations) > 0 {
			k.uri = r.Locations[0].PhysicalLocation.ArtifactLocation.URI
			k.region = r.Locations[0].PhysicalLocation.Region
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := primary(results[i]), primary(results[j])
		if a.ArtifactLocation.URI != b.ArtifactLocation.URI {
			return a.ArtifactLocation.URI < b.ArtifactLocation.URI
		}
		if a.Region.StartLine != b.Region.StartLine {
			return a.Region.StartLine < b.Region.StartLine
		}
		if a.Region.StartColumn != b.Region.StartColumn {
			return a.Region.StartColumn < b.Region.StartColumn
		}
		return results[i].RuleID < results[j].RuleID
	})
}

func primary(r Result) PhysicalLocation {
	if len(r.Locations) == 0 {
		return PhysicalLocation{}
	}
	return r.Locations[0].PhysicalLocation
}
