package lsp

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/chris-regnier/sharplint/internal/sarif"
)

// DiagnosticSeverity maps to LSP severity levels
type DiagnosticSeverity int

const (
	DiagnosticSeverityError       DiagnosticSeverity = 1
	DiagnosticSeverityWarning     DiagnosticSeverity = 2
	DiagnosticSeverityInformation DiagnosticSeverity = 3
	DiagnosticSeverityHint        DiagnosticSeverity = 4
)

// DiagnosticTag marks how a client may render a diagnostic.
type DiagnosticTag int

const DiagnosticTagUnnecessary DiagnosticTag = 1

// Position is a zero-based line and UTF-16 character offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

type DiagnosticRelatedInformation struct {
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

// DiagnosticData carries sharplint metadata a client can show on hover.
type DiagnosticData struct {
	Severity    string `json:"severity,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

type Diagnostic struct {
	Range              Range                          `json:"range"`
	Severity           DiagnosticSeverity             `json:"severity"`
	Code               string                         `json:"code,omitempty"`
	Source             string                         `json:"source,omitempty"`
	Message            string                         `json:"message"`
	Tags               []DiagnosticTag                `json:"tags,omitempty"`
	RelatedInformation []DiagnosticRelatedInformation `json:"relatedInformation,omitempty"`
	Data               *DiagnosticData                `json:"data,omitempty"`
}

func levelToSeverity(level string) DiagnosticSeverity {
	switch level {
	case "error":
		return DiagnosticSeverityError
	case "warning":
		return DiagnosticSeverityWarning
	case "note":
		return DiagnosticSeverityInformation
	default:
		return DiagnosticSeverityHint
	}
}

// document maps SARIF regions, whose columns count bytes, onto LSP
// positions in one source text.
type document struct {
	uri   string
	lines []string
}

func newDocument(uri, content string) document {
	return document{uri: uri, lines: strings.Split(content, "\n")}
}

// position converts a 1-based line and 1-based byte column.
func (doc document) position(line, column int) Position {
	if line < 1 {
		return Position{}
	}
	p := Position{Line: line - 1}
	if column < 1 {
		return p
	}
	if p.Line >= len(doc.lines) {
		p.Character = column - 1
		return p
	}
	text := strings.TrimSuffix(doc.lines[p.Line], "\r")
	p.Character = utf16Len(text, column-1)
	return p
}

// utf16Len counts the UTF-16 code units in the first n bytes of s.
func utf16Len(s string, n int) int {
	if n > len(s) {
		n = len(s)
	}
	units := 0
	for i := 0; i < n; {
		r, size := utf8.DecodeRuneInString(s[i:])
		units += utf16.RuneLen(r)
		i += size
	}
	return units
}

func (doc document) rangeOf(r sarif.Region) Range {
	start := doc.position(r.StartLine, r.StartColumn)
	endLine, endColumn := r.EndLine, r.EndColumn
	if endLine == 0 {
		endLine, endColumn = r.StartLine, r.StartColumn
	}
	return Range{Start: start, End: doc.position(endLine, endColumn)}
}

// ResultToDiagnostic converts a SARIF result located in content, the text
// of the document at uri.
// rule may be nil when the log has no descriptor for the result.
func ResultToDiagnostic(r sarif.Result, rule *sarif.ReportingDescriptor, uri, content string) Diagnostic {
	return newDocument(uri, content).diagnostic(r, rule)
}

func (doc document) diagnostic(r sarif.Result, rule *sarif.ReportingDescriptor) Diagnostic {
	d := Diagnostic{
		Severity: levelToSeverity(r.Level),
		Code:     r.RuleID,
		Source:   "sharplint",
		Message:  r.Message.Text,
	}
	if len(r.Locations) > 0 {
		d.Range = doc.rangeOf(r.Locations[0].PhysicalLocation.Region)
	}
	for _, loc := range r.RelatedLocations {
		d.RelatedInformation = append(d.RelatedInformation, DiagnosticRelatedInformation{
			Location: Location{URI: doc.uri, Range: doc.rangeOf(loc.PhysicalLocation.Region)},
			Message:  "related location",
		})
	}

	data := &DiagnosticData{}
	if sev, ok := r.Properties["sharplint/severity"].(string); ok {
		data.Severity = sev
	}
	if rule != nil {
		if fix, ok := rule.Properties["sharplint/remediation"].(string); ok {
			data.Remediation = fix
		}
		if hasTag(rule, "unused") {
			d.Tags = []DiagnosticTag{DiagnosticTagUnnecessary}
		}
	}
	if data.Severity != "" || data.Remediation != "" {
		d.Data = data
	}
	return d
}

func hasTag(rule *sarif.ReportingDescriptor, tag string) bool {
	tags, _ := rule.Properties["tags"].([]string)
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LogToDiagnostics converts every result of log, all located in one
// document.
func LogToDiagnostics(log *sarif.Log, uri, content string) []Diagnostic {
	diagnostics := make([]Diagnostic, 0)
	if log == nil {
		return diagnostics
	}
	doc := newDocument(uri, content)
	for _, r := range log.Results() {
		var rule *sarif.ReportingDescriptor
		if rd, ok := log.Rule(r.RuleID); ok {
			rule = &rd
		}
		diagnostics = append(diagnostics, doc.diagnostic(r, rule))
	}
	return diagnostics
}
