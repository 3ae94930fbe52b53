package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-regnier/sharplint/internal/sarif"
)

func region(startLine, startCol, endLine, endCol int) sarif.Location {
	return sarif.Location{PhysicalLocation: sarif.PhysicalLocation{
		ArtifactLocation: sarif.ArtifactLocation{URI: "A.cs"},
		Region:           sarif.Region{StartLine: startLine, StartColumn: startCol, EndLine: endLine, EndColumn: endCol},
	}}
}

func TestLevelToSeverity(t *testing.T) {
	tests := []struct {
		level string
		want  DiagnosticSeverity
	}{
		{"error", DiagnosticSeverityError},
		{"warning", DiagnosticSeverityWarning},
		{"note", DiagnosticSeverityInformation},
		{"none", DiagnosticSeverityHint},
		{"", DiagnosticSeverityHint},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, levelToSeverity(tt.level))
		})
	}
}

func TestDocumentPosition(t *testing.T) {
	// "é" is two bytes and one UTF-16 unit; "𝒳" is four bytes and two units.
	doc := newDocument("file:///A.cs", "int x;\r\nvar s = \"é\"; int y;\n// 𝒳 z\n")

	tests := []struct {
		name         string
		line, column int
		want         Position
	}{
		{"first column", 1, 1, Position{Line: 0, Character: 0}},
		{"ascii", 1, 5, Position{Line: 0, Character: 4}},
		{"past two-byte rune", 2, 14, Position{Line: 1, Character: 12}},
		{"past surrogate pair", 3, 9, Position{Line: 2, Character: 6}},
		{"past end of line clamps", 1, 40, Position{Line: 0, Character: 6}},
		{"line beyond text", 9, 3, Position{Line: 8, Character: 2}},
		{"no column", 2, 0, Position{Line: 1, Character: 0}},
		{"no line", 0, 5, Position{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, doc.position(tt.line, tt.column))
		})
	}
}

func TestRangeOfWithoutEnd(t *testing.T) {
	doc := newDocument("file:///A.cs", "class A { }")
	r := doc.rangeOf(sarif.Region{StartLine: 1, StartColumn: 7})
	assert.Equal(t, Position{Line: 0, Character: 6}, r.Start)
	assert.Equal(t, r.Start, r.End)
}

func TestResultToDiagnostic(t *testing.T) {
	content := "partial class A {\n  partial void M(int a);\n  partial void M(int b) { }\n}\n"
	result := sarif.Result{
		RuleID:           "S927",
		Level:            "error",
		Message:          sarif.Message{Text: `Rename parameter "b" to "a".`},
		Locations:        []sarif.Location{region(3, 22, 3, 23)},
		RelatedLocations: []sarif.Location{region(2, 22, 2, 23)},
		Properties:       map[string]any{"sharplint/severity": "critical"},
	}
	rule := &sarif.ReportingDescriptor{
		ID: "S927",
		Properties: map[string]any{
			"tags":                  []string{"cert", "pitfall"},
			"sharplint/remediation": "10min",
		},
	}

	d := ResultToDiagnostic(result, rule, "file:///A.cs", content)

	assert.Equal(t, DiagnosticSeverityError, d.Severity)
	assert.Equal(t, "S927", d.Code)
	assert.Equal(t, "sharplint", d.Source)
	assert.Equal(t, Range{Start: Position{Line: 2, Character: 21}, End: Position{Line: 2, Character: 22}}, d.Range)
	assert.Empty(t, d.Tags)

	require.Len(t, d.RelatedInformation, 1)
	related := d.RelatedInformation[0].Location
	assert.Equal(t, "file:///A.cs", related.URI)
	assert.Equal(t, 1, related.Range.Start.Line)

	require.NotNil(t, d.Data)
	assert.Equal(t, "critical", d.Data.Severity)
	assert.Equal(t, "10min", d.Data.Remediation)
}

func TestResultToDiagnostic_UnusedIsUnnecessary(t *testing.T) {
	rule := &sarif.ReportingDescriptor{ID: "S1172", Properties: map[string]any{"tags": []string{"misra", "unused"}}}
	d := ResultToDiagnostic(sarif.Result{RuleID: "S1172", Level: "warning", Locations: []sarif.Location{region(1, 1, 1, 2)}}, rule, "file:///A.cs", "x")

	assert.Equal(t, []DiagnosticTag{DiagnosticTagUnnecessary}, d.Tags)
	assert.Nil(t, d.Data)
}

func TestResultToDiagnostic_NoRuleNoLocation(t *testing.T) {
	d := ResultToDiagnostic(sarif.Result{RuleID: "sharplint-fault", Level: "note", Message: sarif.Message{Text: "boom"}}, nil, "file:///A.cs", "")
	assert.Equal(t, Range{}, d.Range)
	assert.Equal(t, DiagnosticSeverityInformation, d.Severity)
	assert.Equal(t, "boom", d.Message)
}

func TestLogToDiagnostics(t *testing.T) {
	assert.NotNil(t, LogToDiagnostics(nil, "file:///A.cs", ""))
	assert.Empty(t, LogToDiagnostics(nil, "file:///A.cs", ""))

	log := sarif.NewLog(sarif.ToolName, "test")
	log.Runs[0].Tool.Driver.Rules = []sarif.ReportingDescriptor{
		{ID: "S1172", Properties: map[string]any{"tags": []string{"unused"}}},
	}
	log.Runs[0].Results = []sarif.Result{
		{RuleID: "S1172", Level: "warning", Locations: []sarif.Location{region(1, 1, 1, 2)}},
		{RuleID: "S107", Level: "warning", Locations: []sarif.Location{region(1, 1, 1, 2)}},
	}

	ds := LogToDiagnostics(log, "file:///A.cs", "x")
	require.Len(t, ds, 2)
	assert.Equal(t, []DiagnosticTag{DiagnosticTagUnnecessary}, ds[0].Tags)
	assert.Empty(t, ds[1].Tags)
}
