package output

import (
	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/sarif"
	"github.com/chris-regnier/sharplint/internal/store"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

var (
	unusedRule = &analysis.Descriptor{
		ID: "S1172", Title: "Unused method parameters should be removed",
		MessageFormat: "x", Severity: diag.SeverityMajor, EnabledByDefault: true, Remediation: "5min",
	}
	partialRule = &analysis.Descriptor{
		ID: "S927", Title: "Parameter names should match base declaration",
		MessageFormat: "x", Severity: diag.SeverityCritical, EnabledByDefault: true,
	}
)

func finding(rule *analysis.Descriptor, path string, line, col int, msg string) diag.Diagnostic {
	return diag.Diagnostic{
		RuleID:   rule.ID,
		Message:  msg,
		Severity: rule.Severity,
		Location: diag.Location{Path: path, Range: syntax.Range{
			Start: syntax.Position{Line: line, Column: col},
			End:   syntax.Position{Line: line, Column: col + 1},
		}},
	}
}

// testLog has two findings in src/A.cs and one in src/B.cs.
func testLog() *sarif.Log {
	return sarif.NewAssembler("0.1.0").
		AddRules([]*analysis.Descriptor{partialRule, unusedRule}, analysis.Options{}).
		AddDiagnostics([]diag.Diagnostic{
			finding(unusedRule, "src/A.cs", 12, 20, `Remove this unused method parameter "a".`),
			finding(partialRule, "src/B.cs", 3, 9, `Rename parameter "y" to "x" to match the partial method declaration.`),
			finding(unusedRule, "src/A.cs", 4, 5, `Remove this unused method parameter "b".`),
		}).
		Build()
}

func testOutput(decision string) *AnalysisOutput {
	return &AnalysisOutput{
		RunID:    "2026-03-01T12-00-00Z-abcdef",
		Verdict:  &store.Verdict{Decision: decision, Reason: decision + ": 3 findings"},
		SARIFLog: testLog(),
	}
}
