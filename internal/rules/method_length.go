package rules

import (
	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

const defaultMaxLines = 50

var methodLengthRule = &analysis.Descriptor{
	ID:            "S138",
	Title:         "Methods should not have too many lines",
	MessageFormat: "This method has %d lines, which is greater than the %d lines authorized. Split it into smaller methods.",
	Severity:      diag.SeverityMajor,
	Tags:          []string{"brain-overload"},
	Remediation:   "20min",
}

// MethodLength measures each method and constructor when its code block
// closes.
var MethodLength = &analysis.Analyzer{
	Name:        "method-length",
	Descriptors: []*analysis.Descriptor{methodLengthRule},
	Initialize: func(ctx *analysis.InitContext) {
		maxLines := analysis.IntParam(ctx.Params(methodLengthRule.ID), "max_lines", defaultMaxLines)
		ctx.RegisterCodeBlockStartAction(func(c *analysis.CodeBlockStartContext) {
			if c.CodeBlock.Kind != syntax.MethodDeclaration && c.CodeBlock.Kind != syntax.ConstructorDeclaration {
				return
			}
			c.RegisterCodeBlockEndAction(func(end *analysis.CodeBlockContext) {
				body := end.CodeBlock.Body()
				if body == nil {
					return
				}
				lines := end.CodeBlock.Range.Lines()
				if lines > maxLines {
					end.Report(methodLengthRule, end.IdentifierLocation(end.CodeBlock), lines, maxLines)
				}
			})
		})
	},
}
