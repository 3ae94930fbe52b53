package rules

import (
	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

var emptyCatchRule = &analysis.Descriptor{
	ID:               "S2486",
	Title:            "Exceptions should not be ignored",
	MessageFormat:    "Handle the exception or explain in a comment why it can be ignored.",
	Severity:         diag.SeverityMajor,
	EnabledByDefault: true,
	Tags:             []string{"cwe", "error-handling"},
	Remediation:      "15min",
}

// EmptyCatch flags catch clauses whose block holds neither statements nor
// a comment.
var EmptyCatch = &analysis.Analyzer{
	Name:        "empty-catch",
	Descriptors: []*analysis.Descriptor{emptyCatchRule},
	Initialize: func(ctx *analysis.InitContext) {
		ctx.RegisterSyntaxNodeAction(func(c *analysis.SyntaxNodeContext) {
			body := c.Node.Child(syntax.Block)
			if body == nil || len(body.Children) > 0 {
				return
			}
			c.Report(emptyCatchRule, c.Location(c.Node))
		}, syntax.CatchClause)
	},
}
