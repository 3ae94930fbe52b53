package rules

import (
	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/semantic"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

const defaultMaxParams = 7

var parameterCountRule = &analysis.Descriptor{
	ID:               "S107",
	Title:            "Methods should not have too many parameters",
	MessageFormat:    "Method has %d parameters, which is greater than the %d authorized.",
	Severity:         diag.SeverityMajor,
	EnabledByDefault: true,
	Tags:             []string{"brain-overload"},
	Remediation:      "20min",
}

// ParameterCount flags methods, constructors and local functions with more
// than max_params parameters. Overrides are skipped since their signature is
// inherited.
var ParameterCount = &analysis.Analyzer{
	Name:        "parameter-count",
	Descriptors: []*analysis.Descriptor{parameterCountRule},
	Initialize: func(ctx *analysis.InitContext) {
		maxParams := analysis.IntParam(ctx.Params(parameterCountRule.ID), "max_params", defaultMaxParams)
		ctx.RegisterSyntaxNodeAction(func(c *analysis.SyntaxNodeContext) {
			count := len(c.Node.Parameters())
			if count <= maxParams {
				return
			}
			if m, ok := c.Model().SymbolOf(c.Node).(*semantic.Method); ok && m.IsOverride() {
				return
			}
			c.Report(parameterCountRule, c.IdentifierLocation(c.Node), count, maxParams)
		}, syntax.MethodDeclaration, syntax.ConstructorDeclaration, syntax.LocalFunctionStatement)
	},
}
