package rules

import (
	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/semantic"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

var partialParameterNamesRule = &analysis.Descriptor{
	ID:               "S927",
	Title:            `"partial" method parameter names should match`,
	MessageFormat:    `Rename parameter "%s" to "%s".`,
	Severity:         diag.SeverityCritical,
	EnabledByDefault: true,
	Tags:             []string{"cert", "misra", "pitfall"},
	Remediation:      "10min",
}

// PartialParameterNames flags parameters of a partial method implementation
// whose names differ from the defining declaration. Only the overlapping
// prefix of the two parameter lists is compared.
var PartialParameterNames = &analysis.Analyzer{
	Name:        "partial-parameter-names",
	Descriptors: []*analysis.Descriptor{partialParameterNamesRule},
	Initialize: func(ctx *analysis.InitContext) {
		ctx.RegisterSyntaxNodeAction(checkPartialParameterNames, syntax.MethodDeclaration)
	},
}

func checkPartialParameterNames(c *analysis.SyntaxNodeContext) {
	method, ok := c.Model().SymbolOf(c.Node).(*semantic.Method)
	if !ok {
		return
	}
	definition := c.Model().PartialDefinitionOf(method)
	if definition == nil {
		return
	}

	for i, param := range c.Node.Parameters() {
		if i >= len(definition.Params) {
			break
		}
		want := definition.Params[i].Name()
		if param.Name() != want {
			c.Report(partialParameterNamesRule, c.IdentifierLocation(param), param.Name(), want)
		}
	}
}
