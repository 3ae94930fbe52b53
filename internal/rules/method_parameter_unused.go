package rules

import (
	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/semantic"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

var unusedParameterRule = &analysis.Descriptor{
	ID:               "S1172",
	Title:            "Unused method parameters should be removed",
	MessageFormat:    `Remove this unused method parameter "%s".`,
	Severity:         diag.SeverityMajor,
	EnabledByDefault: true,
	Tags:             []string{"misra", "unused"},
	Remediation:      "5min",
}

// MethodParameterUnused flags parameters a method body never reads. Methods
// whose signature is dictated elsewhere (abstract, virtual, override,
// interface implementations) are exempt, and so is any method referenced
// other than by a direct call, since its signature must then match a
// delegate.
var MethodParameterUnused = &analysis.Analyzer{
	Name:        "method-parameter-unused",
	Descriptors: []*analysis.Descriptor{unusedParameterRule},
	Initialize: func(ctx *analysis.InitContext) {
		ctx.RegisterCompilationStartAction(startUnusedParameters)
	},
}

// unusedParameters is the per-compilation state of MethodParameterUnused.
type unusedParameters struct {
	// staged holds methods with unused parameters in block-end order.
	staged     []stagedMethod
	unused     map[*semantic.Method][]*semantic.Parameter
	referenced map[*semantic.Method]bool
}

// stagedMethod is a method whose body left parameters unread, with the
// declaration that owns the body.
type stagedMethod struct {
	method *semantic.Method
	decl   *syntax.Node
}

func startUnusedParameters(c *analysis.CompilationStartContext) {
	state := &unusedParameters{
		unused:     make(map[*semantic.Method][]*semantic.Parameter),
		referenced: make(map[*semantic.Method]bool),
	}

	c.RegisterCodeBlockStartAction(state.startBlock)

	c.RegisterSyntaxNodeAction(func(nc *analysis.SyntaxNodeContext) {
		if p := nc.Node.Parent; p != nil && p.Kind == syntax.InvocationExpression {
			return
		}
		if m, ok := nc.Model().SymbolOf(nc.Node).(*semantic.Method); ok {
			state.referenced[m] = true
		}
	}, syntax.IdentifierName)

	c.RegisterCompilationEndAction(state.report)
}

func (s *unusedParameters) startBlock(c *analysis.CodeBlockStartContext) {
	if c.CodeBlock.Kind != syntax.MethodDeclaration {
		return
	}
	method, ok := c.OwningSymbol.(*semantic.Method)
	if !ok || !isCandidate(c.Model(), method) {
		return
	}
	decl := c.CodeBlock

	used := make(map[*semantic.Parameter]bool)
	c.RegisterSyntaxNodeAction(func(nc *analysis.SyntaxNodeContext) {
		if p, ok := nc.Model().SymbolOf(nc.Node).(*semantic.Parameter); ok && p.Method == method {
			used[p] = true
		}
	}, syntax.IdentifierName)

	c.RegisterCodeBlockEndAction(func(*analysis.CodeBlockContext) {
		var unused []*semantic.Parameter
		for _, p := range method.Params {
			if !used[p] {
				unused = append(unused, p)
			}
		}
		if len(unused) == 0 {
			return
		}
		if _, seen := s.unused[method]; !seen {
			s.staged = append(s.staged, stagedMethod{method: method, decl: decl})
		}
		s.unused[method] = unused
	})
}

// isCandidate reports whether the signature of m is its own to change.
func isCandidate(model semantic.Model, m *semantic.Method) bool {
	if m.IsAbstract() || m.IsVirtual() || m.IsOverride() || m.IsPartialDefinition() {
		return false
	}
	return !semantic.ImplementsInterfaceMember(model, m)
}

// isReferenced reports whether m, or the definition of a partial m, is
// used other than as a callee.
func (s *unusedParameters) isReferenced(model semantic.Model, m *semantic.Method) bool {
	if s.referenced[m] {
		return true
	}
	def := model.PartialDefinitionOf(m)
	return def != nil && s.referenced[def]
}

func (s *unusedParameters) report(c *analysis.CompilationEndContext) {
	for _, st := range s.staged {
		if s.isReferenced(c.Model(), st.method) {
			continue
		}
		params := st.decl.Parameters()
		for _, p := range s.unused[st.method] {
			if p.Ordinal >= len(params) {
				continue
			}
			c.Report(unusedParameterRule, c.IdentifierLocation(params[p.Ordinal]), p.Name())
		}
	}
}
