package rules

import (
	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

const defaultMaxDepth = 3

var nestingDepthRule = &analysis.Descriptor{
	ID:            "S134",
	Title:         `Control flow statements "if", "switch", "for", "foreach", "while", "do" and "try" should not be nested too deeply`,
	MessageFormat: "Refactor this code to not nest more than %d control flow statements.",
	Severity:      diag.SeverityCritical,
	Tags:          []string{"brain-overload"},
	Remediation:   "10min",
}

var controlFlowKinds = []syntax.Kind{
	syntax.IfStatement,
	syntax.ForStatement,
	syntax.ForEachStatement,
	syntax.WhileStatement,
	syntax.DoStatement,
	syntax.SwitchStatement,
	syntax.TryStatement,
}

// NestingDepth flags the first control-flow statement nested deeper than
// max_depth inside a code block. Statements nested below an offending one
// are not reported again. An "else if" does not add a level.
var NestingDepth = &analysis.Analyzer{
	Name:        "nesting-depth",
	Descriptors: []*analysis.Descriptor{nestingDepthRule},
	Initialize: func(ctx *analysis.InitContext) {
		maxDepth := analysis.IntParam(ctx.Params(nestingDepthRule.ID), "max_depth", defaultMaxDepth)
		ctx.RegisterCodeBlockStartAction(func(c *analysis.CodeBlockStartContext) {
			owner := c.CodeBlock
			c.RegisterSyntaxNodeAction(func(nc *analysis.SyntaxNodeContext) {
				if isElseIf(nc.Node) {
					return
				}
				outer := enclosingControlFlow(nc.Node, owner)
				if len(outer) != maxDepth {
					return
				}
				secondary := make([]diag.Location, 0, len(outer))
				for i := len(outer) - 1; i >= 0; i-- {
					secondary = append(secondary, nc.Location(outer[i]))
				}
				nc.ReportWithLocations(nestingDepthRule, nc.Location(nc.Node), secondary, maxDepth)
			}, controlFlowKinds...)
		})
	},
}

// enclosingControlFlow returns the control-flow statements between n and
// owner that count as a nesting level, innermost first.
func enclosingControlFlow(n, owner *syntax.Node) []*syntax.Node {
	var out []*syntax.Node
	for p := n.Parent; p != nil && p != owner; p = p.Parent {
		if p.Kind.IsControlFlow() && !isElseIf(p) {
			out = append(out, p)
		}
	}
	return out
}

// isElseIf reports whether n is the "else" branch of an enclosing if. The
// branches of an if follow its condition, so an else branch is the third
// child.
func isElseIf(n *syntax.Node) bool {
	p := n.Parent
	if n.Kind != syntax.IfStatement || p == nil || p.Kind != syntax.IfStatement {
		return false
	}
	var parts []*syntax.Node
	for _, c := range p.Children {
		if c.Kind != syntax.Comment {
			parts = append(parts, c)
		}
	}
	return len(parts) == 3 && parts[2] == n
}
