package csharp

import (
	"github.com/chris-regnier/sharplint/internal/semantic"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

// scopeKinds are the declarations whose parameters are in scope for the
// names inside them.
var scopeKinds = []syntax.Kind{
	syntax.MethodDeclaration,
	syntax.ConstructorDeclaration,
	syntax.DestructorDeclaration,
	syntax.OperatorDeclaration,
	syntax.AccessorDeclaration,
	syntax.LocalFunctionStatement,
	syntax.LambdaExpression,
	syntax.AnonymousMethodExpression,
}

// resolve binds every simple name in the tree it can.
func (b *binder) resolve(root *syntax.Node) {
	syntax.Walk(root, func(n *syntax.Node) bool {
		if n.Kind == syntax.IdentifierName || n.Kind == syntax.GenericName {
			if s := b.resolveName(n); s != nil {
				b.table.Bind(n, s)
			}
		}
		return true
	})
}

func (b *binder) resolveName(id *syntax.Node) semantic.Symbol {
	name := id.Name()
	parent := id.Parent

	if parent != nil && parent.Kind == syntax.MemberAccessExpression && len(parent.Children) > 0 && parent.Children[0] != id {
		// x.Name only resolves for this.Name and base.Name.
		switch parent.Children[0].Kind {
		case syntax.ThisExpression, syntax.BaseExpression:
			return b.resolveMember(id, name)
		}
		return nil
	}
	if parent != nil && parent.Kind == syntax.MemberAccessExpression && len(parent.Children) == 1 {
		// the receiver was a keyword the grammar keeps anonymous
		return b.resolveMember(id, name)
	}

	if isMemberLabel(id) || declaredByLambda(id, name) {
		return nil
	}
	if p := b.resolveParameter(id, name); p != nil {
		return p
	}
	if m := b.resolveMember(id, name); m != nil {
		return m
	}
	if t := b.lookupType(name); t != nil {
		return t
	}
	return nil
}

// labelHosts are the host nodes whose leading identifier names a member of
// another symbol rather than referring to anything in scope.
var labelHosts = map[string]bool{
	"name_colon":                   true, // Callee(count: 5)
	"name_equals":                  true, // new { count = 5 }
	"simple_assignment_expression": true, // x with { count = 5 }
	"with_initializer":             true,
}

// initializerHosts hold member assignments of object and with initializers.
var initializerHosts = map[string]bool{
	"initializer_expression":      true,
	"with_initializer_expression": true,
}

// isMemberLabel reports whether id is the name of a named argument or the
// assigned member in an initializer.
func isMemberLabel(id *syntax.Node) bool {
	parent := id.Parent
	if parent == nil || len(parent.Children) == 0 || parent.Children[0] != id {
		return false
	}
	if labelHosts[parent.HostType] {
		return true
	}
	if len(parent.Children) < 2 {
		return false
	}
	switch parent.Kind {
	case syntax.Argument:
		// argument: name ':' expression, when the grammar inlines the label
		return true
	case syntax.AssignmentExpression:
		return parent.Parent != nil && initializerHosts[parent.Parent.HostType]
	}
	return false
}

// resolveParameter finds name among the parameters of the enclosing
// methods, innermost first.
func (b *binder) resolveParameter(id *syntax.Node, name string) *semantic.Parameter {
	for scope := id.Ancestor(scopeKinds...); scope != nil; scope = scope.Ancestor(scopeKinds...) {
		if scope.Kind == syntax.LambdaExpression || scope.Kind == syntax.AnonymousMethodExpression {
			continue
		}
		m, ok := b.table.SymbolOf(scope).(*semantic.Method)
		if !ok {
			continue
		}
		for _, p := range m.Params {
			if p.Name() == name {
				return p
			}
		}
	}
	return nil
}

// declaredByLambda reports whether name is a parameter of a lambda or
// anonymous method enclosing id. Lambda parameters carry no symbol.
func declaredByLambda(id *syntax.Node, name string) bool {
	for scope := id.Ancestor(syntax.LambdaExpression, syntax.AnonymousMethodExpression); scope != nil; scope = scope.Ancestor(syntax.LambdaExpression, syntax.AnonymousMethodExpression) {
		for _, p := range scope.Parameters() {
			if p.Name() == name {
				return true
			}
		}
		// x => ...
		first := firstChild(scope)
		if first != nil && (first.Kind == syntax.IdentifierName || first.Kind == syntax.Parameter) && first.Name() == name {
			return true
		}
	}
	return false
}

// resolveMember finds a method named name in the enclosing types and their
// bases. In call position the argument count picks among overloads.
func (b *binder) resolveMember(id *syntax.Node, name string) *semantic.Method {
	arity := -1
	if call := invocationOf(id); call != nil {
		arity = argumentCount(call)
	}

	for decl := id.Ancestor(typeDeclKinds...); decl != nil; decl = decl.Ancestor(typeDeclKinds...) {
		t, ok := b.table.SymbolOf(decl).(*semantic.Type)
		if !ok {
			continue
		}
		var fallback *semantic.Method
		for _, c := range t.BaseChain() {
			for _, m := range c.MethodsNamed(name) {
				if m.MethodKind != semantic.Ordinary {
					continue
				}
				if arity < 0 || m.Arity() == arity {
					return m
				}
				if fallback == nil {
					fallback = m
				}
			}
		}
		if fallback != nil {
			return fallback
		}
	}
	return nil
}

var typeDeclKinds = []syntax.Kind{
	syntax.ClassDeclaration,
	syntax.StructDeclaration,
	syntax.InterfaceDeclaration,
	syntax.RecordDeclaration,
}

// invocationOf returns the call expression id is the callee of, directly
// or as the name of this.id / base.id.
func invocationOf(id *syntax.Node) *syntax.Node {
	callee := id
	if p := id.Parent; p != nil && p.Kind == syntax.MemberAccessExpression {
		callee = p
	}
	if p := callee.Parent; p != nil && p.Kind == syntax.InvocationExpression && firstChild(p) == callee {
		return p
	}
	return nil
}

func argumentCount(call *syntax.Node) int {
	args := call.Child(syntax.ArgumentList)
	if args == nil {
		return 0
	}
	return len(args.ChildrenOf(syntax.Argument))
}

func firstChild(n *syntax.Node) *syntax.Node {
	for _, c := range n.Children {
		if c.Kind != syntax.Comment {
			return c
		}
	}
	return nil
}
