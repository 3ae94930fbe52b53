package semantic

import "github.com/chris-regnier/sharplint/internal/syntax"

// Model answers symbol queries over one compilation. Every query returns a
// zero result ("no symbol", empty slice, false) rather than an error when
// the answer is unknown.
type Model interface {
	// SymbolOf returns the symbol a declaration node declares or a reference
	// node refers to.
	SymbolOf(n *syntax.Node) Symbol
	// DeclaringNodes returns the declaration nodes of s. For partial methods
	// the defining part comes first.
	DeclaringNodes(s Symbol) []*syntax.Node
	// PartialDefinitionOf returns the defining part of a partial method
	// implementation.
	PartialDefinitionOf(m *Method) *Method
	// InterfaceImplementations returns every interface member implemented
	// by t together with its implementor.
	InterfaceImplementations(t *Type) []Implementation
	// IsGenerated reports whether n lies in generated code.
	IsGenerated(n *syntax.Node) bool
}

// Implementation pairs an interface member with the method implementing it.
type Implementation struct {
	Interface   *Method
	Implementor *Method
}

// FindImplementation returns the member of t (or of its base types) that
// implements the interface member im. Explicit implementations win over
// implicit ones; nil means none was found.
func FindImplementation(t *Type, im *Method) *Method {
	chain := t.BaseChain()
	for _, c := range chain {
		for _, m := range c.MethodsNamed(im.name) {
			if m.ExplicitInterface == im.Type && m.Arity() == im.Arity() {
				return m
			}
		}
	}
	for _, c := range chain {
		for _, m := range c.MethodsNamed(im.name) {
			if m.ExplicitInterface == nil && !m.IsStatic() && m.Arity() == im.Arity() && m.MethodKind == Ordinary {
				return m
			}
		}
	}
	return nil
}

// ImplementsInterfaceMember reports whether m implements any member of an
// interface of its containing type.
func ImplementsInterfaceMember(model Model, m *Method) bool {
	if m.Type == nil {
		return false
	}
	for _, impl := range model.InterfaceImplementations(m.Type) {
		if impl.Implementor == m {
			return true
		}
	}
	return false
}
