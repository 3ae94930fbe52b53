// Package semantic exposes the resolved-symbol view of a compilation that
// rules query: which entity a node declares or references, partial-method
// pairing, interface implementation and override chains.
//
// Symbols are interned: one logical entity is one pointer, so symbols can be
// compared with == and used as map keys.
package semantic

import "strings"

// Symbol is a resolved named entity.
type Symbol interface {
	Name() string
	// ContainingType is the type that declares the symbol, or nil for
	// top-level types.
	ContainingType() *Type
	symbol()
}

// TypeKind distinguishes the flavors of named types.
type TypeKind uint8

const (
	Class TypeKind = iota
	Struct
	Interface
	Record
	Enum
)

func (k TypeKind) String() string {
	switch k {
	case Class:
		return "class"
	case Struct:
		return "struct"
	case Interface:
		return "interface"
	case Record:
		return "record"
	case Enum:
		return "enum"
	}
	return "unknown"
}

// Type is a named type.
type Type struct {
	name       string
	TypeKind   TypeKind
	Namespace  string
	Outer      *Type
	Base       *Type
	Interfaces []*Type
	Methods    []*Method
}

// NewType returns a type symbol.
func NewType(name string, kind TypeKind) *Type {
	return &Type{name: name, TypeKind: kind}
}

func (t *Type) Name() string          { return t.name }
func (t *Type) ContainingType() *Type { return t.Outer }
func (*Type) symbol()                 {}

// FullName returns the namespace- and outer-type-qualified name.
func (t *Type) FullName() string {
	var parts []string
	for o := t; o != nil; o = o.Outer {
		parts = append(parts, o.name)
	}
	if t.root().Namespace != "" {
		parts = append(parts, t.root().Namespace)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func (t *Type) root() *Type {
	for t.Outer != nil {
		t = t.Outer
	}
	return t
}

// IsInterface reports whether t is an interface.
func (t *Type) IsInterface() bool { return t.TypeKind == Interface }

// AddMethod declares m as a member of t.
func (t *Type) AddMethod(m *Method) {
	m.Type = t
	t.Methods = append(t.Methods, m)
}

// MethodsNamed returns the members of t (not of its bases) called name.
func (t *Type) MethodsNamed(name string) []*Method {
	var out []*Method
	for _, m := range t.Methods {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}

// BaseChain returns t followed by its base types, nearest first. Cycles in
// malformed input are cut.
func (t *Type) BaseChain() []*Type {
	var chain []*Type
	seen := make(map[*Type]bool)
	for c := t; c != nil && !seen[c]; c = c.Base {
		seen[c] = true
		chain = append(chain, c)
	}
	return chain
}

// AllInterfaces returns every interface t implements, directly, through its
// base types, or through interface inheritance. Order is first-seen,
// duplicates removed. For an interface, the interface itself is excluded.
func (t *Type) AllInterfaces() []*Type {
	var out []*Type
	seen := map[*Type]bool{t: true}
	var visit func(*Type)
	visit = func(i *Type) {
		if seen[i] {
			return
		}
		seen[i] = true
		out = append(out, i)
		for _, parent := range i.Interfaces {
			visit(parent)
		}
	}
	for _, c := range t.BaseChain() {
		for _, i := range c.Interfaces {
			visit(i)
		}
	}
	return out
}

// Modifiers is a bit set of declaration modifiers that affect semantics.
type Modifiers uint16

const (
	Abstract Modifiers = 1 << iota
	Virtual
	Override
	Static
	Partial
	Sealed
	Extern
	Async
)

var modifierKeywords = map[string]Modifiers{
	"abstract": Abstract,
	"virtual":  Virtual,
	"override": Override,
	"static":   Static,
	"partial":  Partial,
	"sealed":   Sealed,
	"extern":   Extern,
	"async":    Async,
}

// ParseModifiers folds modifier keywords into a bit set. Unknown keywords
// (accessibility, readonly, ...) are ignored.
func ParseModifiers(keywords []string) Modifiers {
	var m Modifiers
	for _, k := range keywords {
		m |= modifierKeywords[k]
	}
	return m
}

// Has reports whether every bit of other is set.
func (m Modifiers) Has(other Modifiers) bool { return m&other == other }

// MethodKind distinguishes the flavors of callable members.
type MethodKind uint8

const (
	Ordinary MethodKind = iota
	Constructor
	Destructor
	Operator
	Accessor
	LocalFunction
)

// Method is a callable member.
type Method struct {
	name       string
	MethodKind MethodKind
	Type       *Type
	Params     []*Parameter
	Modifiers  Modifiers

	// ExplicitInterface is set for explicit interface implementations.
	ExplicitInterface *Type
	// Overridden is the base method an override replaces.
	Overridden *Method
	// PartialDefinition is set on the implementing part of a partial method.
	PartialDefinition *Method
	// PartialImplementation is set on the defining part of a partial method.
	PartialImplementation *Method
}

// NewMethod returns a method symbol with the named parameters.
func NewMethod(name string, mods Modifiers, params ...string) *Method {
	m := &Method{name: name, Modifiers: mods}
	for _, p := range params {
		m.AddParameter(p)
	}
	return m
}

func (m *Method) Name() string          { return m.name }
func (m *Method) ContainingType() *Type { return m.Type }
func (*Method) symbol()                 {}

// AddParameter appends a parameter and returns it.
func (m *Method) AddParameter(name string) *Parameter {
	p := &Parameter{name: name, Method: m, Ordinal: len(m.Params)}
	m.Params = append(m.Params, p)
	return p
}

// Arity is the number of parameters.
func (m *Method) Arity() int { return len(m.Params) }

// IsAbstract reports whether m has no implementation of its own. Interface
// members count as abstract.
func (m *Method) IsAbstract() bool {
	return m.Modifiers.Has(Abstract) || (m.Type != nil && m.Type.IsInterface() && !m.Modifiers.Has(Static))
}

func (m *Method) IsVirtual() bool  { return m.Modifiers.Has(Virtual) }
func (m *Method) IsOverride() bool { return m.Modifiers.Has(Override) }
func (m *Method) IsStatic() bool   { return m.Modifiers.Has(Static) }

// IsPartialDefinition reports whether m is the defining part of a partial
// method. A definition without an implementation still counts.
func (m *Method) IsPartialDefinition() bool {
	return m.Modifiers.Has(Partial) && m.PartialDefinition == nil
}

// Parameter is a method parameter.
type Parameter struct {
	name    string
	Method  *Method
	Ordinal int
}

func (p *Parameter) Name() string { return p.name }

func (p *Parameter) ContainingType() *Type {
	if p.Method == nil {
		return nil
	}
	return p.Method.Type
}

func (*Parameter) symbol() {}
