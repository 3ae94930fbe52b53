package semantic

import "github.com/chris-regnier/sharplint/internal/syntax"

// Table is a Model a host fills while binding. Filling is single-threaded;
// once the host is done the table is read-only and safe to share.
type Table struct {
	symbols   map[*syntax.Node]Symbol
	decls     map[Symbol][]*syntax.Node
	generated map[*syntax.Node]bool
	types     []*Type
}

var _ Model = (*Table)(nil)

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		symbols:   make(map[*syntax.Node]Symbol),
		decls:     make(map[Symbol][]*syntax.Node),
		generated: make(map[*syntax.Node]bool),
	}
}

// Declare records that n declares s. A symbol may have several declaring
// nodes (partial types).
func (t *Table) Declare(n *syntax.Node, s Symbol) {
	t.symbols[n] = s
	if _, seen := t.decls[s]; !seen {
		if ty, ok := s.(*Type); ok {
			t.types = append(t.types, ty)
		}
	}
	t.decls[s] = append(t.decls[s], n)
}

// Bind records that the reference node n resolves to s.
func (t *Table) Bind(n *syntax.Node, s Symbol) {
	t.symbols[n] = s
}

// MarkGenerated flags n and its whole subtree as generated code. Marking a
// tree root marks the file.
func (t *Table) MarkGenerated(n *syntax.Node) {
	t.generated[n] = true
}

// LinkPartial pairs the defining and implementing parts of a partial method.
func (t *Table) LinkPartial(definition, implementation *Method) {
	definition.PartialImplementation = implementation
	implementation.PartialDefinition = definition
}

// Types returns the declared types in declaration order.
func (t *Table) Types() []*Type { return t.types }

// SymbolOf implements Model.
func (t *Table) SymbolOf(n *syntax.Node) Symbol {
	if n == nil {
		return nil
	}
	return t.symbols[n]
}

// DeclaringNodes implements Model.
func (t *Table) DeclaringNodes(s Symbol) []*syntax.Node {
	m, ok := s.(*Method)
	if !ok || !m.Modifiers.Has(Partial) {
		return t.decls[s]
	}
	def, impl := m, m.PartialImplementation
	if m.PartialDefinition != nil {
		def, impl = m.PartialDefinition, m
	}
	out := append([]*syntax.Node(nil), t.decls[def]...)
	if impl != nil {
		out = append(out, t.decls[impl]...)
	}
	return out
}

// PartialDefinitionOf implements Model.
func (t *Table) PartialDefinitionOf(m *Method) *Method {
	if m == nil {
		return nil
	}
	return m.PartialDefinition
}

// InterfaceImplementations implements Model.
func (t *Table) InterfaceImplementations(ty *Type) []Implementation {
	if ty == nil || ty.IsInterface() {
		return nil
	}
	var out []Implementation
	for _, iface := range ty.AllInterfaces() {
		for _, im := range iface.Methods {
			if im.MethodKind != Ordinary || im.IsStatic() {
				continue
			}
			if impl := FindImplementation(ty, im); impl != nil {
				out = append(out, Implementation{Interface: im, Implementor: impl})
			}
		}
	}
	return out
}

// IsGenerated implements Model.
func (t *Table) IsGenerated(n *syntax.Node) bool {
	for c := n; c != nil; c = c.Parent {
		if t.generated[c] {
			return true
		}
	}
	return false
}
