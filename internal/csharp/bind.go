package csharp

import (
	"github.com/chris-regnier/sharplint/internal/semantic"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

var typeKinds = map[syntax.Kind]semantic.TypeKind{
	syntax.ClassDeclaration:     semantic.Class,
	syntax.StructDeclaration:    semantic.Struct,
	syntax.InterfaceDeclaration: semantic.Interface,
	syntax.RecordDeclaration:    semantic.Record,
	syntax.EnumDeclaration:      semantic.Enum,
}

var methodKinds = map[syntax.Kind]semantic.MethodKind{
	syntax.MethodDeclaration:      semantic.Ordinary,
	syntax.ConstructorDeclaration: semantic.Constructor,
	syntax.DestructorDeclaration:  semantic.Destructor,
	syntax.OperatorDeclaration:    semantic.Operator,
	syntax.AccessorDeclaration:    semantic.Accessor,
	syntax.LocalFunctionStatement: semantic.LocalFunction,
}

type pendingBase struct {
	typ  *semantic.Type
	list *syntax.Node
}

type pendingExplicit struct {
	method    *semantic.Method
	specifier *syntax.Node
}

type binder struct {
	table     *semantic.Table
	types     map[string]*semantic.Type
	byName    map[string][]*semantic.Type
	bases     []pendingBase
	explicits []pendingExplicit
	bodies    map[*semantic.Method]bool
}

// Bind declares the symbols of trees and resolves their references.
func Bind(trees []*syntax.Tree) *semantic.Table {
	b := &binder{
		table:  semantic.NewTable(),
		types:  make(map[string]*semantic.Type),
		byName: make(map[string][]*semantic.Type),
		bodies: make(map[*semantic.Method]bool),
	}
	for _, t := range trees {
		if IsGeneratedPath(t.Path) || hasGeneratedHeader(t.Root) {
			b.table.MarkGenerated(t.Root)
		}
		b.declare(t.Root, "", nil)
	}
	b.link()
	for _, t := range trees {
		b.resolve(t.Root)
	}
	return b.table
}

// declare walks declarations, creating symbols.
func (b *binder) declare(n *syntax.Node, namespace string, outer *semantic.Type) {
	if hasGeneratedAttribute(n) {
		b.table.MarkGenerated(n)
	}
	_, callable := methodKinds[n.Kind]

	switch {
	case n.Kind == syntax.NamespaceDeclaration:
		if !isFileScoped(n) {
			namespace = joinNamespace(namespace, n.Name())
		}

	case n.Kind.IsTypeDeclaration():
		outer = b.declareType(n, namespace, outer)

	case n.Kind == syntax.PropertyDeclaration || n.Kind == syntax.IndexerDeclaration || n.Kind == syntax.EventDeclaration:
		if outer == nil {
			return
		}
		for _, accessor := range syntax.Find(n, syntax.AccessorDeclaration) {
			m := b.declareMethod(accessor, accessor.Name()+"_"+n.Name(), outer)
			m.Modifiers |= semantic.ParseModifiers(n.Modifiers)
		}
		return

	case callable && outer != nil:
		b.declareMethod(n, n.Name(), outer)
	}

	b.declareChildren(n, namespace, outer)
}

// declareChildren declares the children of n. A file-scoped namespace
// applies to the siblings that follow it.
func (b *binder) declareChildren(n *syntax.Node, namespace string, outer *semantic.Type) {
	for _, c := range n.Children {
		if c.Kind == syntax.NamespaceDeclaration && isFileScoped(c) {
			namespace = joinNamespace(namespace, c.Name())
		}
		b.declare(c, namespace, outer)
	}
}

func isFileScoped(n *syntax.Node) bool {
	return n.HostType == "file_scoped_namespace_declaration"
}

func joinNamespace(outer, inner string) string {
	if outer == "" {
		return inner
	}
	return outer + "." + inner
}

func (b *binder) declareType(n *syntax.Node, namespace string, outer *semantic.Type) *semantic.Type {
	key := n.Name()
	switch {
	case outer != nil:
		key = outer.FullName() + "." + key
	case namespace != "":
		key = namespace + "." + key
	}

	t, ok := b.types[key]
	if !ok {
		t = semantic.NewType(n.Name(), typeKinds[n.Kind])
		t.Outer = outer
		if outer == nil {
			t.Namespace = namespace
		}
		b.types[key] = t
		b.byName[t.Name()] = append(b.byName[t.Name()], t)
	}
	b.table.Declare(n, t)
	if list := n.Child(syntax.BaseList); list != nil {
		b.bases = append(b.bases, pendingBase{typ: t, list: list})
	}
	return t
}

func (b *binder) declareMethod(n *syntax.Node, name string, owner *semantic.Type) *semantic.Method {
	if n.Kind == syntax.OperatorDeclaration {
		name = "op_" + n.HostType
	}
	m := semantic.NewMethod(name, semantic.ParseModifiers(n.Modifiers))
	m.MethodKind = methodKinds[n.Kind]
	for _, p := range n.Parameters() {
		b.table.Declare(p, m.AddParameter(p.Name()))
	}

	if n.Kind == syntax.LocalFunctionStatement {
		m.Type = owner
	} else {
		owner.AddMethod(m)
	}
	if spec := n.Child(syntax.ExplicitInterfaceSpecifier); spec != nil {
		b.explicits = append(b.explicits, pendingExplicit{method: m, specifier: spec})
	}
	b.bodies[m] = n.Body() != nil
	b.table.Declare(n, m)
	return m
}

// link connects base types, explicit implementations, partial parts and
// overrides once every type is declared.
func (b *binder) link() {
	for _, pb := range b.bases {
		for _, entry := range pb.list.Children {
			base := b.lookupType(typeName(entry))
			if base == nil || base == pb.typ {
				continue
			}
			if base.IsInterface() || pb.typ.IsInterface() || pb.typ.Base != nil {
				if base.IsInterface() {
					pb.typ.Interfaces = append(pb.typ.Interfaces, base)
				}
				continue
			}
			pb.typ.Base = base
		}
	}

	for _, pe := range b.explicits {
		for _, c := range pe.specifier.Children {
			if t := b.lookupType(typeName(c)); t != nil && t.IsInterface() {
				pe.method.ExplicitInterface = t
				break
			}
		}
	}

	for _, t := range b.table.Types() {
		b.linkPartials(t)
	}
	for _, t := range b.table.Types() {
		for _, m := range t.Methods {
			if m.IsOverride() {
				m.Overridden = findOverridden(t, m)
			}
		}
	}
}

func (b *binder) linkPartials(t *semantic.Type) {
	for i, def := range t.Methods {
		if !def.Modifiers.Has(semantic.Partial) || b.bodies[def] || def.PartialImplementation != nil {
			continue
		}
		for _, impl := range t.Methods[i+1:] {
			if impl.Modifiers.Has(semantic.Partial) && b.bodies[impl] && impl.PartialDefinition == nil &&
				impl.Name() == def.Name() && impl.Arity() == def.Arity() {
				b.table.LinkPartial(def, impl)
				break
			}
		}
	}
	// an implementation may precede its definition
	for i, impl := range t.Methods {
		if !impl.Modifiers.Has(semantic.Partial) || !b.bodies[impl] || impl.PartialDefinition != nil {
			continue
		}
		for _, def := range t.Methods[i+1:] {
			if def.Modifiers.Has(semantic.Partial) && !b.bodies[def] && def.PartialImplementation == nil &&
				impl.Name() == def.Name() && impl.Arity() == def.Arity() {
				b.table.LinkPartial(def, impl)
				break
			}
		}
	}
}

func findOverridden(t *semantic.Type, m *semantic.Method) *semantic.Method {
	for _, base := range t.BaseChain()[1:] {
		for _, candidate := range base.MethodsNamed(m.Name()) {
			if candidate.Arity() == m.Arity() &&
				(candidate.IsVirtual() || candidate.IsOverride() || candidate.Modifiers.Has(semantic.Abstract)) {
				return candidate
			}
		}
	}
	return nil
}

// typeName extracts the simple name a base-list or specifier entry refers to.
func typeName(n *syntax.Node) string {
	switch n.Kind {
	case syntax.IdentifierName, syntax.GenericName:
		return n.Name()
	case syntax.QualifiedName:
		if len(n.Children) > 0 {
			return typeName(n.Children[len(n.Children)-1])
		}
	case syntax.Other:
		// primary constructor base types wrap the name
		if len(n.Children) > 0 {
			return typeName(n.Children[0])
		}
	}
	return ""
}

func (b *binder) lookupType(name string) *semantic.Type {
	if ts := b.byName[name]; len(ts) > 0 {
		return ts[0]
	}
	return nil
}
