// Package csharp is the reference host front end: it parses C# with
// tree-sitter, lowers the concrete tree into the syntax model and fills an
// approximate, name-based symbol table.
//
// Binding is lexical, not a compiler's: simple names resolve to parameters,
// then members of the enclosing types and their bases, then types of the
// compilation. Anything else resolves to no symbol.
package csharp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/chris-regnier/sharplint/internal/syntax"
)

var hostKinds = map[string]syntax.Kind{
	"compilation_unit":                  syntax.CompilationUnit,
	"namespace_declaration":             syntax.NamespaceDeclaration,
	"file_scoped_namespace_declaration": syntax.NamespaceDeclaration,
	"class_declaration":                 syntax.ClassDeclaration,
	"struct_declaration":                syntax.StructDeclaration,
	"interface_declaration":             syntax.InterfaceDeclaration,
	"record_declaration":                syntax.RecordDeclaration,
	"record_struct_declaration":         syntax.RecordDeclaration,
	"enum_declaration":                  syntax.EnumDeclaration,
	"delegate_declaration":              syntax.DelegateDeclaration,
	"method_declaration":                syntax.MethodDeclaration,
	"constructor_declaration":           syntax.ConstructorDeclaration,
	"destructor_declaration":            syntax.DestructorDeclaration,
	"operator_declaration":              syntax.OperatorDeclaration,
	"conversion_operator_declaration":   syntax.OperatorDeclaration,
	"property_declaration":              syntax.PropertyDeclaration,
	"indexer_declaration":               syntax.IndexerDeclaration,
	"event_declaration":                 syntax.EventDeclaration,
	"event_field_declaration":           syntax.EventDeclaration,
	"field_declaration":                 syntax.FieldDeclaration,
	"accessor_list":                     syntax.AccessorList,
	"accessor_declaration":              syntax.AccessorDeclaration,
	"parameter_list":                    syntax.ParameterList,
	"bracketed_parameter_list":          syntax.ParameterList,
	"parameter":                         syntax.Parameter,
	"implicit_parameter":                syntax.Parameter,
	"base_list":                         syntax.BaseList,
	"explicit_interface_specifier":      syntax.ExplicitInterfaceSpecifier,
	"block":                             syntax.Block,
	"arrow_expression_clause":           syntax.ArrowExpressionClause,
	"identifier":                        syntax.IdentifierName,
	"generic_name":                      syntax.GenericName,
	"qualified_name":                    syntax.QualifiedName,
	"member_access_expression":          syntax.MemberAccessExpression,
	"invocation_expression":             syntax.InvocationExpression,
	"argument_list":                     syntax.ArgumentList,
	"argument":                          syntax.Argument,
	"assignment_expression":             syntax.AssignmentExpression,
	"object_creation_expression":        syntax.ObjectCreationExpression,
	"variable_declaration":              syntax.VariableDeclaration,
	"variable_declarator":               syntax.VariableDeclarator,
	"local_declaration_statement":       syntax.LocalDeclarationStatement,
	"expression_statement":              syntax.ExpressionStatement,
	"return_statement":                  syntax.ReturnStatement,
	"if_statement":                      syntax.IfStatement,
	"for_statement":                     syntax.ForStatement,
	"for_each_statement":                syntax.ForEachStatement,
	"foreach_statement":                 syntax.ForEachStatement,
	"while_statement":                   syntax.WhileStatement,
	"do_statement":                      syntax.DoStatement,
	"switch_statement":                  syntax.SwitchStatement,
	"try_statement":                     syntax.TryStatement,
	"catch_clause":                      syntax.CatchClause,
	"finally_clause":                    syntax.FinallyClause,
	"lambda_expression":                 syntax.LambdaExpression,
	"anonymous_method_expression":       syntax.AnonymousMethodExpression,
	"local_function_statement":          syntax.LocalFunctionStatement,
	"attribute_list":                    syntax.AttributeList,
	"attribute":                         syntax.Attribute,
	"this_expression":                   syntax.ThisExpression,
	"this":                              syntax.ThisExpression,
	"base_expression":                   syntax.BaseExpression,
	"base":                              syntax.BaseExpression,
	"predefined_type":                   syntax.PredefinedType,
	"comment":                           syntax.Comment,
}

// flattened host nodes contribute their children to the parent instead of
// appearing in the tree.
var flattened = map[string]bool{
	"declaration_list":             true,
	"enum_member_declaration_list": true,
}

var accessorKeywords = map[string]bool{"get": true, "set": true, "init": true, "add": true, "remove": true}

// Parse parses one C# source file.
func Parse(ctx context.Context, path string, src []byte) (*syntax.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(csharp.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	root := tree.RootNode()
	if root.HasError() {
		slog.Warn("source has syntax errors, analysis may be incomplete", "path", path)
	}
	return &syntax.Tree{Path: path, Source: src, Root: lower(root, src)}, nil
}

func kindOf(hostType string) syntax.Kind {
	if k, ok := hostKinds[hostType]; ok {
		return k
	}
	if strings.HasSuffix(hostType, "_literal") {
		return syntax.LiteralExpression
	}
	return syntax.Other
}

func lower(n *sitter.Node, src []byte) *syntax.Node {
	kind := kindOf(n.Type())
	out := &syntax.Node{Kind: kind, HostType: n.Type(), Range: rangeOf(n)}

	name := nameNode(n, kind)
	if name != nil {
		out.Identifier = &syntax.Token{Text: name.Content(src), Range: rangeOf(name)}
	}
	switch kind {
	case syntax.IdentifierName:
		out.Identifier = &syntax.Token{Text: n.Content(src), Range: out.Range}
		return out
	case syntax.LiteralExpression, syntax.PredefinedType, syntax.Comment:
		out.Text = n.Content(src)
		return out
	}

	lowerChildren(out, n, name, src)
	return out
}

func lowerChildren(out *syntax.Node, n, name *sitter.Node, src []byte) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !c.IsNamed() {
			continue
		}
		if name != nil && sameNode(c, name) {
			continue
		}
		switch {
		case c.Type() == "modifier":
			out.Modifiers = append(out.Modifiers, strings.TrimSpace(c.Content(src)))
		case flattened[c.Type()]:
			lowerChildren(out, c, nil, src)
		default:
			out.Add(lower(c, src))
		}
	}
}

// nameNode returns the host child holding the name a declaration declares.
func nameNode(n *sitter.Node, kind syntax.Kind) *sitter.Node {
	switch kind {
	case syntax.IdentifierName, syntax.LiteralExpression, syntax.PredefinedType, syntax.Comment:
		return nil
	case syntax.GenericName:
		return firstChildOfType(n, "identifier")
	case syntax.AccessorDeclaration:
		if c := n.ChildByFieldName("name"); c != nil {
			return c
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil && accessorKeywords[c.Type()] {
				return c
			}
		}
		return nil
	case syntax.VariableDeclarator, syntax.Parameter:
		if c := n.ChildByFieldName("name"); c != nil {
			return c
		}
		if kind == syntax.Parameter {
			return lastChildOfType(n, "identifier")
		}
		return firstChildOfType(n, "identifier")
	case syntax.NamespaceDeclaration, syntax.Attribute, syntax.LocalFunctionStatement, syntax.DelegateDeclaration,
		syntax.MethodDeclaration, syntax.ConstructorDeclaration, syntax.DestructorDeclaration,
		syntax.PropertyDeclaration, syntax.EventDeclaration:
		return n.ChildByFieldName("name")
	}
	if kind.IsTypeDeclaration() {
		return n.ChildByFieldName("name")
	}
	return nil
}

func firstChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil && c.Type() == typ {
			return c
		}
	}
	return nil
}

func lastChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		if c := n.NamedChild(i); c != nil && c.Type() == typ {
			return c
		}
	}
	return nil
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func rangeOf(n *sitter.Node) syntax.Range {
	start, end := n.StartPoint(), n.EndPoint()
	return syntax.Range{
		Start: syntax.Position{Offset: int(n.StartByte()), Line: int(start.Row) + 1, Column: int(start.Column) + 1},
		End:   syntax.Position{Offset: int(n.EndByte()), Line: int(end.Row) + 1, Column: int(end.Column) + 1},
	}
}
