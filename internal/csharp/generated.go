package csharp

import (
	"path/filepath"
	"strings"

	"github.com/chris-regnier/sharplint/internal/syntax"
)

var generatedSuffixes = []string{".g.cs", ".g.i.cs", ".designer.cs", ".generated.cs"}

// IsGeneratedPath reports whether a file name marks tool-generated source.
func IsGeneratedPath(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, "temporarygeneratedfile_") {
		return true
	}
	for _, suffix := range generatedSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// hasGeneratedHeader reports whether the comments before the first
// non-comment node of the file carry an auto-generated marker.
func hasGeneratedHeader(root *syntax.Node) bool {
	for _, c := range root.Children {
		if c.Kind != syntax.Comment {
			return false
		}
		text := strings.ToLower(c.Text)
		if strings.Contains(text, "<auto-generated") || strings.Contains(text, "<autogenerated") {
			return true
		}
	}
	return false
}

// hasGeneratedAttribute reports whether a declaration carries a
// [GeneratedCode] attribute.
func hasGeneratedAttribute(decl *syntax.Node) bool {
	for _, list := range decl.ChildrenOf(syntax.AttributeList) {
		for _, attr := range list.ChildrenOf(syntax.Attribute) {
			name := strings.TrimPrefix(attr.Name(), "global::")
			name = strings.TrimPrefix(name, "System.CodeDom.Compiler.")
			if strings.TrimSuffix(name, "Attribute") == "GeneratedCode" {
				return true
			}
		}
	}
	return false
}
