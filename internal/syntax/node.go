// Package syntax is the host-neutral syntax model the analysis engine walks.
// A host front end lowers its own concrete tree into Nodes once; after that the
// tree is read-only and may be shared between goroutines.
package syntax

// Position is a point in a source file. Line and Column are 1-based, Column
// counts bytes.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a half-open span [Start, End) of a source file.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether other lies entirely inside r.
func (r Range) Contains(other Range) bool {
	return other.Start.Offset >= r.Start.Offset && other.End.Offset <= r.End.Offset
}

// Lines returns the number of source lines the range touches.
func (r Range) Lines() int {
	return r.End.Line - r.Start.Line + 1
}

// Token is a single lexical token carried by a node, such as the identifier
// of a declaration.
type Token struct {
	Text  string `json:"text"`
	Range Range  `json:"range"`
}

// Node is one element of a syntax tree.
type Node struct {
	Kind     Kind
	HostType string
	Range    Range
	Parent   *Node
	Children []*Node

	// Identifier is the declared name for declaration nodes and the referenced
	// name for IdentifierName and GenericName. Nil otherwise.
	Identifier *Token

	// Modifiers lists modifier keywords in source order ("public", "partial", ...).
	Modifiers []string

	// Text is the source text for leaf nodes such as literals and predefined types.
	Text string
}

// New returns a node of the given kind with children attached.
func New(kind Kind, children ...*Node) *Node {
	n := &Node{Kind: kind}
	n.Add(children...)
	return n
}

// Add appends children and sets their parent to n. It returns n.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// Name returns the identifier text, or "" when the node carries none.
func (n *Node) Name() string {
	if n == nil || n.Identifier == nil {
		return ""
	}
	return n.Identifier.Text
}

// HasModifier reports whether mod appears among the node's modifiers.
func (n *Node) HasModifier(mod string) bool {
	for _, m := range n.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

// Child returns the first direct child of the given kind.
func (n *Node) Child(kind Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// ChildrenOf returns the direct children of the given kind.
func (n *Node) ChildrenOf(kind Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Ancestor returns the nearest proper ancestor whose kind is one of kinds.
func (n *Node) Ancestor(kinds ...Kind) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, k := range kinds {
			if p.Kind == k {
				return p
			}
		}
	}
	return nil
}

// Root returns the top of the tree containing n.
func (n *Node) Root() *Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// IsAncestorOf reports whether n is a proper ancestor of other.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other.Parent; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// Parameters returns the parameters of a declaration with a parameter list.
func (n *Node) Parameters() []*Node {
	list := n.Child(ParameterList)
	if list == nil {
		return nil
	}
	return list.ChildrenOf(Parameter)
}

// Body returns the block or expression body of a member declaration.
func (n *Node) Body() *Node {
	if b := n.Child(Block); b != nil {
		return b
	}
	return n.Child(ArrowExpressionClause)
}

// Tree is a parsed source file.
type Tree struct {
	Path   string
	Source []byte
	Root   *Node
}

// Walk traverses the subtree rooted at n in pre-order. Children of a node
// are skipped when fn returns false for it.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Find returns every node in the subtree rooted at n whose kind is in kinds,
// in pre-order.
func Find(n *Node, kinds ...Kind) []*Node {
	var out []*Node
	Walk(n, func(c *Node) bool {
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
		return true
	})
	return out
}
