package analysis

import (
	"errors"

	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/semantic"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

var (
	// ErrNoModel is returned when a compilation has no symbol model.
	ErrNoModel = errors.New("compilation has no semantic model")
	// ErrNoTrees is returned when a compilation has no syntax trees.
	ErrNoTrees = errors.New("compilation has no syntax trees")
)

// Compilation is one unit of analysis: the trees of a program plus the
// symbol model that resolves them.
type Compilation struct {
	Trees []*syntax.Tree
	Model semantic.Model
}

func (c *Compilation) validate() error {
	if c == nil || c.Model == nil {
		return ErrNoModel
	}
	if len(c.Trees) == 0 {
		return ErrNoTrees
	}
	return nil
}

// TreeOf returns the tree n belongs to, or nil.
func (c *Compilation) TreeOf(n *syntax.Node) *syntax.Tree {
	root := n.Root()
	for _, t := range c.Trees {
		if t.Root == root {
			return t
		}
	}
	return nil
}

func (c *Compilation) pathOf(n *syntax.Node) string {
	if t := c.TreeOf(n); t != nil {
		return t.Path
	}
	return ""
}

// Location spans the whole node.
func (c *Compilation) Location(n *syntax.Node) diag.Location {
	return diag.NodeLocation(c.pathOf(n), n)
}

// IdentifierLocation spans the identifier token of a declaration or name.
func (c *Compilation) IdentifierLocation(n *syntax.Node) diag.Location {
	return diag.IdentifierLocation(c.pathOf(n), n)
}
