package csharp

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/input"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

// Load parses the artifacts and binds them into one compilation. Trees keep
// the order of files.
func Load(ctx context.Context, files []input.Artifact) (*analysis.Compilation, error) {
	if len(files) == 0 {
		return nil, analysis.ErrNoTrees
	}

	trees := make([]*syntax.Tree, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			tree, err := Parse(gctx, f.Path, []byte(f.Content))
			if err != nil {
				return err
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &analysis.Compilation{Trees: trees, Model: Bind(trees)}, nil
}

// LoadSource is Load for a single in-memory file.
func LoadSource(ctx context.Context, path, src string) (*analysis.Compilation, error) {
	return Load(ctx, []input.Artifact{{Path: path, Content: src}})
}
