package lsp

import (
	"context"
	"fmt"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/input"
	"github.com/chris-regnier/sharplint/internal/runner"
	"github.com/chris-regnier/sharplint/internal/sarif"
)

// AnalyzeFunc analyzes one document and returns its SARIF log.
type AnalyzeFunc func(ctx context.Context, path, content string) (*sarif.Log, error)

// Analyzer analyzes open documents, each as its own compilation.
type Analyzer struct {
	runner      *runner.Runner
	descriptors []*analysis.Descriptor
	options     analysis.Options
	version     string
}

// NewAnalyzer runs driver over documents. descriptors is the rule catalog
// written into each log; opts configure the underlying runner, such as its
// cache.
func NewAnalyzer(driver *analysis.Driver, descriptors []*analysis.Descriptor, version string, opts ...runner.Option) *Analyzer {
	return &Analyzer{
		runner:      runner.New(driver, append([]runner.Option{runner.WithWorkers(1)}, opts...)...),
		descriptors: descriptors,
		options:     driver.Options(),
		version:     version,
	}
}

// Analyze parses content as path and runs the rules over it. Analyzer
// faults become notifications in the log; a document that cannot be loaded
// is an error.
func (a *Analyzer) Analyze(ctx context.Context, path, content string) (*sarif.Log, error) {
	unit := runner.Unit{
		Name:  path,
		Files: []input.Artifact{{Path: path, Content: content, Kind: input.KindFile}},
	}
	summary, err := a.runner.Run(ctx, []runner.Unit{unit})
	if err != nil {
		return nil, err
	}
	if err := summary.Err(); err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", path, err)
	}

	return sarif.NewAssembler(a.version).
		AddRules(a.descriptors, a.options).
		AddDiagnostics(summary.SortedDiagnostics()).
		AddFaults(summary.Faults).
		WithInputScope("lsp").
		Build(), nil
}
