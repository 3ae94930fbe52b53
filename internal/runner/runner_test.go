package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/cache"
	"github.com/chris-regnier/sharplint/internal/csharp"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/input"
	"github.com/chris-regnier/sharplint/internal/metrics"
	"github.com/chris-regnier/sharplint/internal/rules"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

const unusedSrc = `class A
{
    public int M(int a, int b) { return b; }
}
`

const cleanSrc = `class B
{
    public int N(int x) { return x; }
}
`

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDriver() *analysis.Driver {
	return analysis.NewDriver(rules.DefaultRegistry().Analyzers(), analysis.WithLogger(quiet()))
}

func twoUnits() []Unit {
	return []Unit{
		{Name: "a", Files: []input.Artifact{{Path: "a/A.cs", Content: unusedSrc}}},
		{Name: "b", Files: []input.Artifact{{Path: "b/B.cs", Content: cleanSrc}}},
	}
}

func ruleIDs(ds []diag.Diagnostic) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.RuleID
	}
	return out
}

// ---------------------------------------------------------------------------
// Split
// ---------------------------------------------------------------------------

func TestSplit(t *testing.T) {
	files := []input.Artifact{
		{Path: "src/A.cs"}, {Path: "test/T.cs"}, {Path: "src/B.cs"},
	}

	all, err := Split(files, PartitionAll)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Files, 3)

	perFile, err := Split(files, PartitionFile)
	require.NoError(t, err)
	require.Len(t, perFile, 3)
	assert.Equal(t, "test/T.cs", perFile[1].Name)

	perDir, err := Split(files, PartitionDir)
	require.NoError(t, err)
	require.Len(t, perDir, 2)
	assert.Equal(t, "src", perDir[0].Name)
	assert.Equal(t, []input.Artifact{{Path: "src/A.cs"}, {Path: "src/B.cs"}}, perDir[0].Files)

	none, err := Split(nil, PartitionAll)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = Split(files, "project")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRunAnalyzesEveryUnit(t *testing.T) {
	collector := metrics.NewCollector()
	r := New(newDriver(),
		WithWorkers(2),
		WithLogger(quiet()),
		WithRecorder(metrics.NewRecorder(collector, metrics.ScopeFiles)),
	)

	s, err := r.Run(context.Background(), twoUnits())
	require.NoError(t, err)
	require.NoError(t, s.Err())

	require.Len(t, s.Units, 2)
	assert.Equal(t, "a", s.Units[0].Unit)
	assert.Equal(t, []string{"S1172"}, ruleIDs(s.Diagnostics))
	assert.Equal(t, "a/A.cs", s.Diagnostics[0].Location.Path)
	assert.Positive(t, s.NodesVisited)
	assert.Zero(t, s.Failed)

	stats := collector.GetStats()
	assert.EqualValues(t, 2, stats.TotalUnits)
	assert.EqualValues(t, 1, stats.ByRule["S1172"])
}

func TestRunIsolatesUnitFailures(t *testing.T) {
	load := func(ctx context.Context, files []input.Artifact) (*analysis.Compilation, error) {
		if files[0].Path == "b/B.cs" {
			return nil, errors.New("unreadable")
		}
		return csharp.Load(ctx, files)
	}
	r := New(newDriver(), WithLoader(load), WithLogger(quiet()))

	s, err := r.Run(context.Background(), twoUnits())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Failed)
	assert.ErrorContains(t, s.Err(), "b: loading: unreadable")
	assert.Equal(t, []string{"S1172"}, ruleIDs(s.Diagnostics))
}

func TestRunCachesResults(t *testing.T) {
	var loads atomic.Int32
	load := func(ctx context.Context, files []input.Artifact) (*analysis.Compilation, error) {
		loads.Add(1)
		return csharp.Load(ctx, files)
	}
	c := cache.NewTieredCache(cache.New(), cache.NewLocalDiskCache(t.TempDir()))
	r := New(newDriver(), WithLoader(load), WithCache(c), WithEngineVersion("test"), WithLogger(quiet()))

	first, err := r.Run(context.Background(), twoUnits())
	require.NoError(t, err)
	assert.Zero(t, first.CacheHits)

	second, err := r.Run(context.Background(), twoUnits())
	require.NoError(t, err)
	assert.Equal(t, 2, second.CacheHits)
	assert.EqualValues(t, 2, loads.Load())

	require.Len(t, second.Diagnostics, 1)
	assert.Equal(t, first.Diagnostics[0].Message, second.Diagnostics[0].Message)
	assert.Equal(t, first.Diagnostics[0].Location.Range, second.Diagnostics[0].Location.Range)
	assert.Equal(t, first.NodesVisited, second.NodesVisited)
}

func TestRunDoesNotCacheFaultedUnits(t *testing.T) {
	rule := &analysis.Descriptor{ID: "S9999", Title: "Faulty", MessageFormat: "x", EnabledByDefault: true}
	faulty := &analysis.Analyzer{
		Name:        "faulty",
		Descriptors: []*analysis.Descriptor{rule},
		Initialize: func(ctx *analysis.InitContext) {
			ctx.RegisterSyntaxNodeAction(func(*analysis.SyntaxNodeContext) {
				panic("boom")
			}, syntax.ClassDeclaration)
		},
	}
	c := cache.NewTieredCache(cache.New(), nil)
	r := New(analysis.NewDriver([]*analysis.Analyzer{faulty}, analysis.WithLogger(quiet())),
		WithCache(c), WithLogger(quiet()))

	for i := 0; i < 2; i++ {
		s, err := r.Run(context.Background(), twoUnits()[:1])
		require.NoError(t, err)
		assert.Len(t, s.Faults, 1)
		assert.Zero(t, s.CacheHits)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(newDriver(), WithLogger(quiet())).Run(ctx, twoUnits())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortedDiagnostics(t *testing.T) {
	s := &Summary{Diagnostics: []diag.Diagnostic{
		{RuleID: "S2", Location: diag.Location{Path: "b.cs"}},
		{RuleID: "S1", Location: diag.Location{Path: "a.cs"}},
	}}
	assert.Equal(t, []string{"S1", "S2"}, ruleIDs(s.SortedDiagnostics()))
	assert.Equal(t, "S2", s.Diagnostics[0].RuleID)
}
