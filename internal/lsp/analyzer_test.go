package lsp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/cache"
	"github.com/chris-regnier/sharplint/internal/rules"
	"github.com/chris-regnier/sharplint/internal/runner"
)

const calcSource = `class Calc
{
    private int Add(int a, int b)
    {
        return a;
    }

    public int Twice(int x)
    {
        return Add(x, x);
    }
}
`

func newTestAnalyzer(opts ...runner.Option) *Analyzer {
	registry := rules.DefaultRegistry()
	driver := analysis.NewDriver(registry.Analyzers())
	return NewAnalyzer(driver, registry.Descriptors(), "test", opts...)
}

func TestAnalyzer_ReportsUnusedParameter(t *testing.T) {
	a := newTestAnalyzer()

	log, err := a.Analyze(context.Background(), "/proj/Calc.cs", calcSource)
	require.NoError(t, err)

	var found bool
	for _, r := range log.Results() {
		if r.RuleID != "S1172" {
			continue
		}
		found = true
		assert.Equal(t, `Remove this unused method parameter "b".`, r.Message.Text)
		require.NotEmpty(t, r.Locations)
		loc := r.Locations[0].PhysicalLocation
		assert.Equal(t, "/proj/Calc.cs", loc.ArtifactLocation.URI)
		assert.Equal(t, 3, loc.Region.StartLine)
	}
	assert.True(t, found, "expected S1172 result")

	rule, ok := log.Rule("S1172")
	require.True(t, ok)
	assert.Contains(t, rule.Properties["tags"], "unused")
	assert.Equal(t, "lsp", log.Runs[0].Properties["sharplint/inputScope"])
}

func TestAnalyzer_CleanDocument(t *testing.T) {
	a := newTestAnalyzer()

	log, err := a.Analyze(context.Background(), "/proj/Empty.cs", "class Empty { }\n")
	require.NoError(t, err)
	assert.Empty(t, log.Results())
	assert.NotEmpty(t, log.Runs[0].Tool.Driver.Rules)
}

func TestAnalyzer_UsesCache(t *testing.T) {
	tiered := cache.NewTieredCache(cache.New(), nil)
	a := newTestAnalyzer(runner.WithCache(tiered), runner.WithEngineVersion("test"))

	first, err := a.Analyze(context.Background(), "/proj/Calc.cs", calcSource)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), "/proj/Calc.cs", calcSource)
	require.NoError(t, err)

	assert.Equal(t, first.Results(), second.Results())
	assert.EqualValues(t, 1, tiered.Stats().Hits)
}

func TestAnalyzer_Cancelled(t *testing.T) {
	a := newTestAnalyzer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, "/proj/Calc.cs", calcSource)
	assert.Error(t, err)
}

// TestServer_RealAnalyzer drives the server with the built-in rules.
func TestServer_RealAnalyzer(t *testing.T) {
	c := startServer(t, newTestAnalyzer().Analyze)
	uri := "file:///proj/Calc.cs"
	c.notify(MethodTextDocumentDidOpen, DidOpenTextDocumentParams{TextDocument: TextDocumentItem{
		URI: uri, LanguageID: "csharp", Version: 1, Text: calcSource,
	}})

	p := c.awaitDiagnostics(uri)
	var unused *Diagnostic
	for i := range p.Diagnostics {
		if p.Diagnostics[i].Code == "S1172" {
			unused = &p.Diagnostics[i]
		}
	}
	require.NotNil(t, unused, "expected S1172 diagnostic")
	assert.Equal(t, DiagnosticSeverityWarning, unused.Severity)
	assert.Equal(t, []DiagnosticTag{DiagnosticTagUnnecessary}, unused.Tags)
	assert.Equal(t, Range{Start: Position{Line: 2, Character: 31}, End: Position{Line: 2, Character: 32}}, unused.Range)
	require.NotNil(t, unused.Data)
	assert.Equal(t, "major", unused.Data.Severity)
}
