package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/csharp"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/input"
	"github.com/chris-regnier/sharplint/internal/semantic"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func analyzeFiles(t *testing.T, opts analysis.Options, a *analysis.Analyzer, files ...input.Artifact) []diag.Diagnostic {
	t.Helper()
	comp, err := csharp.Load(context.Background(), files)
	require.NoError(t, err)
	res, err := analysis.NewDriver([]*analysis.Analyzer{a}, analysis.WithOptions(opts)).Run(context.Background(), comp)
	require.NoError(t, err)
	require.Empty(t, res.Faults)
	return res.Diagnostics
}

func analyze(t *testing.T, a *analysis.Analyzer, src string) []diag.Diagnostic {
	t.Helper()
	return analyzeFiles(t, analysis.Options{}, a, input.Artifact{Path: "Test.cs", Content: src})
}

func enable(id string, params map[string]any) analysis.Options {
	on := true
	return analysis.Options{Rules: map[string]analysis.RuleConfig{id: {Enabled: &on, Params: params}}}
}

// position finds the 1-based line of the first line containing marker and
// the column of token on that line.
func position(t *testing.T, src, marker, token string) (int, int) {
	t.Helper()
	for i, line := range strings.Split(src, "\n") {
		if strings.Contains(line, marker) {
			col := strings.Index(line, token)
			require.GreaterOrEqual(t, col, 0, "token %q not on line %q", token, line)
			return i + 1, col + 1
		}
	}
	t.Fatalf("marker %q not found", marker)
	return 0, 0
}

func assertAt(t *testing.T, d diag.Diagnostic, line, col int) {
	t.Helper()
	assert.Equal(t, line, d.Location.Range.Start.Line, "line of %s", d)
	assert.Equal(t, col, d.Location.Range.Start.Column, "column of %s", d)
}

// ---------------------------------------------------------------------------
// Registry tests
// ---------------------------------------------------------------------------

func TestRegistryBasics(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Names())

	require.NoError(t, r.Register(ParameterCount))
	require.NoError(t, r.Register(EmptyCatch))
	assert.Equal(t, []string{"empty-catch", "parameter-count"}, r.Names())

	a, ok := r.Get("empty-catch")
	require.True(t, ok)
	assert.Same(t, EmptyCatch, a)

	_, ok = r.Get("nonexistent")
	assert.False(t, ok)

	d, ok := r.Descriptor("S107")
	require.True(t, ok)
	assert.Equal(t, "Methods should not have too many parameters", d.Title)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(EmptyCatch))
	assert.Error(t, r.Register(EmptyCatch))

	clash := &analysis.Analyzer{
		Name:        "other",
		Descriptors: []*analysis.Descriptor{emptyCatchRule},
		Initialize:  func(*analysis.InitContext) {},
	}
	assert.ErrorContains(t, r.Register(clash), "S2486")
}

func TestRegistryRejectsInvalidAnalyzer(t *testing.T) {
	r := NewRegistry()
	bad := &analysis.Analyzer{
		Name:        "bad",
		Descriptors: []*analysis.Descriptor{{ID: "X1", MessageFormat: "m", Remediation: "soon"}},
		Initialize:  func(*analysis.InitContext) {},
	}
	assert.Error(t, r.Register(bad))
	assert.Panics(t, func() { r.MustRegister(bad) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{
		"empty-catch", "method-length", "method-parameter-unused",
		"nesting-depth", "parameter-count", "partial-parameter-names",
	}, r.Names())

	var ids []string
	for _, d := range r.Descriptors() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"S107", "S134", "S138", "S927", "S1172", "S2486"}, ids)

	for _, a := range r.Analyzers() {
		assert.NoError(t, a.Validate(), a.Name)
	}
}

// ---------------------------------------------------------------------------
// S1172 unused method parameter
// ---------------------------------------------------------------------------

const unusedParameterFixture = `using System;
using System.Threading;

namespace Tests.TestCases
{
    abstract class BaseAbstract
    {
        public abstract void M3(int a);
    }
    class Base
    {
        public virtual void M3(int a)
        {
        }
    }
    interface IMy
    {
        void M4(int a);
    }

    class MethodParameterUnused : Base, IMy
    {
        public event EventHandler MyEvent;

        public MethodParameterUnused()
        {
            MyEvent += MethodParameterUnused_MyEvent;

            WaitCallback c = W1;

            c = W2;

            ThreadPool.QueueUserWorkItem(W3);

            W4(null);
        }

        public void M1(int a)
        {
        }

        public void M1okay(int a)
        {
            Console.Write(a);
        }

        public virtual void M2(int a)
        {
        }

        public override void M3(int a)
        {
        }

        public void M4(int a)
        { }

        private void MethodParameterUnused_MyEvent(object sender, EventArgs e)
        {
        }

        static void W1(object state)
        {
        }

        static void W2(object state)
        {
        }

        static void W3(object state)
        {
        }

        static void W4(object state)
        {
        }
    }
}
`

func TestMethodParameterUnused(t *testing.T) {
	ds := analyze(t, MethodParameterUnused, unusedParameterFixture)
	require.Len(t, ds, 2, "diagnostics: %v", ds)

	line, col := position(t, unusedParameterFixture, "public void M1(int a)", "a)")
	assert.Equal(t, "S1172", ds[0].RuleID)
	assert.Equal(t, `Remove this unused method parameter "a".`, ds[0].Message)
	assert.Equal(t, diag.SeverityMajor, ds[0].Severity)
	assertAt(t, ds[0], line, col)

	line, col = position(t, unusedParameterFixture, "static void W4(object state)", "state")
	assert.Equal(t, `Remove this unused method parameter "state".`, ds[1].Message)
	assertAt(t, ds[1], line, col)
}

func TestMethodParameterUnusedGeneratedCode(t *testing.T) {
	ds := analyzeFiles(t, analysis.Options{}, MethodParameterUnused,
		input.Artifact{Path: "Fixture.g.cs", Content: unusedParameterFixture})
	assert.Empty(t, ds)
}

func TestMethodParameterUnusedLambdaCapture(t *testing.T) {
	ds := analyze(t, MethodParameterUnused, `class C
{
    void M(int a, int b)
    {
        System.Func<int, int> f = b => b + a;
    }
}
`)
	require.Len(t, ds, 1)
	assert.Equal(t, `Remove this unused method parameter "b".`, ds[0].Message)
}

func TestMethodParameterUnusedInvokedOnly(t *testing.T) {
	ds := analyze(t, MethodParameterUnused, `class C
{
    void Run() { Helper(1); }
    void Helper(int unused) { }
}
`)
	require.Len(t, ds, 1)
	assert.Contains(t, ds[0].Message, `"unused"`)
}

func TestMethodParameterUnusedDisabled(t *testing.T) {
	off := false
	opts := analysis.Options{Rules: map[string]analysis.RuleConfig{"S1172": {Enabled: &off}}}
	ds := analyzeFiles(t, opts, MethodParameterUnused, input.Artifact{Path: "Test.cs", Content: unusedParameterFixture})
	assert.Empty(t, ds)
}

func TestMethodParameterUnusedBodylessDeclarations(t *testing.T) {
	ds := analyze(t, MethodParameterUnused, `using System;
using System.Runtime.InteropServices;

partial class Native
{
    [DllImport("user32.dll")]
    static extern int MessageBox(IntPtr hWnd, string text);

    partial void OnChanged(int value);
}
`)
	assert.Empty(t, ds)
}

func TestMethodParameterUnusedPartialReportsImplementation(t *testing.T) {
	src := `partial class C
{
    partial void P(int x);
    partial void P(int y) { }
}
`
	ds := analyze(t, MethodParameterUnused, src)
	require.Len(t, ds, 1, "diagnostics: %v", ds)
	assert.Equal(t, `Remove this unused method parameter "y".`, ds[0].Message)
	assertAt(t, ds[0], 4, 24)
}

func TestMethodParameterUnusedPartialUsedInImplementation(t *testing.T) {
	ds := analyze(t, MethodParameterUnused, `partial class C
{
    partial void P(int x);
    partial void P(int x) { System.Console.Write(x); }
}
`)
	assert.Empty(t, ds)
}

func TestMethodParameterUnusedNamedArgumentLabel(t *testing.T) {
	src := `using System;

class C
{
    void Caller(int count) { Callee(count: 5); }
    void Callee(int count) { Console.Write(count); }
}
`
	ds := analyze(t, MethodParameterUnused, src)
	require.Len(t, ds, 1, "diagnostics: %v", ds)
	assert.Equal(t, `Remove this unused method parameter "count".`, ds[0].Message)
	line, col := position(t, src, "void Caller(int count)", "count")
	assertAt(t, ds[0], line, col)
}

func TestMethodParameterUnusedInitializerMember(t *testing.T) {
	src := `class Box
{
    public int count;
}

class C
{
    Box Make(int count) { return new Box { count = 1 }; }
}
`
	ds := analyze(t, MethodParameterUnused, src)
	require.Len(t, ds, 1, "diagnostics: %v", ds)
	line, col := position(t, src, "Box Make(int count)", "count")
	assertAt(t, ds[0], line, col)
}

func TestMethodParameterUnusedInitializerValueIsAUse(t *testing.T) {
	ds := analyze(t, MethodParameterUnused, `class Box
{
    public int count;
}

class C
{
    Box Make(int count) { return new Box { count = count }; }
}
`)
	assert.Empty(t, ds)
}

// ---------------------------------------------------------------------------
// S927 partial method parameter names
// ---------------------------------------------------------------------------

func TestPartialParameterNamesSwapped(t *testing.T) {
	impl := `namespace N
{
    partial class P
    {
        partial void Changed(int old, int value)
        {
        }
    }
}
`
	ds := analyzeFiles(t, analysis.Options{}, PartialParameterNames,
		input.Artifact{Path: "P.Definition.cs", Content: "namespace N { partial class P { partial void Changed(int value, int old); } }"},
		input.Artifact{Path: "P.cs", Content: impl},
	)
	require.Len(t, ds, 2, "diagnostics: %v", ds)

	assert.Equal(t, "S927", ds[0].RuleID)
	assert.Equal(t, `Rename parameter "old" to "value".`, ds[0].Message)
	assert.Equal(t, diag.SeverityCritical, ds[0].Severity)
	assert.Equal(t, "P.cs", ds[0].Location.Path)
	line, col := position(t, impl, "partial void Changed", "old")
	assertAt(t, ds[0], line, col)

	assert.Equal(t, `Rename parameter "value" to "old".`, ds[1].Message)
}

func TestPartialParameterNamesMatching(t *testing.T) {
	ds := analyze(t, PartialParameterNames, `partial class P
{
    partial void Changed(int value);
    partial void Changed(int value) { }
    void Plain(int x) { }
}
`)
	assert.Empty(t, ds)
}

func TestPartialParameterNamesImplementationFirst(t *testing.T) {
	ds := analyze(t, PartialParameterNames, `partial class P
{
    partial void Changed(int renamed) { }
    partial void Changed(int value);
}
`)
	require.Len(t, ds, 1)
	assert.Equal(t, `Rename parameter "renamed" to "value".`, ds[0].Message)
}

func at(line, col int) syntax.Range {
	return syntax.Range{
		Start: syntax.Position{Line: line, Column: col},
		End:   syntax.Position{Line: line, Column: col + 1},
	}
}

func declared(kind syntax.Kind, name string, line, col int) *syntax.Node {
	return &syntax.Node{Kind: kind, Range: at(line, col), Identifier: &syntax.Token{Text: name, Range: at(line, col)}}
}

// partialPair builds a class holding a body-less definition and an
// implementation of method P with the given parameter names, linked the way
// the binder links partial parts.
func partialPair(definition, implementation []string) *analysis.Compilation {
	table := semantic.NewTable()
	typ := semantic.NewType("C", semantic.Class)
	def := semantic.NewMethod("P", semantic.Partial, definition...)
	impl := semantic.NewMethod("P", semantic.Partial, implementation...)
	typ.AddMethod(def)
	typ.AddMethod(impl)
	table.LinkPartial(def, impl)

	declare := func(m *semantic.Method, line int, body bool) *syntax.Node {
		params := syntax.New(syntax.ParameterList)
		for i, p := range m.Params {
			node := declared(syntax.Parameter, p.Name(), line, 20+8*i)
			params.Add(node)
			table.Declare(node, p)
		}
		decl := declared(syntax.MethodDeclaration, "P", line, 18).Add(params)
		if body {
			decl.Add(syntax.New(syntax.Block))
		}
		table.Declare(decl, m)
		return decl
	}

	class := declared(syntax.ClassDeclaration, "C", 1, 15).Add(
		declare(def, 3, false),
		declare(impl, 4, true),
	)
	table.Declare(class, typ)

	return &analysis.Compilation{
		Trees: []*syntax.Tree{{Path: "P.cs", Root: syntax.New(syntax.CompilationUnit, class)}},
		Model: table,
	}
}

func TestPartialParameterNamesComparesOverlappingPrefix(t *testing.T) {
	tests := []struct {
		name           string
		definition     []string
		implementation []string
		want           []string
	}{
		{
			name:           "implementation shorter",
			definition:     []string{"a", "b", "c"},
			implementation: []string{"x", "b"},
			want:           []string{`Rename parameter "x" to "a".`},
		},
		{
			name:           "implementation longer",
			definition:     []string{"a"},
			implementation: []string{"x", "b", "c"},
			want:           []string{`Rename parameter "x" to "a".`},
		},
		{
			name:           "prefix matches",
			definition:     []string{"a", "b"},
			implementation: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := partialPair(tt.definition, tt.implementation)

			var res *analysis.Result
			require.NotPanics(t, func() {
				var err error
				res, err = analysis.NewDriver([]*analysis.Analyzer{PartialParameterNames}).Run(context.Background(), comp)
				require.NoError(t, err)
			})
			require.Empty(t, res.Faults)

			var got []string
			for _, d := range res.Diagnostics {
				got = append(got, d.Message)
			}
			assert.Equal(t, tt.want, got)
			if len(tt.want) > 0 {
				assert.Equal(t, "P.cs", res.Diagnostics[0].Location.Path)
				assertAt(t, res.Diagnostics[0], 4, 20)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Rule isolation
// ---------------------------------------------------------------------------

const partialMismatchFixture = `namespace N
{
    partial class Q
    {
        partial void Changed(int value, int old);
        partial void Changed(int old, int value) { System.Console.Write(old + value); }
    }
}
`

func ruleMessages(t *testing.T, opts analysis.Options, id string) []string {
	t.Helper()
	comp, err := csharp.Load(context.Background(), []input.Artifact{
		{Path: "Unused.cs", Content: unusedParameterFixture},
		{Path: "Partial.cs", Content: partialMismatchFixture},
	})
	require.NoError(t, err)
	res, err := analysis.NewDriver(DefaultRegistry().Analyzers(), analysis.WithOptions(opts)).Run(context.Background(), comp)
	require.NoError(t, err)
	require.Empty(t, res.Faults)

	var out []string
	for _, d := range res.Diagnostics {
		if d.RuleID == id {
			out = append(out, d.Location.Path+": "+d.Message)
		}
	}
	return out
}

func TestRulesAreIsolated(t *testing.T) {
	off := false
	disable := func(id string) analysis.Options {
		return analysis.Options{Rules: map[string]analysis.RuleConfig{id: {Enabled: &off}}}
	}

	unused := ruleMessages(t, analysis.Options{}, "S1172")
	require.Len(t, unused, 2)
	assert.Equal(t, unused, ruleMessages(t, disable("S927"), "S1172"))

	partial := ruleMessages(t, analysis.Options{}, "S927")
	require.Len(t, partial, 2)
	assert.Equal(t, partial, ruleMessages(t, disable("S1172"), "S927"))

	assert.Empty(t, ruleMessages(t, disable("S927"), "S927"))
	assert.Empty(t, ruleMessages(t, disable("S1172"), "S1172"))
}

// ---------------------------------------------------------------------------
// S107 parameter count
// ---------------------------------------------------------------------------

func TestParameterCount(t *testing.T) {
	src := `class C
{
    void Few(int a, int b) { }
    void Many(int a, int b, int c, int d, int e, int f, int g, int h) { }
}
`
	ds := analyze(t, ParameterCount, src)
	require.Len(t, ds, 1)
	assert.Equal(t, "Method has 8 parameters, which is greater than the 7 authorized.", ds[0].Message)
	line, col := position(t, src, "void Many", "Many")
	assertAt(t, ds[0], line, col)
}

func TestParameterCountCustomThreshold(t *testing.T) {
	opts := enable("S107", map[string]any{"max_params": 1})
	ds := analyzeFiles(t, opts, ParameterCount, input.Artifact{Path: "Test.cs", Content: `class C
{
    C(int a, int b) { }
    void Few(int a) { }
}
`})
	require.Len(t, ds, 1)
	assert.Equal(t, "Method has 2 parameters, which is greater than the 1 authorized.", ds[0].Message)
}

func TestParameterCountSkipsOverrides(t *testing.T) {
	opts := enable("S107", map[string]any{"max_params": 1})
	ds := analyzeFiles(t, opts, ParameterCount, input.Artifact{Path: "Test.cs", Content: `class B { public virtual void M(int a, int b) { } }
class D : B { public override void M(int a, int b) { } }
`})
	require.Len(t, ds, 1)
	assert.Equal(t, 1, ds[0].Location.Range.Start.Line)
}

// ---------------------------------------------------------------------------
// S138 method length
// ---------------------------------------------------------------------------

func TestMethodLengthDisabledByDefault(t *testing.T) {
	ds := analyze(t, MethodLength, "class C\n{\n    void M()\n    {\n        int a = 1;\n        int b = 2;\n    }\n}\n")
	assert.Empty(t, ds)
}

func TestMethodLength(t *testing.T) {
	src := "class C\n{\n    void Long()\n    {\n        int a = 1;\n        int b = 2;\n    }\n    void Short() { }\n}\n"
	ds := analyzeFiles(t, enable("S138", map[string]any{"max_lines": 3}), MethodLength,
		input.Artifact{Path: "Test.cs", Content: src})
	require.Len(t, ds, 1)
	assert.Equal(t, "This method has 5 lines, which is greater than the 3 lines authorized. Split it into smaller methods.", ds[0].Message)
	line, col := position(t, src, "void Long", "Long")
	assertAt(t, ds[0], line, col)
}

// ---------------------------------------------------------------------------
// S134 nesting depth
// ---------------------------------------------------------------------------

func TestNestingDepth(t *testing.T) {
	src := `class C
{
    void M(bool a)
    {
        if (a)
        {
            for (;;)
            {
                while (a)
                {
                    if (a)
                    {
                        if (a) { }
                    }
                }
            }
        }
    }
}
`
	ds := analyzeFiles(t, enable("S134", nil), NestingDepth, input.Artifact{Path: "Test.cs", Content: src})
	require.Len(t, ds, 1, "diagnostics: %v", ds)
	assert.Equal(t, "Refactor this code to not nest more than 3 control flow statements.", ds[0].Message)
	assert.Equal(t, 11, ds[0].Location.Range.Start.Line)
	require.Len(t, ds[0].Additional, 3)
	assert.Equal(t, 5, ds[0].Additional[0].Range.Start.Line)
	assert.Equal(t, 7, ds[0].Additional[1].Range.Start.Line)
	assert.Equal(t, 9, ds[0].Additional[2].Range.Start.Line)
}

func TestNestingDepthElseIfChain(t *testing.T) {
	src := `class C
{
    int M(int a)
    {
        if (a == 1) { return 1; }
        else if (a == 2) { return 2; }
        else if (a == 3) { return 3; }
        else if (a == 4) { return 4; }
        else if (a == 5) { return 5; }
        return 0;
    }
}
`
	ds := analyzeFiles(t, enable("S134", map[string]any{"max_depth": 1}), NestingDepth,
		input.Artifact{Path: "Test.cs", Content: src})
	assert.Empty(t, ds)
}

// ---------------------------------------------------------------------------
// S2486 empty catch
// ---------------------------------------------------------------------------

func TestEmptyCatch(t *testing.T) {
	src := `class C
{
    void M()
    {
        try { M(); }
        catch (System.Exception) { }
        try { M(); }
        catch
        {
            // ignored on purpose
        }
        try { M(); }
        catch (System.Exception e) { throw; }
    }
}
`
	ds := analyze(t, EmptyCatch, src)
	require.Len(t, ds, 1)
	assert.Equal(t, "S2486", ds[0].RuleID)
	assert.Equal(t, 6, ds[0].Location.Range.Start.Line)
}
