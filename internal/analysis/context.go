package analysis

import (
	"fmt"
	"log/slog"

	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/semantic"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

type action[C any] struct {
	owner *analyzerState
	fn    func(C)
}

type nodeRegistration struct {
	action[*SyntaxNodeContext]
	kinds []syntax.Kind
}

// registrations collects the actions registered in one scope. Once sealed,
// the scope has started running and further registrations are dropped.
type registrations struct {
	sealed            bool
	compilationStarts []action[*CompilationStartContext]
	nodes             []nodeRegistration
	blockStarts       []action[*CodeBlockStartContext]
	blockEnds         []action[*CodeBlockContext]
	compilationEnds   []action[*CompilationEndContext]
}

// dispatch maps a node kind to the actions subscribed to it.
type dispatch map[syntax.Kind][]action[*SyntaxNodeContext]

func buildDispatch(regs []nodeRegistration) dispatch {
	d := make(dispatch)
	for _, reg := range regs {
		for _, k := range reg.kinds {
			d[k] = append(d[k], reg.action)
		}
	}
	return d
}

// scope is embedded by every context and carries what all callbacks share.
type scope struct {
	run   *run
	state *analyzerState
}

// Compilation returns the compilation being analyzed.
func (s scope) Compilation() *Compilation { return s.run.comp }

// Model returns the symbol model of the compilation.
func (s scope) Model() semantic.Model { return s.run.comp.Model }

// Params returns the configured parameters of rule id.
func (s scope) Params(id string) map[string]any { return s.run.opts.Params(id) }

// Logger returns a logger tagged with the analyzer name.
func (s scope) Logger() *slog.Logger {
	return s.run.logger.With("analyzer", s.state.analyzer.Name)
}

// Location spans the whole node.
func (s scope) Location(n *syntax.Node) diag.Location { return s.run.comp.Location(n) }

// IdentifierLocation spans the identifier of a declaration or name node.
func (s scope) IdentifierLocation(n *syntax.Node) diag.Location {
	return s.run.comp.IdentifierLocation(n)
}

// Report files a diagnostic for d at loc, formatting the message with args.
// Diagnostics located in generated code are dropped.
func (s scope) Report(d *Descriptor, loc diag.Location, args ...any) {
	s.ReportWithLocations(d, loc, nil, args...)
}

// ReportWithLocations is Report with additional related locations.
func (s scope) ReportWithLocations(d *Descriptor, loc diag.Location, additional []diag.Location, args ...any) {
	if !s.state.analyzer.declares(d) {
		panic(fmt.Errorf("analyzer %q reported undeclared rule %s", s.state.analyzer.Name, d.ID))
	}
	if !s.run.opts.Enabled(d) {
		return
	}
	s.run.sink.ReportIfNotGenerated(diag.Diagnostic{
		RuleID:     d.ID,
		Message:    d.Message(args...),
		Severity:   s.run.opts.Severity(d),
		Location:   loc,
		Additional: additional,
	}, s.run.comp.Model)
}

func (s scope) register(regs *registrations, what string) bool {
	if regs.sealed {
		s.Logger().Warn("registration after scope started, ignored", "action", what)
		return false
	}
	return true
}

// InitContext is handed to Analyzer.Initialize.
type InitContext struct {
	scope
	regs *registrations
}

// RegisterCompilationStartAction runs fn once before the walk. Actions it
// registers are scoped to this compilation.
func (c *InitContext) RegisterCompilationStartAction(fn func(*CompilationStartContext)) {
	if c.register(c.regs, "compilation start") {
		c.regs.compilationStarts = append(c.regs.compilationStarts, action[*CompilationStartContext]{c.state, fn})
	}
}

// RegisterSyntaxNodeAction runs fn for every node of one of kinds.
func (c *InitContext) RegisterSyntaxNodeAction(fn func(*SyntaxNodeContext), kinds ...syntax.Kind) {
	if c.register(c.regs, "syntax node") {
		c.regs.nodes = append(c.regs.nodes, nodeRegistration{action[*SyntaxNodeContext]{c.state, fn}, kinds})
	}
}

// RegisterCodeBlockStartAction runs fn when the walk enters a code block.
func (c *InitContext) RegisterCodeBlockStartAction(fn func(*CodeBlockStartContext)) {
	if c.register(c.regs, "code block start") {
		c.regs.blockStarts = append(c.regs.blockStarts, action[*CodeBlockStartContext]{c.state, fn})
	}
}

// CompilationStartContext is handed to compilation-start actions.
type CompilationStartContext struct {
	scope
	regs *registrations
}

// RegisterSyntaxNodeAction runs fn for every node of one of kinds in this
// compilation.
func (c *CompilationStartContext) RegisterSyntaxNodeAction(fn func(*SyntaxNodeContext), kinds ...syntax.Kind) {
	if c.register(c.regs, "syntax node") {
		c.regs.nodes = append(c.regs.nodes, nodeRegistration{action[*SyntaxNodeContext]{c.state, fn}, kinds})
	}
}

// RegisterCodeBlockStartAction runs fn when the walk enters a code block.
func (c *CompilationStartContext) RegisterCodeBlockStartAction(fn func(*CodeBlockStartContext)) {
	if c.register(c.regs, "code block start") {
		c.regs.blockStarts = append(c.regs.blockStarts, action[*CodeBlockStartContext]{c.state, fn})
	}
}

// RegisterCompilationEndAction runs fn once after every tree is walked.
func (c *CompilationStartContext) RegisterCompilationEndAction(fn func(*CompilationEndContext)) {
	if c.register(c.regs, "compilation end") {
		c.regs.compilationEnds = append(c.regs.compilationEnds, action[*CompilationEndContext]{c.state, fn})
	}
}

// CodeBlockStartContext is handed to code-block-start actions.
type CodeBlockStartContext struct {
	scope
	CodeBlock    *syntax.Node
	OwningSymbol semantic.Symbol
	regs         *registrations
}

// RegisterSyntaxNodeAction runs fn for nodes of one of kinds inside this
// code block only.
func (c *CodeBlockStartContext) RegisterSyntaxNodeAction(fn func(*SyntaxNodeContext), kinds ...syntax.Kind) {
	if c.register(c.regs, "syntax node") {
		c.regs.nodes = append(c.regs.nodes, nodeRegistration{action[*SyntaxNodeContext]{c.state, fn}, kinds})
	}
}

// RegisterCodeBlockEndAction runs fn once when the walk leaves this code block.
func (c *CodeBlockStartContext) RegisterCodeBlockEndAction(fn func(*CodeBlockContext)) {
	if c.register(c.regs, "code block end") {
		c.regs.blockEnds = append(c.regs.blockEnds, action[*CodeBlockContext]{c.state, fn})
	}
}

// SyntaxNodeContext is handed to node actions.
type SyntaxNodeContext struct {
	scope
	Node *syntax.Node
}

// CodeBlockContext is handed to code-block-end actions.
type CodeBlockContext struct {
	scope
	CodeBlock    *syntax.Node
	OwningSymbol semantic.Symbol
}

// CompilationEndContext is handed to compilation-end actions.
type CompilationEndContext struct {
	scope
}
