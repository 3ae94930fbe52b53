package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/semantic"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

var (
	analysisTracer = otel.Tracer("github.com/chris-regnier/sharplint/internal/analysis")
	analysisMeter  = otel.Meter("github.com/chris-regnier/sharplint/internal/analysis")
)

// Phase names the stage a callback ran in.
type Phase string

const (
	PhaseInitialize       Phase = "initialize"
	PhaseCompilationStart Phase = "compilation_start"
	PhaseCodeBlockStart   Phase = "code_block_start"
	PhaseNode             Phase = "node"
	PhaseCodeBlockEnd     Phase = "code_block_end"
	PhaseCompilationEnd   Phase = "compilation_end"
)

// Fault records a callback that panicked. The analyzer that owned it is
// skipped for the rest of the run.
type Fault struct {
	Analyzer string
	Phase    Phase
	Location diag.Location
	Err      error
	Stack    []byte
}

func (f Fault) Error() string {
	return fmt.Sprintf("analyzer %s failed during %s: %v", f.Analyzer, f.Phase, f.Err)
}

func (f Fault) Unwrap() error { return f.Err }

// Result is the outcome of one Run.
type Result struct {
	Diagnostics  []diag.Diagnostic
	Faults       []Fault
	NodesVisited int
	Duration     time.Duration
}

// codeBlockOwners are the declarations whose body forms a code block.
var codeBlockOwners = map[syntax.Kind]bool{
	syntax.MethodDeclaration:      true,
	syntax.ConstructorDeclaration: true,
	syntax.DestructorDeclaration:  true,
	syntax.OperatorDeclaration:    true,
	syntax.AccessorDeclaration:    true,
}

// IsCodeBlockOwner reports whether nodes of kind k open a code block.
func IsCodeBlockOwner(k syntax.Kind) bool { return codeBlockOwners[k] }

// Driver runs a fixed set of analyzers over compilations. A Driver holds no
// per-run state and may run many compilations concurrently.
type Driver struct {
	analyzers []*Analyzer
	options   Options
	logger    *slog.Logger

	diagnostics metric.Int64Counter
	faults      metric.Int64Counter
	duration    metric.Float64Histogram
}

// Option configures a Driver.
type Option func(*Driver)

// WithOptions sets per-rule configuration.
func WithOptions(o Options) Option {
	return func(d *Driver) { d.options = o }
}

// WithLogger sets the logger used for faults and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// NewDriver returns a driver for analyzers.
func NewDriver(analyzers []*Analyzer, opts ...Option) *Driver {
	d := &Driver{analyzers: analyzers, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}

	var err error
	if d.diagnostics, err = analysisMeter.Int64Counter("sharplint.analysis.diagnostics",
		metric.WithDescription("Diagnostics reported")); err != nil {
		d.diagnostics = noop.Int64Counter{}
	}
	if d.faults, err = analysisMeter.Int64Counter("sharplint.analysis.faults",
		metric.WithDescription("Analyzer callbacks that panicked")); err != nil {
		d.faults = noop.Int64Counter{}
	}
	if d.duration, err = analysisMeter.Float64Histogram("sharplint.analysis.duration",
		metric.WithDescription("Compilation analysis time"), metric.WithUnit("s")); err != nil {
		d.duration = noop.Float64Histogram{}
	}
	return d
}

// Analyzers returns the analyzers the driver runs.
func (d *Driver) Analyzers() []*Analyzer { return d.analyzers }

// Options returns the rule configuration of the driver.
func (d *Driver) Options() Options { return d.options }

// Run analyzes comp and returns its diagnostics in report order. If ctx is
// cancelled mid-walk the partial results are discarded and ctx.Err() is
// returned.
func (d *Driver) Run(ctx context.Context, comp *Compilation) (*Result, error) {
	if err := comp.validate(); err != nil {
		return nil, err
	}

	ctx, span := analysisTracer.Start(ctx, "analyze compilation")
	defer span.End()
	start := time.Now()

	r := &run{
		ctx:    ctx,
		comp:   comp,
		opts:   d.options,
		sink:   diag.NewSink(),
		logger: d.logger,
	}
	if err := r.execute(d.analyzers); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := &Result{
		Diagnostics:  r.sink.Drain(),
		Faults:       r.faults,
		NodesVisited: r.nodes,
		Duration:     time.Since(start),
	}

	for _, dg := range res.Diagnostics {
		d.diagnostics.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", dg.RuleID)))
	}
	for _, f := range res.Faults {
		d.faults.Add(ctx, 1, metric.WithAttributes(attribute.String("analyzer", f.Analyzer)))
	}
	d.duration.Record(ctx, res.Duration.Seconds())

	span.SetAttributes(
		attribute.Int("sharplint.analysis.trees", len(comp.Trees)),
		attribute.Int("sharplint.analysis.nodes", res.NodesVisited),
		attribute.Int("sharplint.analysis.diagnostics", len(res.Diagnostics)),
		attribute.Int("sharplint.analysis.faults", len(res.Faults)),
	)
	return res, nil
}

type analyzerState struct {
	analyzer    *Analyzer
	quarantined bool
}

// frame is an open code block.
type frame struct {
	owner    *syntax.Node
	symbol   semantic.Symbol
	regs     registrations
	dispatch dispatch
}

// run is the state of one Driver.Run. It is confined to one goroutine.
type run struct {
	ctx    context.Context
	comp   *Compilation
	opts   Options
	sink   *diag.Sink
	logger *slog.Logger

	root     registrations
	dispatch dispatch
	frames   []*frame
	faults   []Fault
	nodes    int
}

func (r *run) execute(analyzers []*Analyzer) error {
	for _, a := range analyzers {
		if !r.opts.AnyEnabled(a) {
			continue
		}
		st := &analyzerState{analyzer: a}
		r.invoke(st, PhaseInitialize, nil, func() {
			a.Initialize(&InitContext{scope: scope{r, st}, regs: &r.root})
		})
	}

	// Compilation-start actions may add node, code-block and end actions to
	// the root scope but not further start actions.
	starts := r.root.compilationStarts
	r.root.compilationStarts = nil
	for _, act := range starts {
		r.invoke(act.owner, PhaseCompilationStart, nil, func() {
			act.fn(&CompilationStartContext{scope: scope{r, act.owner}, regs: &r.root})
		})
	}
	r.root.sealed = true
	r.dispatch = buildDispatch(r.root.nodes)

	for _, tree := range r.comp.Trees {
		if err := r.walk(tree.Root); err != nil {
			return err
		}
	}

	for _, act := range r.root.compilationEnds {
		r.invoke(act.owner, PhaseCompilationEnd, nil, func() {
			act.fn(&CompilationEndContext{scope: scope{r, act.owner}})
		})
	}
	return nil
}

func (r *run) walk(n *syntax.Node) error {
	if n == nil {
		return nil
	}
	if err := r.ctx.Err(); err != nil {
		return err
	}
	r.nodes++

	f := r.openBlock(n)
	r.dispatchNode(n)
	for _, c := range n.Children {
		if err := r.walk(c); err != nil {
			return err
		}
	}
	if f != nil {
		r.closeBlock(f)
	}
	return nil
}

func (r *run) openBlock(n *syntax.Node) *frame {
	if !codeBlockOwners[n.Kind] || len(r.root.blockStarts) == 0 {
		return nil
	}
	// extern, abstract and partial definitions declare no code block
	if n.Body() == nil {
		return nil
	}
	sym := r.comp.Model.SymbolOf(n)
	if sym == nil {
		r.logger.Debug("code block without symbol", "kind", n.Kind, "location", r.comp.Location(n))
		return nil
	}

	f := &frame{owner: n, symbol: sym}
	for _, act := range r.root.blockStarts {
		r.invoke(act.owner, PhaseCodeBlockStart, n, func() {
			act.fn(&CodeBlockStartContext{
				scope:        scope{r, act.owner},
				CodeBlock:    n,
				OwningSymbol: sym,
				regs:         &f.regs,
			})
		})
	}
	f.regs.sealed = true
	f.dispatch = buildDispatch(f.regs.nodes)
	r.frames = append(r.frames, f)
	return f
}

func (r *run) closeBlock(f *frame) {
	r.frames = r.frames[:len(r.frames)-1]
	for _, act := range f.regs.blockEnds {
		r.invoke(act.owner, PhaseCodeBlockEnd, f.owner, func() {
			act.fn(&CodeBlockContext{
				scope:        scope{r, act.owner},
				CodeBlock:    f.owner,
				OwningSymbol: f.symbol,
			})
		})
	}
}

func (r *run) dispatchNode(n *syntax.Node) {
	for _, act := range r.dispatch[n.Kind] {
		r.fire(act, n)
	}
	for _, f := range r.frames {
		for _, act := range f.dispatch[n.Kind] {
			r.fire(act, n)
		}
	}
}

func (r *run) fire(act action[*SyntaxNodeContext], n *syntax.Node) {
	r.invoke(act.owner, PhaseNode, n, func() {
		act.fn(&SyntaxNodeContext{scope: scope{r, act.owner}, Node: n})
	})
}

// invoke runs fn on behalf of st, converting a panic into a Fault and
// quarantining st.
func (r *run) invoke(st *analyzerState, phase Phase, n *syntax.Node, fn func()) {
	if st.quarantined {
		return
	}
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		st.quarantined = true
		err, ok := p.(error)
		if !ok {
			err = fmt.Errorf("%v", p)
		}
		f := Fault{Analyzer: st.analyzer.Name, Phase: phase, Err: err, Stack: debug.Stack()}
		if n != nil {
			f.Location = r.comp.Location(n)
		}
		r.faults = append(r.faults, f)
		r.logger.Error("analyzer fault",
			"analyzer", f.Analyzer,
			"phase", string(phase),
			"location", f.Location.String(),
			"error", err,
		)
	}()
	fn()
}
