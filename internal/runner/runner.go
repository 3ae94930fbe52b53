// Package runner analyzes many compilation units concurrently, consulting the
// result cache and recording per-unit metrics.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/cache"
	"github.com/chris-regnier/sharplint/internal/csharp"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/input"
	"github.com/chris-regnier/sharplint/internal/metrics"
)

var tracer = otel.Tracer("github.com/chris-regnier/sharplint/internal/runner")

// Unit is a set of files bound together into one compilation.
type Unit struct {
	Name  string
	Files []input.Artifact
}

// Partition modes for Split.
const (
	PartitionAll  = "all"
	PartitionDir  = "dir"
	PartitionFile = "file"
)

// Split groups files into units: one unit for everything, one per
// directory, or one per file. Units and their files keep input order.
func Split(files []input.Artifact, mode string) ([]Unit, error) {
	if len(files) == 0 {
		return nil, nil
	}
	switch mode {
	case "", PartitionAll:
		return []Unit{{Name: "all", Files: files}}, nil
	case PartitionFile:
		units := make([]Unit, len(files))
		for i, f := range files {
			units[i] = Unit{Name: f.Path, Files: []input.Artifact{f}}
		}
		return units, nil
	case PartitionDir:
		var units []Unit
		index := make(map[string]int)
		for _, f := range files {
			dir := filepath.Dir(f.Path)
			i, ok := index[dir]
			if !ok {
				i = len(units)
				index[dir] = i
				units = append(units, Unit{Name: dir})
			}
			units[i].Files = append(units[i].Files, f)
		}
		return units, nil
	}
	return nil, fmt.Errorf("unknown partition mode %q", mode)
}

// Loader builds a compilation from files.
type Loader func(ctx context.Context, files []input.Artifact) (*analysis.Compilation, error)

// UnitResult is the outcome of one unit. Err is set when the unit could not
// be loaded or analyzed; other units are unaffected.
type UnitResult struct {
	Unit   string
	Result *analysis.Result
	Cached bool
	Err    error
}

// Summary aggregates the results of all units.
type Summary struct {
	Units []UnitResult
	// Diagnostics in unit order, each unit in report order.
	Diagnostics  []diag.Diagnostic
	Faults       []analysis.Fault
	NodesVisited int
	CacheHits    int
	Failed       int
	Duration     time.Duration
}

// Err joins the errors of failed units.
func (s *Summary) Err() error {
	var errs []error
	for _, u := range s.Units {
		if u.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u.Unit, u.Err))
		}
	}
	return errors.Join(errs...)
}

// Runner analyzes compilation units with one Driver.
type Runner struct {
	driver        *analysis.Driver
	load          Loader
	cache         cache.Manager
	recorder      *metrics.Recorder
	workers       int
	engineVersion string
	logger        *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache enables result caching.
func WithCache(m cache.Manager) Option {
	return func(r *Runner) { r.cache = m }
}

// WithRecorder records one metrics event per unit.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithWorkers bounds concurrent units. Values below one mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithEngineVersion is folded into cache keys.
func WithEngineVersion(v string) Option {
	return func(r *Runner) { r.engineVersion = v }
}

// WithLoader replaces the C# front end.
func WithLoader(l Loader) Option {
	return func(r *Runner) { r.load = l }
}

// WithLogger sets the logger for cache and unit warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New returns a runner for driver. By default it loads units with the C#
// front end, records no metrics and uses GOMAXPROCS workers.
func New(driver *analysis.Driver, opts ...Option) *Runner {
	r := &Runner{
		driver:   driver,
		load:     csharp.Load,
		recorder: metrics.NoOpRecorder(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	return r
}

// Run analyzes units concurrently. Unit failures are reported in the
// summary; only cancellation of ctx fails the whole run.
func (r *Runner) Run(ctx context.Context, units []Unit) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "runner.run")
	defer span.End()
	start := time.Now()

	results := make([]UnitResult, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, u := range units {
		b := r.recorder.StartAnalysis(u.Name).
			WithFiles(u.Files).
			WithAnalyzers(len(r.driver.Analyzers()))
		g.Go(func() error {
			results[i] = r.runUnit(gctx, u, b)
			if err := gctx.Err(); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Summary{Units: results, Duration: time.Since(start)}
	for _, ur := range results {
		if ur.Err != nil {
			s.Failed++
			continue
		}
		if ur.Cached {
			s.CacheHits++
		}
		s.Diagnostics = append(s.Diagnostics, ur.Result.Diagnostics...)
		s.Faults = append(s.Faults, ur.Result.Faults...)
		s.NodesVisited += ur.Result.NodesVisited
	}

	span.SetAttributes(
		attribute.Int("sharplint.runner.units", len(units)),
		attribute.Int("sharplint.runner.failed", s.Failed),
		attribute.Int("sharplint.runner.cache_hits", s.CacheHits),
		attribute.Int("sharplint.runner.diagnostics", len(s.Diagnostics)),
	)
	return s, nil
}

func (r *Runner) runUnit(ctx context.Context, u Unit, b *metrics.AnalysisBuilder) UnitResult {
	b.MarkStarted()
	ur := UnitResult{Unit: u.Name}

	var key cache.Key
	if r.cache != nil {
		key = cache.KeyFor(u.Files, r.driver.Analyzers(), r.driver.Options(), r.engineVersion)
		entry, err := r.cache.Get(ctx, key)
		switch {
		case err == nil:
			ur.Result, ur.Cached = entry.Result(), true
			b.WithCacheResult(metrics.CacheHit, key.Hash()).Complete(ur.Result)
			r.logger.Debug("cache hit", "unit", u.Name)
			return ur
		case !errors.Is(err, cache.ErrCacheMiss):
			r.logger.Warn("reading cache", "unit", u.Name, "err", err)
		}
		b.WithCacheResult(metrics.CacheMiss, key.Hash())
	}

	comp, err := r.load(ctx, u.Files)
	if err != nil {
		ur.Err = fmt.Errorf("loading: %w", err)
		b.CompleteWithError(ur.Err)
		return ur
	}
	b.MarkLoaded()

	res, err := r.driver.Run(ctx, comp)
	if err != nil {
		ur.Err = err
		b.CompleteWithError(err)
		return ur
	}
	ur.Result = res
	b.Complete(res)

	// faulted runs are incomplete and not worth replaying
	if r.cache != nil && len(res.Faults) == 0 {
		if err := r.cache.Put(ctx, key, cache.NewResultEntry(key, res)); err != nil {
			r.logger.Warn("writing cache", "unit", u.Name, "err", err)
		}
	}
	return ur
}

// SortedDiagnostics returns the summary's diagnostics ordered by file,
// position and rule.
func (s *Summary) SortedDiagnostics() []diag.Diagnostic {
	out := append([]diag.Diagnostic(nil), s.Diagnostics...)
	diag.SortDiagnostics(out)
	return out
}
