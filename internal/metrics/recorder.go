package metrics

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/input"
)

// Recorder provides a convenient API for recording analysis metrics
type Recorder struct {
	collector *Collector
	scope     Scope
}

func NewRecorder(collector *Collector, scope Scope) *Recorder {
	return &Recorder{collector: collector, scope: scope}
}

// Collector returns the collector events are recorded into.
func (r *Recorder) Collector() *Collector {
	return r.collector
}

// AnalysisBuilder builds an AnalysisEvent as a unit moves through a worker.
type AnalysisBuilder struct {
	recorder *Recorder
	event    AnalysisEvent
	timing   *AnalysisTiming
	mu       sync.Mutex
}

// StartAnalysis begins recording a unit. The queue clock starts now.
func (r *Recorder) StartAnalysis(unit string) *AnalysisBuilder {
	return &AnalysisBuilder{
		recorder: r,
		event: AnalysisEvent{
			ID:          newEventID(),
			Timestamp:   time.Now(),
			Scope:       r.scope,
			Unit:        unit,
			CacheResult: CacheDisabled,
		},
		timing: NewTiming(),
	}
}

// WithFiles records the size of the unit's input.
func (b *AnalysisBuilder) WithFiles(files []input.Artifact) *AnalysisBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.event.FileCount = len(files)
	b.event.ByteCount, b.event.LineCount = 0, 0
	for _, f := range files {
		b.event.ByteCount += len(f.Content)
		b.event.LineCount += strings.Count(f.Content, "\n") + 1
	}
	return b
}

func (b *AnalysisBuilder) WithAnalyzers(n int) *AnalysisBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.event.AnalyzerCount = n
	return b
}

// WithCacheResult records a cache lookup result
func (b *AnalysisBuilder) WithCacheResult(result CacheResult, key string) *AnalysisBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.event.CacheResult = result
	b.event.CacheKey = key
	return b
}

// MarkStarted marks the unit as picked up by a worker.
func (b *AnalysisBuilder) MarkStarted() *AnalysisBuilder {
	b.timing.Start()
	return b
}

// MarkLoaded marks the end of parsing and binding.
func (b *AnalysisBuilder) MarkLoaded() *AnalysisBuilder {
	b.timing.Loaded()
	return b
}

// Complete records the pipeline result and submits the event.
func (b *AnalysisBuilder) Complete(res *analysis.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timing.Complete()
	if res != nil {
		b.event.NodesVisited = res.NodesVisited
		b.event.DiagnosticCount = len(res.Diagnostics)
		b.event.FaultCount = len(res.Faults)
		b.event.ByRule = make(map[string]int)
		for _, d := range res.Diagnostics {
			b.event.ByRule[d.RuleID]++
		}
	}
	b.submit()
}

// CompleteWithError finishes recording with an error
func (b *AnalysisBuilder) CompleteWithError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timing.Complete()
	b.event.Error = err.Error()
	b.submit()
}

func (b *AnalysisBuilder) submit() {
	b.event.QueueDuration = b.timing.QueueDuration()
	b.event.LoadDuration = b.timing.LoadDuration()
	b.event.AnalysisDuration = b.timing.AnalysisDuration()
	b.event.TotalDuration = b.timing.TotalDuration()
	b.recorder.collector.Record(b.event)
}

func newEventID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

type contextKey string

const recorderContextKey contextKey = "metrics_recorder"

// WithRecorder adds a recorder to the context
func WithRecorder(ctx context.Context, recorder *Recorder) context.Context {
	return context.WithValue(ctx, recorderContextKey, recorder)
}

// RecorderFromContext returns the context's recorder, or a no-op recorder.
func RecorderFromContext(ctx context.Context) *Recorder {
	if r, ok := ctx.Value(recorderContextKey).(*Recorder); ok {
		return r
	}
	return NoOpRecorder()
}

// NoOpRecorder returns a recorder that keeps counters but no events.
func NoOpRecorder() *Recorder {
	return &Recorder{collector: NewCollector(WithMaxEvents(0))}
}
