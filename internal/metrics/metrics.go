// Package metrics collects per-unit analysis events and aggregates them into
// run statistics.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Scope identifies how a unit's files were selected.
type Scope string

const (
	ScopeFiles Scope = "files"
	ScopeDir   Scope = "dir"
	ScopeDiff  Scope = "diff"
)

// CacheResult indicates whether a cache lookup was a hit or miss
type CacheResult string

const (
	CacheHit      CacheResult = "hit"
	CacheMiss     CacheResult = "miss"
	CacheDisabled CacheResult = "disabled"
)

// AnalysisEvent captures one compilation unit's trip through the pipeline.
type AnalysisEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Scope     Scope     `json:"scope"`
	Unit      string    `json:"unit"`

	// Input
	FileCount     int `json:"file_count"`
	ByteCount     int `json:"byte_count"`
	LineCount     int `json:"line_count"`
	AnalyzerCount int `json:"analyzer_count"`

	// Timing
	QueueDuration    time.Duration `json:"queue_duration"`
	LoadDuration     time.Duration `json:"load_duration"`
	AnalysisDuration time.Duration `json:"analysis_duration"`
	TotalDuration    time.Duration `json:"total_duration"`

	// Results
	NodesVisited    int            `json:"nodes_visited"`
	DiagnosticCount int            `json:"diagnostic_count"`
	FaultCount      int            `json:"fault_count"`
	ByRule          map[string]int `json:"by_rule,omitempty"`

	CacheResult CacheResult `json:"cache_result"`
	CacheKey    string      `json:"cache_key,omitempty"`

	Error string `json:"error,omitempty"`
}

// AnalysisTiming tracks the phases of one unit.
type AnalysisTiming struct {
	queuedAt    time.Time
	startedAt   time.Time
	loadedAt    time.Time
	completedAt time.Time
}

// NewTiming creates a timing tracker with the queue time set to now.
func NewTiming() *AnalysisTiming {
	return &AnalysisTiming{queuedAt: time.Now()}
}

// Start marks the unit as picked up by a worker.
func (t *AnalysisTiming) Start() { t.startedAt = time.Now() }

// Loaded marks the end of parsing and binding.
func (t *AnalysisTiming) Loaded() { t.loadedAt = time.Now() }

// Complete marks the unit as done.
func (t *AnalysisTiming) Complete() { t.completedAt = time.Now() }

func (t *AnalysisTiming) QueueDuration() time.Duration {
	if t.startedAt.IsZero() {
		return 0
	}
	return t.startedAt.Sub(t.queuedAt)
}

func (t *AnalysisTiming) LoadDuration() time.Duration {
	if t.loadedAt.IsZero() || t.startedAt.IsZero() {
		return 0
	}
	return t.loadedAt.Sub(t.startedAt)
}

// AnalysisDuration covers the pipeline run after loading, or the whole
// worker time when no load was recorded.
func (t *AnalysisTiming) AnalysisDuration() time.Duration {
	if t.completedAt.IsZero() || t.startedAt.IsZero() {
		return 0
	}
	if !t.loadedAt.IsZero() {
		return t.completedAt.Sub(t.loadedAt)
	}
	return t.completedAt.Sub(t.startedAt)
}

func (t *AnalysisTiming) TotalDuration() time.Duration {
	if t.completedAt.IsZero() {
		return 0
	}
	return t.completedAt.Sub(t.queuedAt)
}

// AggregateStats holds computed aggregate statistics
type AggregateStats struct {
	TotalUnits       int64 `json:"total_units"`
	TotalErrors      int64 `json:"total_errors"`
	TotalFiles       int64 `json:"total_files"`
	TotalNodes       int64 `json:"total_nodes"`
	TotalDiagnostics int64 `json:"total_diagnostics"`
	TotalFaults      int64 `json:"total_faults"`

	// Latency in milliseconds
	AvgAnalysisDurationMs float64 `json:"avg_analysis_duration_ms"`
	P50AnalysisDurationMs float64 `json:"p50_analysis_duration_ms"`
	P95AnalysisDurationMs float64 `json:"p95_analysis_duration_ms"`
	P99AnalysisDurationMs float64 `json:"p99_analysis_duration_ms"`
	MaxAnalysisDurationMs float64 `json:"max_analysis_duration_ms"`
	AvgLoadDurationMs     float64 `json:"avg_load_duration_ms"`
	AvgQueueDurationMs    float64 `json:"avg_queue_duration_ms"`
	AvgTotalDurationMs    float64 `json:"avg_total_duration_ms"`

	CacheHits    int64   `json:"cache_hits"`
	CacheMisses  int64   `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	NodesPerSecond     float64 `json:"nodes_per_second"`
	DiagnosticsPerUnit float64 `json:"diagnostics_per_unit"`

	ByRule  map[string]int64       `json:"by_rule"`
	ByScope map[string]*ScopeStats `json:"by_scope"`

	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// ScopeStats holds stats for one input scope.
type ScopeStats struct {
	Count                 int64   `json:"count"`
	AvgAnalysisDurationMs float64 `json:"avg_analysis_duration_ms"`
	ErrorRate             float64 `json:"error_rate"`
}

type atomicCounters struct {
	totalUnits       atomic.Int64
	totalErrors      atomic.Int64
	totalFiles       atomic.Int64
	totalNodes       atomic.Int64
	totalDiagnostics atomic.Int64
	totalFaults      atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
}

// Collector collects and stores analysis events. It is safe for concurrent
// use by runner workers.
type Collector struct {
	mu       sync.RWMutex
	events   []AnalysisEvent
	byRule   map[string]int64
	counters atomicCounters

	maxEvents  int
	windowSize time.Duration
}

// CollectorOption configures a Collector
type CollectorOption func(*Collector)

// WithMaxEvents sets the maximum number of events to retain
func WithMaxEvents(n int) CollectorOption {
	return func(c *Collector) {
		c.maxEvents = n
	}
}

// WithWindowSize sets the time window for aggregate stats
func WithWindowSize(d time.Duration) CollectorOption {
	return func(c *Collector) {
		c.windowSize = d
	}
}

func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		events:     make([]AnalysisEvent, 0, 64),
		byRule:     make(map[string]int64),
		maxEvents:  10000,
		windowSize: 1 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Record adds an event to the collector
func (c *Collector) Record(event AnalysisEvent) {
	c.counters.totalUnits.Add(1)
	c.counters.totalFiles.Add(int64(event.FileCount))
	c.counters.totalNodes.Add(int64(event.NodesVisited))
	c.counters.totalDiagnostics.Add(int64(event.DiagnosticCount))
	c.counters.totalFaults.Add(int64(event.FaultCount))
	if event.Error != "" {
		c.counters.totalErrors.Add(1)
	}
	switch event.CacheResult {
	case CacheHit:
		c.counters.cacheHits.Add(1)
	case CacheMiss:
		c.counters.cacheMisses.Add(1)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for rule, n := range event.ByRule {
		c.byRule[rule] += int64(n)
	}
	if c.maxEvents <= 0 {
		return
	}
	c.events = append(c.events, event)
	if len(c.events) > c.maxEvents {
		// drop the oldest 10%, at least one
		prune := max(c.maxEvents/10, 1)
		c.events = c.events[prune:]
	}
}

// GetStats computes aggregate statistics from collected events
func (c *Collector) GetStats() AggregateStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	windowStart := now.Add(-c.windowSize)

	stats := AggregateStats{
		TotalUnits:       c.counters.totalUnits.Load(),
		TotalErrors:      c.counters.totalErrors.Load(),
		TotalFiles:       c.counters.totalFiles.Load(),
		TotalNodes:       c.counters.totalNodes.Load(),
		TotalDiagnostics: c.counters.totalDiagnostics.Load(),
		TotalFaults:      c.counters.totalFaults.Load(),
		CacheHits:        c.counters.cacheHits.Load(),
		CacheMisses:      c.counters.cacheMisses.Load(),
		ByRule:           make(map[string]int64, len(c.byRule)),
		ByScope:          make(map[string]*ScopeStats),
		WindowStart:      windowStart,
		WindowEnd:        now,
	}
	for rule, n := range c.byRule {
		stats.ByRule[rule] = n
	}
	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		stats.CacheHitRate = float64(stats.CacheHits) / float64(lookups)
	}
	if stats.TotalUnits > 0 {
		stats.DiagnosticsPerUnit = float64(stats.TotalDiagnostics) / float64(stats.TotalUnits)
	}

	var window []AnalysisEvent
	for _, e := range c.events {
		if e.Timestamp.After(windowStart) {
			window = append(window, e)
		}
	}
	if len(window) == 0 {
		return stats
	}

	durations := make([]float64, 0, len(window))
	var sumAnalysis, sumLoad, sumQueue, sumTotal float64
	var analysisTime time.Duration
	var windowNodes int64
	scopeCounts := make(map[Scope]int64)
	scopeDurations := make(map[Scope]float64)
	scopeErrors := make(map[Scope]int64)

	for _, e := range window {
		ms := millis(e.AnalysisDuration)
		durations = append(durations, ms)
		sumAnalysis += ms
		sumLoad += millis(e.LoadDuration)
		sumQueue += millis(e.QueueDuration)
		sumTotal += millis(e.TotalDuration)
		analysisTime += e.AnalysisDuration
		windowNodes += int64(e.NodesVisited)

		scopeCounts[e.Scope]++
		scopeDurations[e.Scope] += ms
		if e.Error != "" {
			scopeErrors[e.Scope]++
		}
	}

	n := float64(len(window))
	stats.AvgAnalysisDurationMs = sumAnalysis / n
	stats.AvgLoadDurationMs = sumLoad / n
	stats.AvgQueueDurationMs = sumQueue / n
	stats.AvgTotalDurationMs = sumTotal / n

	sort.Float64s(durations)
	stats.P50AnalysisDurationMs = percentile(durations, 0.50)
	stats.P95AnalysisDurationMs = percentile(durations, 0.95)
	stats.P99AnalysisDurationMs = percentile(durations, 0.99)
	stats.MaxAnalysisDurationMs = durations[len(durations)-1]

	if analysisTime > 0 {
		stats.NodesPerSecond = float64(windowNodes) / analysisTime.Seconds()
	}

	for scope, count := range scopeCounts {
		stats.ByScope[string(scope)] = &ScopeStats{
			Count:                 count,
			AvgAnalysisDurationMs: scopeDurations[scope] / float64(count),
			ErrorRate:             float64(scopeErrors[scope]) / float64(count),
		}
	}
	return stats
}

// GetRecentEvents returns the most recent n events
func (c *Collector) GetRecentEvents(n int) []AnalysisEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n = min(n, len(c.events))
	if n <= 0 {
		return nil
	}
	result := make([]AnalysisEvent, n)
	copy(result, c.events[len(c.events)-n:])
	return result
}

// Reset clears all collected metrics
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = c.events[:0]
	c.byRule = make(map[string]int64)
	c.counters = atomicCounters{}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// percentile returns the value at p (0.0-1.0) of an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
