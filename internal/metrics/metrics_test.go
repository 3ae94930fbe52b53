package metrics

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/input"
)

func TestTiming_Phases(t *testing.T) {
	timing := NewTiming()
	if timing.queuedAt.IsZero() {
		t.Fatal("queuedAt should be set")
	}
	if timing.QueueDuration() != 0 || timing.TotalDuration() != 0 {
		t.Fatal("durations should be zero before start")
	}

	time.Sleep(5 * time.Millisecond)
	timing.Start()
	time.Sleep(5 * time.Millisecond)
	timing.Loaded()
	time.Sleep(5 * time.Millisecond)
	timing.Complete()

	if timing.QueueDuration() < 5*time.Millisecond {
		t.Errorf("queue duration should be at least 5ms, got %v", timing.QueueDuration())
	}
	if timing.LoadDuration() < 5*time.Millisecond {
		t.Errorf("load duration should be at least 5ms, got %v", timing.LoadDuration())
	}
	if timing.AnalysisDuration() < 5*time.Millisecond {
		t.Errorf("analysis duration should be at least 5ms, got %v", timing.AnalysisDuration())
	}
	if timing.TotalDuration() < 15*time.Millisecond {
		t.Errorf("total duration should be at least 15ms, got %v", timing.TotalDuration())
	}
}

func TestCollector_Record(t *testing.T) {
	c := NewCollector()
	c.Record(AnalysisEvent{
		ID:              "unit-1",
		Timestamp:       time.Now(),
		Scope:           ScopeDir,
		FileCount:       3,
		NodesVisited:    120,
		DiagnosticCount: 5,
		FaultCount:      1,
		ByRule:          map[string]int{"S1172": 4, "S927": 1},
		CacheResult:     CacheMiss,
	})

	if c.counters.totalUnits.Load() != 1 {
		t.Error("total units should be 1")
	}
	if c.counters.totalDiagnostics.Load() != 5 {
		t.Error("total diagnostics should be 5")
	}
	if c.counters.cacheMisses.Load() != 1 {
		t.Error("cache misses should be 1")
	}
	if c.byRule["S1172"] != 4 {
		t.Errorf("expected 4 S1172 diagnostics, got %d", c.byRule["S1172"])
	}
}

func TestCollector_RecordConcurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(AnalysisEvent{
				Timestamp:       time.Now(),
				DiagnosticCount: 2,
				ByRule:          map[string]int{"S107": 2},
				CacheResult:     CacheHit,
			})
		}()
	}
	wg.Wait()

	stats := c.GetStats()
	if stats.TotalUnits != 50 || stats.TotalDiagnostics != 100 {
		t.Errorf("unexpected totals %d units, %d diagnostics", stats.TotalUnits, stats.TotalDiagnostics)
	}
	if stats.ByRule["S107"] != 100 {
		t.Errorf("expected 100 S107, got %d", stats.ByRule["S107"])
	}
	if stats.CacheHitRate != 1 {
		t.Errorf("expected hit rate 1, got %f", stats.CacheHitRate)
	}
}

func TestCollector_GetStats(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	for i, ms := range []int{10, 20, 30, 40} {
		scope := ScopeDir
		errText := ""
		if i == 3 {
			scope = ScopeDiff
			errText = "parse failed"
		}
		c.Record(AnalysisEvent{
			Timestamp:        now,
			Scope:            scope,
			AnalysisDuration: time.Duration(ms) * time.Millisecond,
			NodesVisited:     100,
			Error:            errText,
			CacheResult:      CacheMiss,
		})
	}

	stats := c.GetStats()
	if stats.AvgAnalysisDurationMs != 25 {
		t.Errorf("expected avg 25ms, got %f", stats.AvgAnalysisDurationMs)
	}
	if stats.MaxAnalysisDurationMs != 40 {
		t.Errorf("expected max 40ms, got %f", stats.MaxAnalysisDurationMs)
	}
	if stats.P50AnalysisDurationMs != 20 {
		t.Errorf("expected p50 20ms, got %f", stats.P50AnalysisDurationMs)
	}
	if stats.TotalErrors != 1 {
		t.Errorf("expected 1 error, got %d", stats.TotalErrors)
	}
	if math.Abs(stats.NodesPerSecond-4000) > 1e-6 {
		t.Errorf("expected 4000 nodes/s, got %f", stats.NodesPerSecond)
	}
	dir, diff := stats.ByScope["dir"], stats.ByScope["diff"]
	if dir == nil || dir.Count != 3 || dir.ErrorRate != 0 {
		t.Errorf("unexpected dir stats %+v", dir)
	}
	if diff == nil || diff.Count != 1 || diff.ErrorRate != 1 {
		t.Errorf("unexpected diff stats %+v", diff)
	}
}

func TestCollector_WindowExcludesOldEvents(t *testing.T) {
	c := NewCollector(WithWindowSize(time.Minute))
	c.Record(AnalysisEvent{Timestamp: time.Now().Add(-time.Hour), AnalysisDuration: time.Second})

	stats := c.GetStats()
	if stats.TotalUnits != 1 {
		t.Errorf("counters should include old events, got %d", stats.TotalUnits)
	}
	if stats.MaxAnalysisDurationMs != 0 {
		t.Errorf("latency should exclude old events, got %f", stats.MaxAnalysisDurationMs)
	}
}

func TestCollector_Prune(t *testing.T) {
	c := NewCollector(WithMaxEvents(10))
	for i := 0; i < 25; i++ {
		c.Record(AnalysisEvent{ID: string(rune('a' + i)), Timestamp: time.Now()})
	}
	if got := len(c.GetRecentEvents(100)); got > 10 {
		t.Errorf("expected at most 10 events retained, got %d", got)
	}
	recent := c.GetRecentEvents(1)
	if len(recent) != 1 || recent[0].ID != "y" {
		t.Errorf("expected newest event 'y', got %+v", recent)
	}

	c.Reset()
	if c.GetStats().TotalUnits != 0 || len(c.GetRecentEvents(5)) != 0 {
		t.Error("expected reset to clear everything")
	}
}

func TestRecorder_CompleteFromResult(t *testing.T) {
	c := NewCollector()
	r := NewRecorder(c, ScopeFiles)

	b := r.StartAnalysis("unit-0").
		WithFiles([]input.Artifact{{Path: "A.cs", Content: "class A {}\n"}}).
		WithAnalyzers(6).
		WithCacheResult(CacheMiss, "abc")
	b.MarkStarted().MarkLoaded()
	b.Complete(&analysis.Result{
		NodesVisited: 7,
		Diagnostics: []diag.Diagnostic{
			{RuleID: "S1172"}, {RuleID: "S1172"}, {RuleID: "S927"},
		},
	})

	events := c.GetRecentEvents(1)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Scope != ScopeFiles || ev.Unit != "unit-0" || ev.FileCount != 1 || ev.LineCount != 2 {
		t.Errorf("unexpected input fields %+v", ev)
	}
	if ev.DiagnosticCount != 3 || ev.ByRule["S1172"] != 2 || ev.NodesVisited != 7 {
		t.Errorf("unexpected result fields %+v", ev)
	}
	if ev.CacheResult != CacheMiss || ev.CacheKey != "abc" || ev.AnalyzerCount != 6 {
		t.Errorf("unexpected cache fields %+v", ev)
	}
}

func TestRecorder_CompleteWithError(t *testing.T) {
	c := NewCollector()
	NewRecorder(c, ScopeDir).StartAnalysis("u").MarkStarted().CompleteWithError(errors.New("boom"))

	if c.GetStats().TotalErrors != 1 {
		t.Error("expected one error")
	}
	if ev := c.GetRecentEvents(1)[0]; ev.Error != "boom" || ev.CacheResult != CacheDisabled {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestRecorderFromContext(t *testing.T) {
	if RecorderFromContext(context.Background()) == nil {
		t.Fatal("expected a no-op recorder")
	}
	r := NewRecorder(NewCollector(), ScopeDir)
	if got := RecorderFromContext(WithRecorder(context.Background(), r)); got != r {
		t.Error("expected the stored recorder")
	}
}

func TestExporter_ExportJSON(t *testing.T) {
	c := NewCollector()
	c.Record(AnalysisEvent{ID: "e1", Timestamp: time.Now(), DiagnosticCount: 2, ByRule: map[string]int{"S927": 2}})

	path := filepath.Join(t.TempDir(), "nested", "metrics.json")
	if err := NewExporter(c).ExportJSON(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Stats.TotalDiagnostics != 2 || len(report.Events) != 1 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestExporter_WriteReportAndCSV(t *testing.T) {
	c := NewCollector()
	c.Record(AnalysisEvent{ID: "e1", Timestamp: time.Now(), Unit: "a,b", Error: `bad "quote"`, ByRule: map[string]int{"S107": 1}})
	e := NewExporter(c)

	var report bytes.Buffer
	if err := e.WriteReport(&report); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(report.String(), "Units:        1") || !strings.Contains(report.String(), "S107") {
		t.Errorf("unexpected report:\n%s", report.String())
	}

	var out bytes.Buffer
	if err := e.WriteCSV(&out); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and 1 row, got %d", len(rows))
	}
	if rows[1][3] != "a,b" || rows[1][15] != `bad "quote"` {
		t.Errorf("unexpected row %v", rows[1])
	}
}
