package metrics

import (
	"testing"
	"time"
)

func BenchmarkCollector_Record(b *testing.B) {
	c := NewCollector()
	event := AnalysisEvent{
		ID:               "bench",
		Timestamp:        time.Now(),
		Scope:            ScopeDir,
		FileCount:        4,
		AnalysisDuration: 3 * time.Millisecond,
		NodesVisited:     2000,
		DiagnosticCount:  5,
		ByRule:           map[string]int{"S1172": 3, "S107": 2},
		CacheResult:      CacheMiss,
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Record(event)
	}
}

func BenchmarkCollector_GetStats(b *testing.B) {
	c := NewCollector()
	for i := 0; i < 1000; i++ {
		c.Record(AnalysisEvent{
			Timestamp:        time.Now(),
			AnalysisDuration: time.Duration(i) * time.Microsecond,
			NodesVisited:     i,
		})
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.GetStats()
	}
}
