package metrics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// Exporter writes collected metrics out.
type Exporter struct {
	collector *Collector
}

func NewExporter(collector *Collector) *Exporter {
	return &Exporter{collector: collector}
}

// Report is the document ExportJSON writes.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Stats       AggregateStats  `json:"stats"`
	Events      []AnalysisEvent `json:"events"`
}

// ExportJSON writes stats and recent events to path.
func (e *Exporter) ExportJSON(path string) error {
	report := Report{
		GeneratedAt: time.Now(),
		Stats:       e.collector.GetStats(),
		Events:      e.collector.GetRecentEvents(1000),
	}
	return writeJSON(path, report)
}

// ExportStatsJSON writes only aggregate stats to path.
func (e *Exporter) ExportStatsJSON(path string) error {
	return writeJSON(path, e.collector.GetStats())
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteReport writes a human-readable summary.
func (e *Exporter) WriteReport(w io.Writer) error {
	stats := e.collector.GetStats()

	fmt.Fprintf(w, "sharplint analysis metrics\n")
	fmt.Fprintf(w, "Window: %s to %s\n\n",
		stats.WindowStart.Format(time.RFC3339),
		stats.WindowEnd.Format(time.RFC3339))

	fmt.Fprintf(w, "=== Summary ===\n")
	fmt.Fprintf(w, "Units:        %d\n", stats.TotalUnits)
	fmt.Fprintf(w, "Errors:       %d (%.1f%%)\n", stats.TotalErrors,
		safePercent(float64(stats.TotalErrors), float64(stats.TotalUnits)))
	fmt.Fprintf(w, "Files:        %d\n", stats.TotalFiles)
	fmt.Fprintf(w, "Nodes:        %d\n", stats.TotalNodes)
	fmt.Fprintf(w, "Diagnostics:  %d\n", stats.TotalDiagnostics)
	fmt.Fprintf(w, "Faults:       %d\n\n", stats.TotalFaults)

	fmt.Fprintf(w, "=== Latency ===\n")
	fmt.Fprintf(w, "Average:   %.1fms\n", stats.AvgAnalysisDurationMs)
	fmt.Fprintf(w, "P50:       %.1fms\n", stats.P50AnalysisDurationMs)
	fmt.Fprintf(w, "P95:       %.1fms\n", stats.P95AnalysisDurationMs)
	fmt.Fprintf(w, "Max:       %.1fms\n", stats.MaxAnalysisDurationMs)
	fmt.Fprintf(w, "Avg Load:  %.1fms\n", stats.AvgLoadDurationMs)
	fmt.Fprintf(w, "Nodes/s:   %.0f\n\n", stats.NodesPerSecond)

	fmt.Fprintf(w, "=== Cache ===\n")
	fmt.Fprintf(w, "Hits:     %d\n", stats.CacheHits)
	fmt.Fprintf(w, "Misses:   %d\n", stats.CacheMisses)
	fmt.Fprintf(w, "Hit Rate: %.1f%%\n", stats.CacheHitRate*100)

	if len(stats.ByRule) > 0 {
		fmt.Fprintf(w, "\n=== By Rule ===\n")
		rules := make([]string, 0, len(stats.ByRule))
		for id := range stats.ByRule {
			rules = append(rules, id)
		}
		sort.Strings(rules)
		for _, id := range rules {
			fmt.Fprintf(w, "%-8s %d\n", id, stats.ByRule[id])
		}
	}
	return nil
}

// WriteCSV writes retained events as CSV.
func (e *Exporter) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "timestamp", "scope", "unit", "file_count", "byte_count", "line_count",
		"queue_duration_ms", "load_duration_ms", "analysis_duration_ms", "total_duration_ms",
		"nodes_visited", "diagnostic_count", "fault_count", "cache_result", "error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, ev := range e.collector.GetRecentEvents(e.collector.maxEvents) {
		row := []string{
			ev.ID,
			ev.Timestamp.Format(time.RFC3339),
			string(ev.Scope),
			ev.Unit,
			strconv.Itoa(ev.FileCount),
			strconv.Itoa(ev.ByteCount),
			strconv.Itoa(ev.LineCount),
			strconv.FormatInt(ev.QueueDuration.Milliseconds(), 10),
			strconv.FormatInt(ev.LoadDuration.Milliseconds(), 10),
			strconv.FormatInt(ev.AnalysisDuration.Milliseconds(), 10),
			strconv.FormatInt(ev.TotalDuration.Milliseconds(), 10),
			strconv.Itoa(ev.NodesVisited),
			strconv.Itoa(ev.DiagnosticCount),
			strconv.Itoa(ev.FaultCount),
			string(ev.CacheResult),
			ev.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func safePercent(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return (numerator / denominator) * 100
}
