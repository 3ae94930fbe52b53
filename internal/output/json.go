package output

import (
	"encoding/json"
	"fmt"

	"github.com/chris-regnier/sharplint/internal/metrics"
	"github.com/chris-regnier/sharplint/internal/store"
)

// JSONFormatter renders the verdict plus a findings summary.
type JSONFormatter struct{}

type jsonOutput struct {
	RunID    string                  `json:"run_id,omitempty"`
	Decision string                  `json:"decision"`
	Reason   string                  `json:"reason"`
	Counts   map[string]int          `json:"counts"`
	Verdict  *store.Verdict          `json:"verdict"`
	Stats    *metrics.AggregateStats `json:"stats,omitempty"`
}

func (f *JSONFormatter) Format(result *AnalysisOutput) ([]byte, error) {
	if result == nil || result.Verdict == nil {
		return nil, fmt.Errorf("json formatter: verdict is required")
	}
	out := jsonOutput{
		RunID:    result.RunID,
		Decision: result.Verdict.Decision,
		Reason:   result.Verdict.Reason,
		Counts:   map[string]int{},
		Verdict:  result.Verdict,
		Stats:    result.Stats,
	}
	if result.SARIFLog != nil {
		out.Counts = result.SARIFLog.CountByLevel()
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json formatter: %w", err)
	}
	return append(data, '\n'), nil
}
