// Package output renders sharplint results as JSON, SARIF, Markdown or
// styled terminal text.
package output

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/chris-regnier/sharplint/internal/metrics"
	"github.com/chris-regnier/sharplint/internal/sarif"
	"github.com/chris-regnier/sharplint/internal/store"
)

// Formatter renders an AnalysisOutput in one format.
type Formatter interface {
	Format(result *AnalysisOutput) ([]byte, error)
}

// AnalysisOutput holds everything one analyze run produced.
type AnalysisOutput struct {
	RunID    string
	Verdict  *store.Verdict
	SARIFLog *sarif.Log
	Stats    *metrics.AggregateStats // nil if not collected
}

// Format names accepted by NewFormatter.
const (
	FormatJSON     = "json"
	FormatSARIF    = "sarif"
	FormatMarkdown = "markdown"
	FormatPretty   = "pretty"
)

// ResolveFormat returns flagValue when set, otherwise "pretty" for a
// terminal and "json" when output is piped.
func ResolveFormat(flagValue string, stdoutIsTTY bool) string {
	if flagValue != "" {
		return flagValue
	}
	if stdoutIsTTY {
		return FormatPretty
	}
	return FormatJSON
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func NewFormatter(format string) (Formatter, error) {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatSARIF:
		return &SARIFFormatter{}, nil
	case FormatMarkdown:
		return &MarkdownFormatter{}, nil
	case FormatPretty:
		return &PrettyFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %q (supported: json, sarif, markdown, pretty)", format)
	}
}

// resultFilePath is the URI of a result's primary location.
func resultFilePath(r sarif.Result) string {
	if len(r.Locations) > 0 {
		return r.Locations[0].PhysicalLocation.ArtifactLocation.URI
	}
	return ""
}

func resultRegion(r sarif.Result) sarif.Region {
	if len(r.Locations) > 0 {
		return r.Locations[0].PhysicalLocation.Region
	}
	return sarif.Region{}
}

// severityPriority orders levels error, warning, note.
func severityPriority(level string) int {
	switch level {
	case "error":
		return 0
	case "warning":
		return 1
	case "note":
		return 2
	default:
		return 3
	}
}
