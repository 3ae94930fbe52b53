// Package diag defines diagnostics and the sink rules report them into.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chris-regnier/sharplint/internal/syntax"
)

// Severity ranks how serious a finding is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityMinor
	SeverityMajor
	SeverityCritical
	SeverityBlocker
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityMinor:
		return "minor"
	case SeverityMajor:
		return "major"
	case SeverityCritical:
		return "critical"
	case SeverityBlocker:
		return "blocker"
	default:
		return "unknown"
	}
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SeverityInfo, nil
	case "minor":
		return SeverityMinor, nil
	case "major":
		return SeverityMajor, nil
	case "critical":
		return SeverityCritical, nil
	case "blocker":
		return SeverityBlocker, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// Level maps the severity onto a SARIF result level.
func (s Severity) Level() string {
	switch {
	case s >= SeverityCritical:
		return "error"
	case s == SeverityMajor:
		return "warning"
	default:
		return "note"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Location is a span in a named file. Node, when set, is the syntax node the
// span was taken from; it is used to decide generated-code suppression.
type Location struct {
	Path  string       `json:"path"`
	Range syntax.Range `json:"range"`
	Node  *syntax.Node `json:"-"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Range.Start.Line, l.Range.Start.Column)
}

// NodeLocation spans the whole node.
func NodeLocation(path string, n *syntax.Node) Location {
	return Location{Path: path, Range: n.Range, Node: n}
}

// IdentifierLocation spans the node's identifier token, falling back to the
// whole node when it has none.
func IdentifierLocation(path string, n *syntax.Node) Location {
	if n.Identifier == nil {
		return NodeLocation(path, n)
	}
	return Location{Path: path, Range: n.Identifier.Range, Node: n}
}

// Diagnostic is one finding. It is never modified after it is reported.
type Diagnostic struct {
	RuleID     string     `json:"rule_id"`
	Message    string     `json:"message"`
	Severity   Severity   `json:"severity"`
	Location   Location   `json:"location"`
	Additional []Location `json:"additional_locations,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s [%s] %s", d.Location, d.Severity, d.RuleID, d.Message)
}

// SortDiagnostics orders diagnostics by file, line, column and rule id. The
// sort is stable so equal keys keep report order.
func SortDiagnostics(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i].Location, ds[j].Location
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Range.Start.Line != b.Range.Start.Line {
			return a.Range.Start.Line < b.Range.Start.Line
		}
		if a.Range.Start.Column != b.Range.Start.Column {
			return a.Range.Start.Column < b.Range.Start.Column
		}
		return ds[i].RuleID < ds[j].RuleID
	})
}
