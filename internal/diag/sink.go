package diag

import "github.com/chris-regnier/sharplint/internal/syntax"

// GeneratedChecker reports whether a node lies in generated code.
type GeneratedChecker interface {
	IsGenerated(n *syntax.Node) bool
}

// Sink collects diagnostics for one analysis run. It keeps report order and
// does not deduplicate. A Sink is not safe for concurrent use.
type Sink struct {
	items []Diagnostic
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Report appends d unconditionally.
func (s *Sink) Report(d Diagnostic) {
	s.items = append(s.items, d)
}

// ReportIfNotGenerated appends d unless the node at its primary location is
// generated code. It reports whether d was kept.
func (s *Sink) ReportIfNotGenerated(d Diagnostic, checker GeneratedChecker) bool {
	if checker != nil && d.Location.Node != nil && checker.IsGenerated(d.Location.Node) {
		return false
	}
	s.Report(d)
	return true
}

// Len returns the number of diagnostics collected so far.
func (s *Sink) Len() int { return len(s.items) }

// Drain returns the collected diagnostics in report order and empties the sink.
func (s *Sink) Drain() []Diagnostic {
	out := s.items
	s.items = nil
	return out
}
