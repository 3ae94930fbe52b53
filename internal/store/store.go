// Package store persists SARIF logs and gate verdicts between runs.
package store

import (
	"context"
	"errors"

	"github.com/chris-regnier/sharplint/internal/sarif"
)

// ErrNotFound is returned when no stored run matches an id.
var ErrNotFound = errors.New("store: run not found")

// Decisions a gate can reach.
const (
	DecisionMerge  = "merge"
	DecisionReview = "review"
	DecisionReject = "reject"
)

// Verdict is the gate decision for one stored run.
type Verdict struct {
	Decision         string         `json:"decision"`
	Reason           string         `json:"reason"`
	RelevantFindings []sarif.Result `json:"relevant_findings,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Blocking reports whether the verdict should fail a CI job.
func (v *Verdict) Blocking() bool {
	return v.Decision == DecisionReject
}

type Store interface {
	WriteSARIF(ctx context.Context, doc *sarif.Log) (string, error)
	WriteVerdict(ctx context.Context, runID string, verdict *Verdict) error
	ReadSARIF(ctx context.Context, runID string) (*sarif.Log, error)
	ReadVerdict(ctx context.Context, runID string) (*Verdict, error)
	// List returns run ids, newest first.
	List(ctx context.Context) ([]string, error)
}

// Latest returns the id of the newest stored run.
func Latest(ctx context.Context, s Store) (string, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", ErrNotFound
	}
	return ids[0], nil
}
