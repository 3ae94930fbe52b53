// Package evaluator turns a SARIF log into a gate verdict by evaluating Rego
// policies over it.
package evaluator

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/chris-regnier/sharplint/internal/sarif"
	"github.com/chris-regnier/sharplint/internal/store"
)

//go:embed default.rego
var defaultPolicy string

// Query is the rule every policy must define.
const Query = "data.sharplint.gate.decision"

type Evaluator struct {
	query    rego.PreparedEvalQuery
	policies []string
}

// NewEvaluator prepares the gate query. With an empty policyDir, or one with
// no .rego files, the built-in policy is used. Otherwise every .rego file in
// policyDir is loaded and the built-in policy is left out.
func NewEvaluator(ctx context.Context, policyDir string) (*Evaluator, error) {
	opts := []func(*rego.Rego){rego.Query(Query)}
	var names []string

	if policyDir != "" {
		entries, err := os.ReadDir(policyDir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading policy dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".rego") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(policyDir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("reading policy %s: %w", e.Name(), err)
			}
			opts = append(opts, rego.Module(e.Name(), string(data)))
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		opts = append(opts, rego.Module("default.rego", defaultPolicy))
		names = append(names, "default.rego")
	}
	sort.Strings(names)

	query, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing rego query: %w", err)
	}
	return &Evaluator{query: query, policies: names}, nil
}

// Policies lists the module names the evaluator loaded.
func (e *Evaluator) Policies() []string {
	return e.policies
}

func (e *Evaluator) Evaluate(ctx context.Context, log *sarif.Log) (*store.Verdict, error) {
	// round-trip through JSON so the policy sees the wire field names
	data, err := json.Marshal(log)
	if err != nil {
		return nil, err
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluating rego: %w", err)
	}

	decision := store.DecisionReview
	if len(results) > 0 && len(results[0].Expressions) > 0 {
		if d, ok := results[0].Expressions[0].Value.(string); ok {
			decision = d
		}
	}

	all := log.Results()
	var relevant []sarif.Result
	for _, r := range all {
		switch {
		case decision == store.DecisionReject && r.Level == "error":
			relevant = append(relevant, r)
		case decision == store.DecisionReview && (r.Level == "warning" || r.Level == "error"):
			relevant = append(relevant, r)
		}
	}

	counts := log.CountByLevel()
	return &store.Verdict{
		Decision:         decision,
		Reason:           fmt.Sprintf("%s: %d findings (%d error, %d warning, %d note)", decision, len(all), counts["error"], counts["warning"], counts["note"]),
		RelevantFindings: relevant,
		Metadata: map[string]any{
			"policies": e.policies,
		},
	}, nil
}
