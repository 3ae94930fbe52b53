package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
	"github.com/chris-regnier/sharplint/internal/input"
	"github.com/chris-regnier/sharplint/internal/syntax"
)

var ErrCacheMiss = errors.New("cache miss")

// schemaVersion is bumped whenever ResultEntry's encoding changes.
const schemaVersion uint16 = 1

// FileDigest is the content hash of one input file.
type FileDigest struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// Key identifies one unit's results: the same files analyzed by the same
// engine with the same enabled rules and options give the same diagnostics.
type Key struct {
	Files         []FileDigest `json:"files"`
	EnabledRules  []string     `json:"enabled_rules"`
	Options       string       `json:"options"`
	EngineVersion string       `json:"engine_version"`
}

// KeyFor builds the key of a unit.
func KeyFor(files []input.Artifact, analyzers []*analysis.Analyzer, opts analysis.Options, engineVersion string) Key {
	k := Key{EngineVersion: engineVersion}
	for _, f := range files {
		sum := sha256.Sum256([]byte(f.Content))
		k.Files = append(k.Files, FileDigest{Path: f.Path, SHA256: hex.EncodeToString(sum[:])})
	}
	for _, a := range analyzers {
		for _, d := range a.Descriptors {
			if opts.Enabled(d) {
				k.EnabledRules = append(k.EnabledRules, d.ID+"="+opts.Severity(d).String())
			}
		}
	}
	sort.Strings(k.EnabledRules)
	// map keys marshal sorted, so the encoding is deterministic
	if data, err := json.Marshal(opts.Rules); err == nil {
		k.Options = string(data)
	}
	return k
}

// Hash computes the deterministic hex digest of the key.
func (k Key) Hash() string {
	b, err := json.Marshal(k)
	if err != nil {
		panic("cache: marshaling Key: " + err.Error())
	}
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Location mirrors diag.Location without the syntax node, which does not
// outlive the tree it came from.
type Location struct {
	Path  string       `msgpack:"path"`
	Range syntax.Range `msgpack:"range"`
}

type Diagnostic struct {
	RuleID     string        `msgpack:"rule_id"`
	Message    string        `msgpack:"message"`
	Severity   diag.Severity `msgpack:"severity"`
	Location   Location      `msgpack:"location"`
	Additional []Location    `msgpack:"additional,omitempty"`
}

// ResultEntry is a cached unit result.
type ResultEntry struct {
	Schema       uint16       `msgpack:"schema"`
	KeyHash      string       `msgpack:"key"`
	Diagnostics  []Diagnostic `msgpack:"diagnostics"`
	NodesVisited int          `msgpack:"nodes_visited"`
	Timestamp    int64        `msgpack:"timestamp"`
}

// NewResultEntry captures the diagnostics of res under key.
func NewResultEntry(key Key, res *analysis.Result) *ResultEntry {
	e := &ResultEntry{Schema: schemaVersion, KeyHash: key.Hash(), NodesVisited: res.NodesVisited}
	for _, d := range res.Diagnostics {
		cd := Diagnostic{
			RuleID:   d.RuleID,
			Message:  d.Message,
			Severity: d.Severity,
			Location: Location{Path: d.Location.Path, Range: d.Location.Range},
		}
		for _, l := range d.Additional {
			cd.Additional = append(cd.Additional, Location{Path: l.Path, Range: l.Range})
		}
		e.Diagnostics = append(e.Diagnostics, cd)
	}
	return e
}

// Result rebuilds the analysis result. Locations carry no syntax node.
func (e *ResultEntry) Result() *analysis.Result {
	res := &analysis.Result{NodesVisited: e.NodesVisited}
	for _, cd := range e.Diagnostics {
		d := diag.Diagnostic{
			RuleID:   cd.RuleID,
			Message:  cd.Message,
			Severity: cd.Severity,
			Location: diag.Location{Path: cd.Location.Path, Range: cd.Location.Range},
		}
		for _, l := range cd.Additional {
			d.Additional = append(d.Additional, diag.Location{Path: l.Path, Range: l.Range})
		}
		res.Diagnostics = append(res.Diagnostics, d)
	}
	return res
}

// Manager stores unit results.
type Manager interface {
	Get(ctx context.Context, key Key) (*ResultEntry, error)
	Put(ctx context.Context, key Key, entry *ResultEntry) error
	Delete(ctx context.Context, key Key) error
}
