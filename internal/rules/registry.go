// Package rules holds the built-in C# analyzers and the registry that
// serves them to the driver.
package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chris-regnier/sharplint/internal/analysis"
)

// Registry holds a set of named analyzers and indexes their descriptors by
// rule id.
type Registry struct {
	analyzers map[string]*analysis.Analyzer
	rules     map[string]*analysis.Descriptor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		analyzers: make(map[string]*analysis.Analyzer),
		rules:     make(map[string]*analysis.Descriptor),
	}
}

// Register validates a and adds it. Analyzer names and rule ids must be unique.
func (r *Registry) Register(a *analysis.Analyzer) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if _, dup := r.analyzers[a.Name]; dup {
		return fmt.Errorf("analyzer %q already registered", a.Name)
	}
	for _, d := range a.Descriptors {
		if _, dup := r.rules[d.ID]; dup {
			return fmt.Errorf("rule %s already registered", d.ID)
		}
	}
	r.analyzers[a.Name] = a
	for _, d := range a.Descriptors {
		r.rules[d.ID] = d
	}
	return nil
}

// MustRegister is Register that panics on error, for built-in analyzers.
func (r *Registry) MustRegister(a *analysis.Analyzer) {
	if err := r.Register(a); err != nil {
		panic(err)
	}
}

// Get retrieves an analyzer by name.
func (r *Registry) Get(name string) (*analysis.Analyzer, bool) {
	a, ok := r.analyzers[name]
	return a, ok
}

// Names returns all registered analyzer names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.analyzers))
	for name := range r.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Analyzers returns the registered analyzers ordered by name.
func (r *Registry) Analyzers() []*analysis.Analyzer {
	out := make([]*analysis.Analyzer, 0, len(r.analyzers))
	for _, name := range r.Names() {
		out = append(out, r.analyzers[name])
	}
	return out
}

// Descriptor looks up a rule by id.
func (r *Registry) Descriptor(id string) (*analysis.Descriptor, bool) {
	d, ok := r.rules[id]
	return d, ok
}

// Descriptors returns every rule ordered by numeric id.
func (r *Registry) Descriptors() []*analysis.Descriptor {
	out := make([]*analysis.Descriptor, 0, len(r.rules))
	for _, d := range r.rules {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return lessRuleID(out[i].ID, out[j].ID) })
	return out
}

// lessRuleID orders "S107" before "S1172".
func lessRuleID(a, b string) bool {
	na, errA := strconv.Atoi(strings.TrimPrefix(a, "S"))
	nb, errB := strconv.Atoi(strings.TrimPrefix(b, "S"))
	if errA != nil || errB != nil || na == nb {
		return a < b
	}
	return na < nb
}
