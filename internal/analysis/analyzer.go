// Package analysis runs analyzers over a compilation using staged callbacks.
//
// An Analyzer registers actions from its Initialize function. Actions live in
// one of three nested scopes:
//
//   - compilation: registered from Initialize or a compilation-start action;
//     compilation-end actions run after every tree has been walked.
//   - code block: registered from a code-block-start action; valid only while
//     the walk is inside that method, constructor, accessor or operator.
//   - node: fired for each node whose Kind was subscribed to.
//
// State shared between actions is whatever the registering closure captures,
// so every compilation and every code block gets fresh state.
package analysis

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/chris-regnier/sharplint/internal/diag"
)

// Descriptor is the immutable metadata of one rule.
type Descriptor struct {
	ID       string
	Title    string
	// MessageFormat is a fmt format string; report arguments fill its verbs
	// in order.
	MessageFormat    string
	Severity         diag.Severity
	EnabledByDefault bool
	Tags             []string
	// Remediation is the estimated fix cost, such as "5min".
	Remediation string
	Description string
}

// Message formats the descriptor's message with args.
func (d *Descriptor) Message(args ...any) string {
	if len(args) == 0 {
		return d.MessageFormat
	}
	return fmt.Sprintf(d.MessageFormat, args...)
}

// HasTag reports whether tag is among the descriptor's tags.
func (d *Descriptor) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Analyzer is a unit of analysis: a set of descriptors it may report and an
// Initialize function that registers its actions.
type Analyzer struct {
	Name        string
	Descriptors []*Descriptor
	Initialize  func(*InitContext)
}

var (
	ruleIDPattern = regexp.MustCompile(`^S[0-9]+$`)
	remediation   = regexp.MustCompile(`^[0-9]+(min|h|d)$`)
)

// Validate checks that the analyzer is well formed.
func (a *Analyzer) Validate() error {
	var errs []error
	if strings.TrimSpace(a.Name) == "" {
		errs = append(errs, errors.New("analyzer name is required"))
	}
	if a.Initialize == nil {
		errs = append(errs, fmt.Errorf("analyzer %q: Initialize is required", a.Name))
	}
	if len(a.Descriptors) == 0 {
		errs = append(errs, fmt.Errorf("analyzer %q: at least one descriptor is required", a.Name))
	}
	for _, d := range a.Descriptors {
		if !ruleIDPattern.MatchString(d.ID) {
			errs = append(errs, fmt.Errorf("analyzer %q: invalid rule id %q", a.Name, d.ID))
		}
		if d.MessageFormat == "" {
			errs = append(errs, fmt.Errorf("rule %s: message format is required", d.ID))
		}
		if d.Remediation != "" && !remediation.MatchString(d.Remediation) {
			errs = append(errs, fmt.Errorf("rule %s: invalid remediation %q", d.ID, d.Remediation))
		}
	}
	return errors.Join(errs...)
}

func (a *Analyzer) declares(d *Descriptor) bool {
	for _, own := range a.Descriptors {
		if own == d {
			return true
		}
	}
	return false
}
