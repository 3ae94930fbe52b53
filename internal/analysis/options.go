package analysis

import "github.com/chris-regnier/sharplint/internal/diag"

// RuleConfig overrides the defaults of one rule. Nil fields keep the
// descriptor's defaults.
type RuleConfig struct {
	Enabled  *bool
	Severity *diag.Severity
	Params   map[string]any
}

// Options carries per-rule configuration into a run.
type Options struct {
	Rules map[string]RuleConfig
}

// Enabled reports whether diagnostics of d are produced.
func (o Options) Enabled(d *Descriptor) bool {
	if rc, ok := o.Rules[d.ID]; ok && rc.Enabled != nil {
		return *rc.Enabled
	}
	return d.EnabledByDefault
}

// Severity returns the effective severity of d.
func (o Options) Severity(d *Descriptor) diag.Severity {
	if rc, ok := o.Rules[d.ID]; ok && rc.Severity != nil {
		return *rc.Severity
	}
	return d.Severity
}

// Params returns the rule parameters configured for id, possibly nil.
func (o Options) Params(id string) map[string]any {
	return o.Rules[id].Params
}

// AnyEnabled reports whether at least one descriptor of a is enabled.
func (o Options) AnyEnabled(a *Analyzer) bool {
	for _, d := range a.Descriptors {
		if o.Enabled(d) {
			return true
		}
	}
	return false
}

// IntParam reads an integer parameter, accepting the numeric types YAML and
// JSON decoders produce.
func IntParam(params map[string]any, key string, fallback int) int {
	v, ok := params[key]
	if !ok {
		return fallback
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case uint64:
		return int(val)
	case float64:
		return int(val)
	default:
		return fallback
	}
}
