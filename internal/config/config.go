// Package config loads sharplint's tiered YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/diag"
)

// FileName is the name of a config file in both the machine and the
// project tier.
const FileName = "sharplint.yaml"

// RuleConfig overrides one rule. Unset fields keep the rule's defaults.
type RuleConfig struct {
	Enabled  *bool          `yaml:"enabled,omitempty"`
	Severity string         `yaml:"severity,omitempty"`
	Options  map[string]any `yaml:"options,omitempty"`
}

// AnalysisConfig controls how files are collected and analyzed.
type AnalysisConfig struct {
	// Workers bounds concurrent compilation units. Zero means one per CPU.
	Workers  int      `yaml:"workers,omitempty"`
	Exclude  []string `yaml:"exclude,omitempty"`
	CacheDir string   `yaml:"cache_dir,omitempty"`
	Cache    *bool    `yaml:"cache,omitempty"`
}

// CacheEnabled reports whether results are cached. Caching is on unless
// turned off explicitly.
func (a AnalysisConfig) CacheEnabled() bool {
	return a.Cache == nil || *a.Cache
}

// OutputConfig selects how results are printed.
type OutputConfig struct {
	// Format is one of json, sarif, markdown, pretty. Empty picks pretty on a
	// terminal and json otherwise.
	Format string `yaml:"format,omitempty"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool              `yaml:"enabled"`
	Endpoint       string            `yaml:"endpoint,omitempty"`
	Protocol       string            `yaml:"protocol,omitempty"`
	Insecure       bool              `yaml:"insecure,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	SampleRate     float64           `yaml:"sample_rate,omitempty"`
	ServiceName    string            `yaml:"service_name,omitempty"`
	ServiceVersion string            `yaml:"service_version,omitempty"`
}

// LSPConfig tunes the language server.
type LSPConfig struct {
	// Debounce is a Go duration such as "300ms".
	Debounce      string   `yaml:"debounce,omitempty"`
	ParallelFiles int      `yaml:"parallel_files,omitempty"`
	Watch         []string `yaml:"watch,omitempty"`
	Ignore        []string `yaml:"ignore,omitempty"`
}

// Config holds the full sharplint configuration.
type Config struct {
	Rules     map[string]RuleConfig `yaml:"rules,omitempty"`
	Analysis  AnalysisConfig        `yaml:"analysis,omitempty"`
	Output    OutputConfig          `yaml:"output,omitempty"`
	Telemetry TelemetryConfig       `yaml:"telemetry,omitempty"`
	LSP       LSPConfig             `yaml:"lsp,omitempty"`
}

var formats = map[string]bool{"": true, "json": true, "sarif": true, "markdown": true, "pretty": true}

// Validate checks that the configuration is valid and ready to use.
func (c *Config) Validate() error {
	var errs []error
	for id, rc := range c.Rules {
		if rc.Severity == "" {
			continue
		}
		if _, err := diag.ParseSeverity(rc.Severity); err != nil {
			errs = append(errs, fmt.Errorf("rules.%s.severity: %w", id, err))
		}
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must not be negative, got %d", c.Analysis.Workers))
	}
	if !formats[c.Output.Format] {
		errs = append(errs, fmt.Errorf("output.format must be json, sarif, markdown or pretty, got %q", c.Output.Format))
	}
	if p := c.Telemetry.Protocol; p != "" && p != "grpc" && p != "http" {
		errs = append(errs, fmt.Errorf("telemetry.protocol must be 'grpc' or 'http', got %q", p))
	}
	if r := c.Telemetry.SampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_rate must be within [0, 1], got %v", r))
	}
	if d := c.LSP.Debounce; d != "" {
		if _, err := time.ParseDuration(d); err != nil {
			errs = append(errs, fmt.Errorf("lsp.debounce: %w", err))
		}
	}
	if c.LSP.ParallelFiles < 0 {
		errs = append(errs, fmt.Errorf("lsp.parallel_files must not be negative, got %d", c.LSP.ParallelFiles))
	}
	return errors.Join(errs...)
}

// AnalysisOptions converts the rules section into driver options.
func (c *Config) AnalysisOptions() (analysis.Options, error) {
	opts := analysis.Options{Rules: make(map[string]analysis.RuleConfig, len(c.Rules))}
	for id, rc := range c.Rules {
		out := analysis.RuleConfig{Enabled: rc.Enabled, Params: rc.Options}
		if rc.Severity != "" {
			sev, err := diag.ParseSeverity(rc.Severity)
			if err != nil {
				return analysis.Options{}, fmt.Errorf("rule %s: %w", id, err)
			}
			out.Severity = &sev
		}
		opts.Rules[id] = out
	}
	return opts, nil
}

// MergeConfigs merges configs in order of increasing precedence.
// Later configs override earlier ones. Set fields override; rule options are
// merged key by key.
func MergeConfigs(configs ...*Config) *Config {
	result := &Config{
		Rules: make(map[string]RuleConfig),
	}

	for _, cfg := range configs {
		if cfg == nil {
			continue
		}

		for id, rule := range cfg.Rules {
			existing := result.Rules[id]
			if rule.Enabled != nil {
				existing.Enabled = rule.Enabled
			}
			if rule.Severity != "" {
				existing.Severity = rule.Severity
			}
			if len(rule.Options) > 0 {
				merged := make(map[string]any, len(existing.Options)+len(rule.Options))
				for k, v := range existing.Options {
					merged[k] = v
				}
				for k, v := range rule.Options {
					merged[k] = v
				}
				existing.Options = merged
			}
			result.Rules[id] = existing
		}

		if cfg.Analysis.Workers != 0 {
			result.Analysis.Workers = cfg.Analysis.Workers
		}
		// Exclude: if specified, override completely
		if len(cfg.Analysis.Exclude) > 0 {
			result.Analysis.Exclude = cfg.Analysis.Exclude
		}
		if cfg.Analysis.CacheDir != "" {
			result.Analysis.CacheDir = cfg.Analysis.CacheDir
		}
		if cfg.Analysis.Cache != nil {
			result.Analysis.Cache = cfg.Analysis.Cache
		}

		if cfg.Output.Format != "" {
			result.Output.Format = cfg.Output.Format
		}

		mergeTelemetry(&result.Telemetry, cfg.Telemetry)

		if cfg.LSP.Debounce != "" {
			result.LSP.Debounce = cfg.LSP.Debounce
		}
		if cfg.LSP.ParallelFiles != 0 {
			result.LSP.ParallelFiles = cfg.LSP.ParallelFiles
		}
		if len(cfg.LSP.Watch) > 0 {
			result.LSP.Watch = cfg.LSP.Watch
		}
		if len(cfg.LSP.Ignore) > 0 {
			result.LSP.Ignore = cfg.LSP.Ignore
		}
	}

	return result
}

func mergeTelemetry(dst *TelemetryConfig, src TelemetryConfig) {
	if src.Enabled {
		dst.Enabled = true
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.Protocol != "" {
		dst.Protocol = src.Protocol
	}
	if src.Insecure {
		dst.Insecure = true
	}
	if len(src.Headers) > 0 {
		dst.Headers = src.Headers
	}
	if src.SampleRate != 0 {
		dst.SampleRate = src.SampleRate
	}
	if src.ServiceName != "" {
		dst.ServiceName = src.ServiceName
	}
	if src.ServiceVersion != "" {
		dst.ServiceVersion = src.ServiceVersion
	}
}

// LoadFromFile reads a YAML config file. Returns nil, nil if the file doesn't exist.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadTiered loads system defaults, then machine config, then project config,
// and merges them in order of increasing precedence.
func LoadTiered(machinePath, projectPath string) (*Config, error) {
	system := SystemDefaults()

	machine, err := LoadFromFile(machinePath)
	if err != nil {
		return nil, fmt.Errorf("loading machine config: %w", err)
	}

	project, err := LoadFromFile(projectPath)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return MergeConfigs(system, machine, project), nil
}

// MachinePath is the per-user config file, or "" when there is no home
// directory.
func MachinePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sharplint", FileName)
}

// ProjectPath is the config file of the project rooted at root.
func ProjectPath(root string) string {
	return filepath.Join(root, ".sharplint", FileName)
}
