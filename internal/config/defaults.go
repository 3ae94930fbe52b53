package config

// SystemDefaults returns the built-in analysis, output, telemetry and
// language server settings. Rules keep the defaults their descriptors declare.
func SystemDefaults() *Config {
	cache := true
	return &Config{
		Rules: map[string]RuleConfig{},
		Analysis: AnalysisConfig{
			Exclude:  []string{"**/bin/**", "**/obj/**"},
			CacheDir: ".sharplint/cache",
			Cache:    &cache,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			SampleRate:  1.0,
			ServiceName: "sharplint",
		},
		LSP: LSPConfig{
			Debounce:      "300ms",
			ParallelFiles: 3,
			Watch:         []string{"**/*.cs"},
			Ignore:        []string{"**/bin/**", "**/obj/**", "**/.git/**", "**/.sharplint/**"},
		},
	}
}
