package rules

// DefaultRegistry returns a Registry pre-loaded with all built-in analyzers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(PartialParameterNames)
	r.MustRegister(MethodParameterUnused)
	r.MustRegister(ParameterCount)
	r.MustRegister(MethodLength)
	r.MustRegister(NestingDepth)
	r.MustRegister(EmptyCatch)
	return r
}
