package store

// engineConfig is what the expression engines share: a compiled program cache
// and a private copy of the helper registry.
type engineConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

func (cfg *engineConfig) useCache(cache ProgramCache) {
	cfg.cache = cache
}

// useRegistry clones registry so helpers registered later do not change
// programs that were already compiled.
func (cfg *engineConfig) useRegistry(registry *FunctionRegistry) {
	if registry == nil {
		return
	}
	cfg.registry = registry.Clone()
}

func (cfg *engineConfig) cached(key string) (any, bool) {
	if cfg.cache == nil {
		return nil, false
	}
	return cfg.cache.Get(key)
}

func (cfg *engineConfig) remember(key string, program any) {
	if cfg.cache != nil {
		cfg.cache.Set(key, program)
	}
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*engineConfig)

// JSWithProgramCache shares compiled goja programs through cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *engineConfig) { cfg.useCache(cache) }
}

// JSWithFunctionRegistry exposes the registry helpers as JS globals and
// through call(name, args...).
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *engineConfig) { cfg.useRegistry(registry) }
}
