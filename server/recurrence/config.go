package recurrence

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// MaxOccurrences is the number of rule occurrences examined when computing
	// a span. A rule with more occurrences than that is treated as unbounded.
	MaxOccurrences int
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	MaxOccurrences: 1000,
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	MaxOccurrences: 100,
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	if config.MaxOccurrences <= 0 {
		config.MaxOccurrences = DefaultEngineConfig.MaxOccurrences
	}
	return &Engine{config: config}
}
