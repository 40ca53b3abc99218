package driven

// ConfigStore provides access to application configuration.
// Implementations may use files, environment variables, or remote
// configuration services.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	GetInt(key string) int

	// GetFloat retrieves a float configuration value.
	GetFloat(key string) float64

	// GetBool retrieves a boolean configuration value.
	GetBool(key string) bool

	// GetStringSlice retrieves a string slice configuration value.
	GetStringSlice(key string) []string

	// Set stores a configuration value.
	Set(key string, value any) error

	// Save persists the configuration.
	Save() error

	// Load reads the configuration from the backing source.
	Load() error
}

// Well-known configuration keys.
const (
	ConfigKeyEmbeddingProvider = "embedding.provider"
	ConfigKeyEmbeddingModel    = "embedding.model"
	ConfigKeyEmbeddingAPIKey   = "embedding.api_key"
	ConfigKeyModelProvider     = "model.provider"
	ConfigKeyModelName         = "model.name"
	ConfigKeyModelAPIKey       = "model.api_key"
	ConfigKeyModelFallback     = "model.fallback"
	ConfigKeyContextBudget     = "retrieval.context_budget"
	ConfigKeyTopK              = "retrieval.top_k"
	ConfigKeySimilarityFloor   = "retrieval.similarity_floor"
	ConfigKeyDedupCeiling      = "corpus.dedup_ceiling"
	ConfigKeyWorkers           = "analysis.workers"
)
