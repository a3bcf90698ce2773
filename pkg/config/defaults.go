package config

const (
	defaultListen = ":8000"

	// defaultAPIKey is for local development only and must be overridden
	// via WKLP_API_KEY in any real deployment.
	defaultAPIKey = "mywonderfulapikey"

	defaultCorpusPath      = "data/index/corpus.db"
	defaultCachePath       = "data/cache/queries.db"
	defaultCacheMaxEntries = 4096

	defaultIndexProvider   = "memory"
	defaultIndexCollection = "wklp"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultReaderTarget    = "http://localhost:8500"
	defaultReaderModel     = "deepset/roberta-base-squad2"
	defaultReaderThreshold = 0.15

	defaultRetrieverTopK = 7
	defaultReaderTopK    = 5
	defaultMaxTopK       = 50
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Listen: defaultListen,
			Key:    defaultAPIKey,
		},
		Corpus: CorpusConfig{
			Path: defaultCorpusPath,
		},
		Cache: CacheConfig{
			Path:       defaultCachePath,
			MaxEntries: defaultCacheMaxEntries,
		},
		Index: IndexConfig{
			Provider:   defaultIndexProvider,
			Collection: defaultIndexCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Reader: ReaderConfig{
			Target:    defaultReaderTarget,
			Model:     defaultReaderModel,
			Threshold: defaultReaderThreshold,
		},
		Query: QueryConfig{
			RetrieverTopK: defaultRetrieverTopK,
			ReaderTopK:    defaultReaderTopK,
			MaxTopK:       defaultMaxTopK,
		},
	}
}
