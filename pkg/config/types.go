package config

// Config represents the wklp service configuration. Values are resolved by
// viper from (highest to lowest) environment variables, an optional
// config.toml, and NewDefaultConfig().
type Config struct {
	API       APIConfig       `toml:"api"`
	Corpus    CorpusConfig    `toml:"corpus"`
	Cache     CacheConfig     `toml:"cache"`
	Index     IndexConfig     `toml:"index"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Reader    ReaderConfig    `toml:"reader"`
	Query     QueryConfig     `toml:"query"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`

	// Key is the shared secret checked against the api_key request header.
	// The default exists for local development only; deployments must set
	// WKLP_API_KEY.
	Key string `toml:"key,omitempty"`
}

// CorpusConfig holds the document corpus location.
type CorpusConfig struct {
	// Path is the corpus SQLite file produced by the seed command.
	Path string `toml:"path,omitempty"`
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	// Path is the cache SQLite file. Kept separate from the corpus
	// directory; the corpus is read-only, the cache is not.
	Path string `toml:"path,omitempty"`

	// MaxEntries bounds the cache size. Least-recently-used entries are
	// evicted once the bound is reached.
	MaxEntries int `toml:"max_entries,omitempty"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	// Provider selects the index driver: "memory", "sqlitevec" or "qdrant".
	Provider string `toml:"provider,omitempty"`

	// Target is the remote index address (qdrant host:port). Unused by the
	// in-process providers.
	Target string `toml:"target,omitempty"`

	// Collection is the remote collection name.
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds query embedding provider settings. The model must be
// the one the corpus was embedded with, or retrieval scores are meaningless.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// ReaderConfig holds answer extraction settings.
type ReaderConfig struct {
	Target string `toml:"target,omitempty"`
	Model  string `toml:"model,omitempty"`

	// Threshold is the confidence cutoff. Answers scoring below it are
	// dropped from responses entirely.
	Threshold float64 `toml:"threshold,omitempty"`
}

// QueryConfig holds request parameter defaults and bounds.
type QueryConfig struct {
	RetrieverTopK int `toml:"retriever_top_k,omitempty"`
	ReaderTopK    int `toml:"reader_top_k,omitempty"`
	MaxTopK       int `toml:"max_top_k,omitempty"`
}
