package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads config.toml from configDir
// (if present), and binds environment variables with the WKLP_ prefix.
//
// Config precedence (highest to lowest):
//  1. Environment variables (WKLP_API_KEY, WKLP_CORPUS_PATH, etc.)
//  2. config.toml file values
//  3. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Environment variables: WKLP_API_LISTEN, WKLP_READER_THRESHOLD, etc.
	v.SetEnvPrefix("WKLP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load resolves the full Config from the given viper instance.
func Load(v *viper.Viper) *Config {
	return &Config{
		API: APIConfig{
			Listen: v.GetString("api.listen"),
			Key:    v.GetString("api.key"),
		},
		Corpus: CorpusConfig{
			Path: v.GetString("corpus.path"),
		},
		Cache: CacheConfig{
			Path:       v.GetString("cache.path"),
			MaxEntries: v.GetInt("cache.max_entries"),
		},
		Index: IndexConfig{
			Provider:   v.GetString("index.provider"),
			Target:     v.GetString("index.target"),
			Collection: v.GetString("index.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		Reader: ReaderConfig{
			Target:    v.GetString("reader.target"),
			Model:     v.GetString("reader.model"),
			Threshold: v.GetFloat64("reader.threshold"),
		},
		Query: QueryConfig{
			RetrieverTopK: v.GetInt("query.retriever_top_k"),
			ReaderTopK:    v.GetInt("query.reader_top_k"),
			MaxTopK:       v.GetInt("query.max_top_k"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	// API
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.key", d.API.Key)

	// Corpus and cache
	v.SetDefault("corpus.path", d.Corpus.Path)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)

	// Index
	v.SetDefault("index.provider", d.Index.Provider)
	v.SetDefault("index.target", d.Index.Target)
	v.SetDefault("index.collection", d.Index.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Reader
	v.SetDefault("reader.target", d.Reader.Target)
	v.SetDefault("reader.model", d.Reader.Model)
	v.SetDefault("reader.threshold", d.Reader.Threshold)

	// Query parameter defaults and bounds
	v.SetDefault("query.retriever_top_k", d.Query.RetrieverTopK)
	v.SetDefault("query.reader_top_k", d.Query.ReaderTopK)
	v.SetDefault("query.max_top_k", d.Query.MaxTopK)
}
