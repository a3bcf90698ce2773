// Package index provides interfaces and implementations for nearest-neighbor
// search over the corpus embeddings.
package index

import "context"

// Result represents a search hit with its similarity score.
type Result struct {
	// DocID identifies the matching corpus document.
	DocID string

	// Score is the similarity score (higher = closer). Scores from
	// different drivers are monotonically comparable within a driver but
	// not across drivers.
	Score float32
}

// Driver performs nearest-neighbor lookups against a fixed set of
// embeddings. Implementations are built once at startup and must be safe
// for concurrent readers; nothing mutates an index after construction.
type Driver interface {
	// Search returns the topK most similar documents to the given
	// embedding, ordered by descending score. The result length is
	// min(topK, corpus size).
	Search(ctx context.Context, embedding []float32, topK int) ([]Result, error)

	// Size returns the number of indexed embeddings.
	Size() int

	// Close releases any resources held by the driver.
	Close() error
}
