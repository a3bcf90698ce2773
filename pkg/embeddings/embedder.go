// Package embeddings
package embeddings

import "context"

// Embedder provides text embedding capabilities. The serving path only ever
// embeds query text; corpus embeddings are computed offline by the seed
// command with the same model.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
