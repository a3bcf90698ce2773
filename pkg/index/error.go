package index

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimension is returned when a query vector does not match the
	// dimensionality of the indexed embeddings.
	ErrDimension = errors.New("embedding dimension mismatch")

	// ErrConnection is returned when a remote index backend cannot be reached.
	ErrConnection = errors.New("index connection failed")
)
