// Package corpus provides the document corpus consumed by the query service.
//
// The corpus is a flat, immutable set of documents with precomputed
// embeddings, persisted as a SQLite file by the seed command and loaded
// read-only at service startup. Nothing in the serving path mutates it.
package corpus

import "errors"

// Meta holds document provenance carried through to answers.
type Meta struct {
	// Name is a human-readable document title.
	Name string `json:"name"`

	// URL points back at the page the document was extracted from.
	URL string `json:"url"`
}

// Document represents a single indexed text with its provenance.
// Immutable once written to the corpus.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Meta Meta   `json:"meta"`
}

// Embedding pairs a document ID with its precomputed vector. Embeddings are
// computed offline by the seed command and never recomputed by the service.
type Embedding struct {
	DocID  string
	Vector []float32
}

var (
	// ErrLoad is returned when the corpus file is missing or corrupt.
	// A load failure at startup is fatal; the service must not advertise
	// readiness over a partially loaded corpus.
	ErrLoad = errors.New("corpus load failed")

	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("document not found")
)
