package testutils

import (
	"context"

	"github.com/owlcave/wklp/pkg/corpus"
)

// MockDocumentGetter hydrates documents from an in-memory map, preserving
// the requested ordering like the real corpus store.
type MockDocumentGetter struct {
	Docs map[string]corpus.Document
}

func NewMockDocumentGetter(docs ...corpus.Document) *MockDocumentGetter {
	m := &MockDocumentGetter{Docs: make(map[string]corpus.Document)}
	for _, doc := range docs {
		m.Docs[doc.ID] = doc
	}
	return m
}

func (m *MockDocumentGetter) Get(_ context.Context, ids []string) ([]corpus.Document, error) {
	docs := make([]corpus.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := m.Docs[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}
