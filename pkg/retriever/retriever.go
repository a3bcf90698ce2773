// Package retriever maps a query string to the most similar corpus
// documents: it embeds the query with the same model the corpus was built
// with, asks the index for nearest neighbors, then hydrates the matching
// documents in rank order.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/embeddings"
	"github.com/owlcave/wklp/pkg/index"
)

// DocumentGetter hydrates documents by ID, in the requested order.
// *corpus.Store satisfies this.
type DocumentGetter interface {
	Get(ctx context.Context, ids []string) ([]corpus.Document, error)
}

// Retriever performs embed-then-search retrieval against a fixed index.
// Deterministic: the same query text against the same index yields the same
// ordered documents.
type Retriever struct {
	embedder embeddings.Embedder
	driver   index.Driver
	docs     DocumentGetter
	logger   *zap.Logger
}

// New creates a Retriever over the given embedder, index driver and
// document source.
func New(embedder embeddings.Embedder, driver index.Driver, docs DocumentGetter, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		driver:   driver,
		docs:     docs,
		logger:   logger,
	}
}

// Retrieve returns the topK documents most similar to the query text,
// ordered by descending similarity.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, topK int) ([]corpus.Document, error) {
	// Blank queries are rejected upstream by the pipeline; this guard is
	// for direct callers.
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: empty query text", index.ErrEmbedding)
	}

	embedding, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.driver.Search(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.DocID
	}

	docs, err := r.docs.Get(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrating documents: %w", err)
	}

	r.logger.Debug("retrieved documents",
		zap.Int("requested", topK),
		zap.Int("returned", len(docs)),
	)

	return docs, nil
}
