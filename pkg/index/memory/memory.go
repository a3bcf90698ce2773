// Package memory provides an in-process index using brute-force cosine
// similarity. It is the default driver: the whole corpus fits in memory and
// an exact scan is fast enough at demo-corpus scale.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/index"
)

// Index implements index.Driver over embeddings loaded at construction.
// Read-only after New, so searches take no locks.
type Index struct {
	dimension int
	ids       []string
	vectors   [][]float32
	norms     []float32
	logger    *zap.Logger
}

// New builds an in-memory index from corpus embeddings. All vectors must
// share one dimension.
func New(embs []corpus.Embedding, logger *zap.Logger) (*Index, error) {
	idx := &Index{logger: logger}

	for _, e := range embs {
		if idx.dimension == 0 {
			idx.dimension = len(e.Vector)
		}
		if len(e.Vector) == 0 || len(e.Vector) != idx.dimension {
			return nil, fmt.Errorf("%w: document %s has dimension %d, want %d",
				index.ErrDimension, e.DocID, len(e.Vector), idx.dimension)
		}

		idx.ids = append(idx.ids, e.DocID)
		idx.vectors = append(idx.vectors, e.Vector)
		idx.norms = append(idx.norms, norm(e.Vector))
	}

	logger.Info("in-memory index built",
		zap.Int("documents", len(idx.ids)),
		zap.Int("dimensions", idx.dimension),
	)

	return idx, nil
}

// Search scans every indexed vector and returns the topK by cosine similarity.
func (idx *Index) Search(_ context.Context, embedding []float32, topK int) ([]index.Result, error) {
	if len(idx.ids) == 0 || topK <= 0 {
		return nil, nil
	}
	if len(embedding) != idx.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			index.ErrDimension, len(embedding), idx.dimension)
	}

	qNorm := norm(embedding)
	if qNorm == 0 {
		return nil, fmt.Errorf("%w: zero-magnitude query vector", index.ErrEmbedding)
	}

	results := make([]index.Result, len(idx.ids))
	for i, vec := range idx.vectors {
		score := float32(0)
		if idx.norms[i] > 0 {
			score = dot(vec, embedding) / (idx.norms[i] * qNorm)
		}
		results[i] = index.Result{DocID: idx.ids[i], Score: score}
	}

	// Ties fall back to document ID so results stay deterministic.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if topK < len(results) {
		results = results[:topK]
	}

	return results, nil
}

// Size returns the number of indexed embeddings.
func (idx *Index) Size() int {
	return len(idx.ids)
}

// Close is a no-op for the in-memory index.
func (idx *Index) Close() error {
	return nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// Ensure Index implements index.Driver
var _ index.Driver = (*Index)(nil)
