// Package pipeline sequences retrieval and reading into a single answer
// operation, owning parameter validation and the error surface callers see.
//
// The pipeline is pure with respect to the index: identical inputs against
// an unchanged index always produce the same result, which is what makes
// memoizing its output safe.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/reader"
)

var (
	// ErrInvalidQuery is returned for blank query text or out-of-range
	// top_k parameters, before any inference work happens.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInference wraps any retrieval or reading backend failure so
	// callers need not know which stage failed.
	ErrInference = errors.New("inference failed")
)

// DocumentRetriever selects candidate documents for a query.
// *retriever.Retriever satisfies this.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, queryText string, topK int) ([]corpus.Document, error)
}

// Query is one answer request.
type Query struct {
	Text          string
	RetrieverTopK int
	ReaderTopK    int
}

// Result is the ordered answer list for a query. Answers is never nil;
// an empty list means no span cleared the confidence threshold.
type Result struct {
	Query   string          `json:"query"`
	Answers []reader.Answer `json:"answers"`
}

// Pipeline drives retrieve-then-read.
type Pipeline struct {
	retriever DocumentRetriever
	reader    reader.Reader
	maxTopK   int
	logger    *zap.Logger
}

// New creates a Pipeline. maxTopK bounds both top_k parameters.
func New(ret DocumentRetriever, rd reader.Reader, maxTopK int, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		retriever: ret,
		reader:    rd,
		maxTopK:   maxTopK,
		logger:    logger,
	}
}

// Validate checks query parameters without running any inference.
// Called by the HTTP layer before the cache so invalid requests never
// consume a cache slot or a backend call.
func (p *Pipeline) Validate(q Query) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: query text must not be blank", ErrInvalidQuery)
	}
	if q.RetrieverTopK < 1 {
		return fmt.Errorf("%w: retriever_top_k must be a positive integer", ErrInvalidQuery)
	}
	if q.ReaderTopK < 1 {
		return fmt.Errorf("%w: reader_top_k must be a positive integer", ErrInvalidQuery)
	}
	if q.RetrieverTopK > p.maxTopK || q.ReaderTopK > p.maxTopK {
		return fmt.Errorf("%w: top_k must not exceed %d", ErrInvalidQuery, p.maxTopK)
	}
	if q.ReaderTopK > q.RetrieverTopK {
		return fmt.Errorf("%w: reader_top_k must not exceed retriever_top_k", ErrInvalidQuery)
	}
	return nil
}

// Answer validates the query, retrieves candidates and extracts answers.
func (p *Pipeline) Answer(ctx context.Context, q Query) (*Result, error) {
	if err := p.Validate(q); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(q.Text)
	start := time.Now()

	docs, err := p.retriever.Retrieve(ctx, text, q.RetrieverTopK)
	if err != nil {
		p.logger.Error("retrieval failed",
			zap.String("query", text),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: retrieval: %v", ErrInference, err)
	}

	answers, err := p.reader.Extract(ctx, text, docs, q.ReaderTopK)
	if err != nil {
		p.logger.Error("extraction failed",
			zap.String("query", text),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: reading: %v", ErrInference, err)
	}

	if answers == nil {
		answers = []reader.Answer{}
	}

	p.logger.Info("inference complete",
		zap.String("query", text),
		zap.Int("candidates", len(docs)),
		zap.Int("answers", len(answers)),
		zap.Duration("inference_time", time.Since(start)),
	)

	return &Result{Query: text, Answers: answers}, nil
}
