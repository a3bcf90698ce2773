package testutils

import (
	"context"
	"fmt"
	"strings"

	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/reader"
)

// MockReader is a test reader. When Spans is set, it "extracts" each span by
// locating it in the candidate documents, so offsets behave like a real
// backend's. Otherwise it returns Answers verbatim.
type MockReader struct {
	// Spans maps answer text to a confidence score.
	Spans map[string]float64

	// Answers is returned as-is when non-nil.
	Answers []reader.Answer

	// Threshold mirrors the service confidence cutoff.
	Threshold float64

	// FailExtract causes Extract to return an error
	FailExtract bool

	// Calls counts Extract invocations.
	Calls int
}

func NewMockReader() *MockReader {
	return &MockReader{
		Spans: make(map[string]float64),
	}
}

func (m *MockReader) Extract(_ context.Context, _ string, docs []corpus.Document, topK int) ([]reader.Answer, error) {
	m.Calls++

	if m.FailExtract {
		return nil, fmt.Errorf("%w: mock extraction failure", reader.ErrExtraction)
	}

	if m.Answers != nil {
		return m.Answers, nil
	}

	var cands []reader.Candidate
	for rank, doc := range docs {
		for span, score := range m.Spans {
			start := strings.Index(doc.Text, span)
			if start < 0 {
				continue
			}

			window, offsets, ok := reader.BuildContext(doc.Text, span, start)
			if !ok {
				continue
			}

			cands = append(cands, reader.Candidate{
				Answer: reader.Answer{
					Text:       span,
					Score:      score,
					DocumentID: doc.ID,
					Context:    window,
					Offsets:    offsets,
				},
				DocRank: rank,
			})
		}
	}

	return reader.Rank(cands, topK, m.Threshold), nil
}

func (m *MockReader) Close() error {
	return nil
}
