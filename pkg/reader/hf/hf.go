// Package hf implements pkg/reader's Reader against a Hugging Face style
// question-answering inference endpoint (one span per context, with score
// and character offsets). Works with api-inference.huggingface.co as well as
// self-hosted text inference containers exposing the same surface.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/reader"
)

const (
	// DefaultModel is the default extractive QA model.
	DefaultModel = "deepset/roberta-base-squad2"

	// DefaultBaseURL is the default inference server URL.
	DefaultBaseURL = "http://localhost:8500"
)

// Reader wraps a question-answering inference endpoint.
type Reader struct {
	baseURL    string
	model      string
	threshold  float64
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the inference reader.
type Config struct {
	// BaseURL is the inference server URL. Defaults to DefaultBaseURL.
	BaseURL string

	// Model is the QA model path. Defaults to DefaultModel.
	Model string

	// Threshold is the confidence cutoff below which answers are dropped.
	Threshold float64
}

// qaRequest is the request body for the question-answering endpoint.
type qaRequest struct {
	Inputs qaInputs `json:"inputs"`
}

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// qaResponse is the single best span for the supplied context.
type qaResponse struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

// NewReader creates a reader backed by a QA inference endpoint.
func NewReader(cfg Config, logger *zap.Logger) (*Reader, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Reader{
		baseURL:   baseURL,
		model:     model,
		threshold: cfg.Threshold,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}, nil
}

// Extract asks the backend for the best span in each candidate document and
// returns the globally ranked answers.
func (r *Reader) Extract(ctx context.Context, query string, docs []corpus.Document, topK int) ([]reader.Answer, error) {
	cands := make([]reader.Candidate, 0, len(docs))

	for rank, doc := range docs {
		span, err := r.extractOne(ctx, query, doc.Text)
		if err != nil {
			return nil, err
		}

		// SQuAD2-style models answer "" when the context holds nothing.
		if span.Answer == "" {
			continue
		}

		window, offsets, ok := reader.BuildContext(doc.Text, span.Answer, span.Start)
		if !ok {
			r.logger.Warn("answer span not found in document, dropping",
				zap.String("document_id", doc.ID),
				zap.String("answer", span.Answer),
			)
			continue
		}

		cands = append(cands, reader.Candidate{
			Answer: reader.Answer{
				Text:       span.Answer,
				Score:      clamp(span.Score),
				DocumentID: doc.ID,
				Context:    window,
				Offsets:    offsets,
			},
			DocRank: rank,
		})
	}

	return reader.Rank(cands, topK, r.threshold), nil
}

// extractOne runs one question/context pair through the backend.
func (r *Reader) extractOne(ctx context.Context, question, docText string) (*qaResponse, error) {
	reqBody := qaRequest{
		Inputs: qaInputs{
			Question: question,
			Context:  docText,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", reader.ErrExtraction, err)
	}

	url := fmt.Sprintf("%s/models/%s", r.baseURL, r.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", reader.ErrExtraction, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", reader.ErrExtraction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: reader returned status %d: %s", reader.ErrExtraction, resp.StatusCode, string(body))
	}

	var qa qaResponse
	if err := json.NewDecoder(resp.Body).Decode(&qa); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", reader.ErrExtraction, err)
	}

	return &qa, nil
}

// clamp keeps backend scores inside [0,1]; some servers round just past 1.
func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Close releases resources held by the reader.
func (r *Reader) Close() error {
	return nil
}

// Ensure Reader implements reader.Reader
var _ reader.Reader = (*Reader)(nil)
