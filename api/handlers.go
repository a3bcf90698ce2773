package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/owlcave/wklp/pkg/pipeline"
	"github.com/owlcave/wklp/pkg/qcache"
)

// QueryParams are the optional tuning knobs of a query. Pointers so an
// omitted field takes the configured default while an explicit zero stays
// zero and fails validation.
type QueryParams struct {
	RetrieverTopK *int `json:"retriever_top_k"`
	ReaderTopK    *int `json:"reader_top_k"`
}

// QueryRequest is the POST /query body.
type QueryRequest struct {
	Query  string      `json:"query"`
	Params QueryParams `json:"params"`
}

// handleInitialized reports whether startup loading has completed.
func (s *Server) handleInitialized(c *fiber.Ctx) error {
	return c.JSON(s.ready.Load())
}

// handleQuery answers a question against the loaded corpus. Results are
// served from the cache when the same query has been answered before.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	if !s.ready.Load() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "service is still loading",
		})
	}

	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "request body must be valid JSON",
		})
	}

	retrieverTopK := s.config.DefaultRetrieverTopK
	if req.Params.RetrieverTopK != nil {
		retrieverTopK = *req.Params.RetrieverTopK
	}
	readerTopK := s.config.DefaultReaderTopK
	if req.Params.ReaderTopK != nil {
		readerTopK = *req.Params.ReaderTopK
	}

	q := pipeline.Query{
		Text:          req.Query,
		RetrieverTopK: retrieverTopK,
		ReaderTopK:    readerTopK,
	}
	if err := s.pipeline.Validate(q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	key := qcache.Key(q.Text, q.RetrieverTopK, q.ReaderTopK)
	payload, err := s.cache.GetOrCompute(c.Context(), key, func(ctx context.Context) ([]byte, error) {
		result, err := s.pipeline.Answer(ctx, q)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidQuery) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: err.Error(),
			})
		}
		s.logger.Error("query failed",
			zap.String("query", req.Query),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "inference failed",
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}
