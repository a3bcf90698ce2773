package api

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// requireAPIKey rejects requests whose api_key header does not match the
// configured secret. It runs before any cache or inference work so
// unauthenticated callers never trigger computation. Hashing both sides
// keeps the comparison constant-time regardless of key length.
func (s *Server) requireAPIKey(c *fiber.Ctx) error {
	presented := sha256.Sum256([]byte(c.Get("api_key")))
	expected := sha256.Sum256([]byte(s.config.Key))

	if subtle.ConstantTimeCompare(presented[:], expected[:]) != 1 {
		s.logger.Warn("rejected request with invalid api key",
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error: "invalid or missing api_key header",
		})
	}

	return c.Next()
}
