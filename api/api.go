package api

import (
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/owlcave/wklp/pkg/pipeline"
	"github.com/owlcave/wklp/pkg/qcache"
)

// ErrorResponse is the JSON body for all non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for the question answering pipeline.
type Server struct {
	config   Config
	pipeline *pipeline.Pipeline
	cache    *qcache.Cache
	ready    atomic.Bool
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The pipeline and cache are injected so the caller controls how the
// heavyweight components are built and loaded.
func NewServer(config Config, p *pipeline.Pipeline, cache *qcache.Cache, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		pipeline: p,
		cache:    cache,
		logger:   logger,
		app:      app,
	}

	app.Get("/initialized", s.requireAPIKey, s.handleInitialized)
	app.Post("/query", s.requireAPIKey, s.handleQuery)

	return s
}

// Attach installs the loaded pipeline and cache. The server can start
// listening before loading finishes; handlers only touch these fields once
// SetReady has been called, so attaching from the loading goroutine is safe.
func (s *Server) Attach(p *pipeline.Pipeline, cache *qcache.Cache) {
	s.pipeline = p
	s.cache = cache
}

// SetReady marks the server as finished loading. Until this is called,
// /query responds with 503 and /initialized reports false.
func (s *Server) SetReady() {
	s.ready.Store(true)
	s.logger.Info("server ready to accept queries")
}

// Ready reports whether the server has finished loading.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
