// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/owlcave/wklp/api"
	"github.com/owlcave/wklp/pkg/config"
	"github.com/owlcave/wklp/pkg/corpus"
	embeddingutils "github.com/owlcave/wklp/pkg/embeddings/utils"
	indexutils "github.com/owlcave/wklp/pkg/index/utils"
	"github.com/owlcave/wklp/pkg/logger"
	"github.com/owlcave/wklp/pkg/pipeline"
	"github.com/owlcave/wklp/pkg/qcache"
	"github.com/owlcave/wklp/pkg/reader/hf"
	"github.com/owlcave/wklp/pkg/retriever"
)

type ServeCommander struct {
	configDir string
	debug     bool
	logger    *zap.Logger
}

const serveLongDesc string = `Run the WKLP API server.

The server starts listening immediately and reports readiness on
GET /initialized once the corpus, index, embedder and reader have
finished loading. Queries return 503 until then.`

const serveShortDesc string = "Run the WKLP API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %v", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}
	cfg := config.Load(v)

	server := api.NewServer(api.Config{
		ListenAddr:           cfg.API.Listen,
		Key:                  cfg.API.Key,
		DefaultRetrieverTopK: cfg.Query.RetrieverTopK,
		DefaultReaderTopK:    cfg.Query.ReaderTopK,
	}, nil, nil, c.logger)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	// Load the heavyweight components in the background so the readiness
	// endpoint is reachable from the start. A load failure is fatal: the
	// process must not serve from a partially loaded index.
	go func() {
		if err := c.load(ctx, cfg, server); err != nil {
			errChan <- fmt.Errorf("loading failed: %w", err)
		}
	}()

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		server.Shutdown()
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

// load builds the pipeline and cache, then flips the server to ready.
func (c *ServeCommander) load(ctx context.Context, cfg *config.Config, server *api.Server) error {
	store, err := corpus.Open(cfg.Corpus.Path, c.logger)
	if err != nil {
		return fmt.Errorf("opening corpus: %w", err)
	}

	embs, err := store.Embeddings(ctx)
	if err != nil {
		store.Close()
		return fmt.Errorf("loading embeddings: %w", err)
	}

	driver, err := indexutils.NewDriver(ctx, &indexutils.NewDriverOpts{
		ProviderType: cfg.Index.Provider,
		Target:       cfg.Index.Target,
		Collection:   cfg.Index.Collection,
		Embeddings:   embs,
		Logger:       c.logger,
	})
	if err != nil {
		store.Close()
		return fmt.Errorf("building index: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		driver.Close()
		store.Close()
		return fmt.Errorf("creating embedder: %w", err)
	}

	rd, err := hf.NewReader(hf.Config{
		BaseURL:   cfg.Reader.Target,
		Model:     cfg.Reader.Model,
		Threshold: cfg.Reader.Threshold,
	}, c.logger)
	if err != nil {
		embedder.Close()
		driver.Close()
		store.Close()
		return fmt.Errorf("creating reader: %w", err)
	}

	cache, err := qcache.Open(cfg.Cache.Path, cfg.Cache.MaxEntries, c.logger)
	if err != nil {
		rd.Close()
		embedder.Close()
		driver.Close()
		store.Close()
		return fmt.Errorf("opening query cache: %w", err)
	}

	ret := retriever.New(embedder, driver, store, c.logger)
	p := pipeline.New(ret, rd, cfg.Query.MaxTopK, c.logger)

	server.Attach(p, cache)
	server.SetReady()

	c.logger.Info("pipeline loaded",
		zap.String("index_provider", cfg.Index.Provider),
		zap.Int("indexed_documents", driver.Size()),
		zap.String("reader_model", cfg.Reader.Model),
	)
	return nil
}
