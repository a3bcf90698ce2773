// Package seedcmder provides the seed command for building the corpus database.
package seedcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/owlcave/wklp/pkg/config"
	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/embeddings"
	embeddingutils "github.com/owlcave/wklp/pkg/embeddings/utils"
	"github.com/owlcave/wklp/pkg/logger"
)

const seedLongDesc string = `Build the corpus database from a JSONL file.

Each line is one document: {"id": "...", "text": "...", "name": "...", "url": "..."}.
Documents without an id are assigned one. Every document is embedded through
the configured embedding backend and stored alongside its vector, so the
serve command can build its index without re-embedding.

Examples:
  wklp seed --input pages.jsonl
  wklp seed --input pages.jsonl --config ./conf`

const seedShortDesc string = "Build the corpus database"

type seedCommander struct {
	configDir string
	input     string
	debug     bool
	logger    *zap.Logger
}

// seedRecord is one JSONL input line.
type seedRecord struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: seedShortDesc,
		Long:  seedLongDesc,
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

	cmd.Flags().StringVarP(&cmder.input, "input", "i", "", "Path to the JSONL document file (required)")
	cmd.MarkFlagRequired("input")

	return cmd
}

func (c *seedCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}
	cfg := config.Load(v)

	f, err := os.Open(c.input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	store, err := corpus.Create(cfg.Corpus.Path, c.logger)
	if err != nil {
		return fmt.Errorf("creating corpus: %w", err)
	}
	defer store.Close()

	count, err := c.seed(ctx, f, embedder, store)
	if err != nil {
		return err
	}

	c.logger.Info("corpus seeded",
		zap.Int("documents", count),
		zap.String("path", cfg.Corpus.Path),
	)
	fmt.Printf("Seeded %d documents into %s\n", count, cfg.Corpus.Path)
	return nil
}

func (c *seedCommander) seed(ctx context.Context, r io.Reader, embedder embeddings.Embedder, store *corpus.Store) (int, error) {
	dec := json.NewDecoder(r)

	count := 0
	for {
		var rec seedRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return count, fmt.Errorf("decoding document %d: %w", count+1, err)
		}

		if strings.TrimSpace(rec.Text) == "" {
			c.logger.Warn("skipping document with empty text", zap.String("id", rec.ID))
			continue
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}

		emb, err := embedder.Embed(ctx, rec.Text)
		if err != nil {
			return count, fmt.Errorf("embedding document %s: %w", rec.ID, err)
		}

		doc := corpus.Document{
			ID:   rec.ID,
			Text: rec.Text,
			Meta: corpus.Meta{Name: rec.Name, URL: rec.URL},
		}
		if err := store.Put(ctx, doc, emb); err != nil {
			return count, fmt.Errorf("storing document %s: %w", rec.ID, err)
		}
		count++
	}

	return count, nil
}
