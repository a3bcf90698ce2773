// Package qdrant provides an index driver backed by a remote Qdrant
// collection. The collection is (re)populated from the corpus embeddings at
// startup, so Qdrant acts purely as a search accelerator; the corpus file
// remains the source of truth.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/index"
)

const (
	// DefaultCollectionName is the default collection for corpus embeddings.
	DefaultCollectionName = "wklp"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is the Qdrant gRPC address as "host:port".
	// The port defaults to DefaultPort when omitted.
	Target string

	// Collection is the collection name to use.
	// Defaults to DefaultCollectionName if empty.
	Collection string
}

// Driver implements index.Driver using Qdrant's gRPC API.
type Driver struct {
	client     *qdrantclient.Client
	collection string
	dimension  int
	size       int
	logger     *zap.Logger
}

// New connects to Qdrant, ensures the collection exists with a cosine
// distance schema, and upserts the corpus embeddings.
func New(ctx context.Context, c Config, embs []corpus.Embedding, logger *zap.Logger) (*Driver, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("qdrant target is required")
	}

	collection := c.Collection
	if collection == "" {
		collection = DefaultCollectionName
	}

	dimension := 0
	for _, e := range embs {
		if dimension == 0 {
			dimension = len(e.Vector)
		}
		if len(e.Vector) == 0 || len(e.Vector) != dimension {
			return nil, fmt.Errorf("%w: document %s has dimension %d, want %d",
				index.ErrDimension, e.DocID, len(e.Vector), dimension)
		}
	}
	if dimension == 0 {
		return nil, fmt.Errorf("qdrant index requires at least one embedding")
	}

	host, port, err := splitTarget(c.Target)
	if err != nil {
		return nil, err
	}

	client, err := qdrantclient.NewClient(&qdrantclient.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", index.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection: %v", index.ErrConnection, err)
	}

	if !exists {
		err = client.CreateCollection(ctx, &qdrantclient.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrantclient.NewVectorsConfig(&qdrantclient.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrantclient.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: creating collection: %v", index.ErrConnection, err)
		}
	}

	points := make([]*qdrantclient.PointStruct, len(embs))
	for i, e := range embs {
		points[i] = &qdrantclient.PointStruct{
			// Point ids are positional; the stable document ID lives in
			// the payload, so repeated startups overwrite in place.
			Id:      qdrantclient.NewIDNum(uint64(i)),
			Vectors: qdrantclient.NewVectors(e.Vector...),
			Payload: qdrantclient.NewValueMap(map[string]any{
				"doc_id": e.DocID,
			}),
		}
	}

	if _, err := client.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrantclient.PtrOf(true),
		Points:         points,
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: upserting embeddings: %v", index.ErrConnection, err)
	}

	logger.Info("qdrant index ready",
		zap.String("target", c.Target),
		zap.String("collection", collection),
		zap.Int("documents", len(embs)),
		zap.Int("dimensions", dimension),
	)

	return &Driver{
		client:     client,
		collection: collection,
		dimension:  dimension,
		size:       len(embs),
		logger:     logger,
	}, nil
}

func splitTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// Bare host, use the default gRPC port.
		return target, DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}

	return host, port, nil
}

// Search finds the topK most similar documents to the given embedding.
func (d *Driver) Search(ctx context.Context, embedding []float32, topK int) ([]index.Result, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(embedding) != d.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			index.ErrDimension, len(embedding), d.dimension)
	}

	points, err := d.client.Query(ctx, &qdrantclient.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrantclient.NewQuery(embedding...),
		Limit:          qdrantclient.PtrOf(uint64(topK)),
		WithPayload:    qdrantclient.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying: %v", index.ErrConnection, err)
	}

	results := make([]index.Result, 0, len(points))
	for _, p := range points {
		docID := p.Payload["doc_id"].GetStringValue()
		if docID == "" {
			d.logger.Warn("qdrant point without doc_id payload, skipping")
			continue
		}
		results = append(results, index.Result{
			DocID: docID,
			Score: p.Score,
		})
	}

	d.logger.Debug("queried qdrant",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Size returns the number of indexed embeddings.
func (d *Driver) Size() int {
	return d.size
}

// Close releases the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Ensure Driver implements index.Driver
var _ index.Driver = (*Driver)(nil)
