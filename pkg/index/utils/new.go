// Package indexutils is the index utility package
package indexutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/index"
	"github.com/owlcave/wklp/pkg/index/memory"
	"github.com/owlcave/wklp/pkg/index/qdrant"
	"github.com/owlcave/wklp/pkg/index/sqlitevec"
)

type NewDriverOpts struct {
	ProviderType string
	Target       string
	Collection   string
	Embeddings   []corpus.Embedding
	Logger       *zap.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (index.Driver, error) {
	switch o.ProviderType {
	case "memory":
		return memory.New(o.Embeddings, o.Logger)
	case "sqlitevec":
		return sqlitevec.New(o.Embeddings, o.Logger)
	case "qdrant":
		return qdrant.New(ctx, qdrant.Config{
			Target:     o.Target,
			Collection: o.Collection,
		}, o.Embeddings, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported index provider: %s", o.ProviderType)
	}
}
