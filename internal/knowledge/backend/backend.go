// Package backend opens the similarity search store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/order-chatbot/backend/internal/knowledge"
	"github.com/order-chatbot/backend/internal/storage/sqlite"
	"github.com/order-chatbot/backend/internal/vector/milvus"
	"github.com/order-chatbot/backend/internal/vector/neo4j"
	"github.com/order-chatbot/backend/pkg/config"
)

const (
	SQLite = "sqlite"
	Milvus = "milvus"
	Neo4j  = "neo4j"
)

// Open returns the configured knowledge store, prepared for search, and a
// function that releases it. The sqlite backend reuses sqliteClient and its
// release function does nothing.
func Open(ctx context.Context, cfg *config.Config, sqliteClient *sqlite.Client) (knowledge.Store, func(), error) {
	switch cfg.Knowledge.Backend {
	case Milvus:
		m, err := milvus.NewClient(ctx, cfg.Milvus.Endpoint, cfg.Milvus.APIKey, cfg.Milvus.CollectionName, cfg.Milvus.VectorDim)
		if err != nil {
			return nil, nil, err
		}
		if err := m.EnsureCollection(ctx); err != nil {
			m.Close()
			return nil, nil, err
		}
		return m, func() { m.Close() }, nil

	case Neo4j:
		n, err := neo4j.NewClient(ctx,
			cfg.Neo4j.URI,
			cfg.Neo4j.Username,
			cfg.Neo4j.Password,
			cfg.Neo4j.Database,
			cfg.Neo4j.IndexName,
			cfg.LLM.EmbeddingDim,
		)
		if err != nil {
			return nil, nil, err
		}
		if err := n.EnsureIndex(ctx); err != nil {
			n.Close(context.Background())
			return nil, nil, err
		}
		return n, func() { n.Close(context.Background()) }, nil

	case SQLite, "":
		if sqliteClient == nil {
			return nil, nil, fmt.Errorf("sqlite knowledge backend requires a sqlite client")
		}
		return sqliteClient, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown knowledge backend %q", cfg.Knowledge.Backend)
	}
}
