package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-chatbot/backend/internal/storage/sqlite"
	"github.com/order-chatbot/backend/pkg/config"
)

func TestOpenSQLite(t *testing.T) {
	client, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{Knowledge: config.KnowledgeConfig{Backend: SQLite}}
	store, release, err := Open(context.Background(), cfg, client)
	require.NoError(t, err)
	defer release()

	assert.Same(t, client, store)
}

func TestOpenRejects(t *testing.T) {
	cfg := &config.Config{Knowledge: config.KnowledgeConfig{Backend: "faiss"}}
	_, _, err := Open(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "faiss")

	cfg.Knowledge.Backend = SQLite
	_, _, err = Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestOpenNeo4jValidatesIndexName(t *testing.T) {
	cfg := &config.Config{
		Knowledge: config.KnowledgeConfig{Backend: Neo4j},
		Neo4j:     config.Neo4jConfig{URI: "bolt://localhost:7687", IndexName: "bad name;"},
		LLM:       config.LLMConfig{EmbeddingDim: 3},
	}
	_, _, err := Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}
