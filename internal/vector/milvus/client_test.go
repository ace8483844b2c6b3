package milvus

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-chatbot/backend/internal/storage/models"
)

func TestDocumentAt(t *testing.T) {
	fields := client.ResultSet{
		entity.NewColumnVarChar("doc_id", []string{"returns", "shipping"}),
		entity.NewColumnVarChar("title", []string{"Return Policy", "Shipping"}),
		entity.NewColumnVarChar("category", []string{"policy", "shipping"}),
		entity.NewColumnVarChar("content", []string{"30 days", "3-5 days"}),
		entity.NewColumnVarChar("tags", []string{`["returns"]`, "null"}),
		entity.NewColumnInt64("created_at", []int64{100, 200}),
		entity.NewColumnInt64("updated_at", []int64{150, 250}),
	}

	doc, err := documentAt(fields, 0)
	require.NoError(t, err)
	assert.Equal(t, "returns", doc.ID)
	assert.Equal(t, "Return Policy", doc.Title)
	assert.Equal(t, []string{"returns"}, doc.Tags)
	assert.Equal(t, int64(150), doc.UpdatedAt.Unix())

	doc, err = documentAt(fields, 1)
	require.NoError(t, err)
	assert.Equal(t, "shipping", doc.Category)
	assert.Nil(t, doc.Tags)
}

func TestDocumentAtMissingField(t *testing.T) {
	fields := client.ResultSet{entity.NewColumnVarChar("doc_id", []string{"x"})}
	_, err := documentAt(fields, 0)
	assert.Error(t, err)
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	m := newClient(nil, "knowledge_base", 4)
	err := m.Upsert(context.Background(), []models.KnowledgeDocument{{ID: "a", Embedding: []float32{1, 2}}})
	assert.ErrorContains(t, err, "dimension")
}

func TestSimilaritySearchWithoutK(t *testing.T) {
	m := newClient(nil, "knowledge_base", 4)
	docs, err := m.SimilaritySearch(context.Background(), []float32{1, 2, 3, 4}, 0, "")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
