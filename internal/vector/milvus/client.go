package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/logger"
	"github.com/order-chatbot/backend/pkg/retry"
)

var outputFields = []string{"doc_id", "title", "category", "content", "tags", "created_at", "updated_at"}

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
	retryConfig    retry.Config
	now            func() time.Time
}

func NewClient(ctx context.Context, endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address: endpoint,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return newClient(c, collectionName, vectorDim), nil
}

func newClient(c client.Client, collectionName string, vectorDim int) *Client {
	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
		retryConfig:    retryConfig,
		now:            time.Now,
	}
}

func (m *Client) Close() error {
	return m.client.Close()
}

// EnsureCollection creates, indexes and loads the knowledge collection when it
// does not exist yet.
func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return m.client.LoadCollection(ctx, m.collectionName, false)
	}

	varchar := func(name string, maxLen int, pk bool) *entity.Field {
		return &entity.Field{
			Name:       name,
			DataType:   entity.FieldTypeVarChar,
			PrimaryKey: pk,
			TypeParams: map[string]string{"max_length": fmt.Sprintf("%d", maxLen)},
		}
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Customer service knowledge base",
		Fields: []*entity.Field{
			varchar("doc_id", 128, true),
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			varchar("title", 512, false),
			varchar("category", 128, false),
			varchar("content", 8192, false),
			varchar("tags", 1024, false),
			{Name: "created_at", DataType: entity.FieldTypeInt64},
			{Name: "updated_at", DataType: entity.FieldTypeInt64},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 128)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))
	return nil
}

func (m *Client) Upsert(ctx context.Context, docs []models.KnowledgeDocument) error {
	if len(docs) == 0 {
		return nil
	}

	n := len(docs)
	ids := make([]string, n)
	embeddings := make([][]float32, n)
	titles := make([]string, n)
	categories := make([]string, n)
	contents := make([]string, n)
	tags := make([]string, n)
	created := make([]int64, n)
	updated := make([]int64, n)

	now := m.now()
	for i, doc := range docs {
		if len(doc.Embedding) != m.vectorDim {
			return fmt.Errorf("document %s has dimension %d, collection expects %d", doc.ID, len(doc.Embedding), m.vectorDim)
		}

		tagJSON, err := json.Marshal(doc.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags for %s: %w", doc.ID, err)
		}

		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		ids[i] = doc.ID
		embeddings[i] = doc.Embedding
		titles[i] = doc.Title
		categories[i] = doc.Category
		contents[i] = doc.Content
		tags[i] = string(tagJSON)
		created[i] = createdAt.Unix()
		updated[i] = now.Unix()
	}

	_, err := m.client.Upsert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("doc_id", ids),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("category", categories),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("tags", tags),
		entity.NewColumnInt64("created_at", created),
		entity.NewColumnInt64("updated_at", updated),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert knowledge documents: %w", err)
	}

	if err := m.client.Flush(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Knowledge documents upserted into Milvus", zap.Int("count", n))
	return nil
}

// SimilaritySearch runs an L2 search; Milvus returns hits nearest first.
func (m *Client) SimilaritySearch(ctx context.Context, query []float32, k int, category string) ([]models.KnowledgeDocument, error) {
	if k <= 0 {
		return nil, nil
	}

	expr := ""
	if category != "" {
		expr = fmt.Sprintf("category == %q", category)
	}

	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	results, err := retry.DoWithResult(ctx, m.retryConfig, func() ([]client.SearchResult, error) {
		return m.client.Search(
			ctx,
			m.collectionName,
			[]string{},
			expr,
			outputFields,
			[]entity.Vector{entity.FloatVector(query)},
			"embedding",
			entity.L2,
			k,
			sp,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var docs []models.KnowledgeDocument
	for _, sr := range results {
		for i := 0; i < sr.ResultCount; i++ {
			doc, err := documentAt(sr.Fields, i)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", k),
		zap.Int("results", len(docs)),
		zap.String("filter", expr),
	)

	return docs, nil
}

func documentAt(fields client.ResultSet, i int) (models.KnowledgeDocument, error) {
	value := func(name string) (interface{}, error) {
		col := fields.GetColumn(name)
		if col == nil {
			return nil, fmt.Errorf("search result is missing %s", name)
		}
		return col.Get(i)
	}
	str := func(name string) (string, error) {
		v, err := value(name)
		if err != nil {
			return "", err
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("field %s is %T, want string", name, v)
		}
		return s, nil
	}
	num := func(name string) (int64, error) {
		v, err := value(name)
		if err != nil {
			return 0, err
		}
		n, ok := v.(int64)
		if !ok {
			return 0, fmt.Errorf("field %s is %T, want int64", name, v)
		}
		return n, nil
	}

	var (
		doc  models.KnowledgeDocument
		tags string
		err  error
	)
	if doc.ID, err = str("doc_id"); err != nil {
		return doc, err
	}
	if doc.Title, err = str("title"); err != nil {
		return doc, err
	}
	if doc.Category, err = str("category"); err != nil {
		return doc, err
	}
	if doc.Content, err = str("content"); err != nil {
		return doc, err
	}
	if tags, err = str("tags"); err != nil {
		return doc, err
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &doc.Tags); err != nil {
			return doc, fmt.Errorf("failed to unmarshal tags for %s: %w", doc.ID, err)
		}
	}

	created, err := num("created_at")
	if err != nil {
		return doc, err
	}
	updated, err := num("updated_at")
	if err != nil {
		return doc, err
	}
	doc.CreatedAt = time.Unix(created, 0)
	doc.UpdatedAt = time.Unix(updated, 0)

	return doc, nil
}
