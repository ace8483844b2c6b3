package neo4j

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/circuitbreaker"
	"github.com/order-chatbot/backend/pkg/logger"
	"github.com/order-chatbot/backend/pkg/retry"
)

// categoryOverfetch widens the vector query when a category filter is applied
// after the index lookup.
const categoryOverfetch = 4

var indexNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	indexName   string
	vectorDim   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
	now         func() time.Time
}

func NewClient(ctx context.Context, uri, username, password, database, indexName string, vectorDim int) (*Client, error) {
	if !indexNamePattern.MatchString(indexName) {
		return nil, fmt.Errorf("invalid vector index name %q", indexName)
	}

	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		OpenTimeout:      20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri), zap.String("index", indexName))

	return &Client{
		driver:      driver,
		database:    database,
		indexName:   indexName,
		vectorDim:   vectorDim,
		cb:          cb,
		retryConfig: retryConfig,
		now:         time.Now,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// EnsureIndex creates the uniqueness constraint and the cosine vector index
// over KnowledgeDocument embeddings.
func (c *Client) EnsureIndex(ctx context.Context) error {
	statements := []string{
		`CREATE CONSTRAINT knowledge_document_id IF NOT EXISTS FOR (d:KnowledgeDocument) REQUIRE d.id IS UNIQUE`,
		fmt.Sprintf("CREATE VECTOR INDEX %s IF NOT EXISTS FOR (d:KnowledgeDocument) ON (d.embedding) "+
			"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}",
			c.indexName, c.vectorDim),
	}

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		for _, stmt := range statements {
			result, err := session.Run(ctx, stmt, nil)
			if err != nil {
				return fmt.Errorf("failed to run schema statement: %w", err)
			}
			if _, err := result.Consume(ctx); err != nil {
				return fmt.Errorf("failed to apply schema statement: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Neo4j vector index ready", zap.String("index", c.indexName))
	return nil
}

func (c *Client) Upsert(ctx context.Context, docs []models.KnowledgeDocument) error {
	if len(docs) == 0 {
		return nil
	}

	now := c.now().Unix()
	rows := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) != c.vectorDim {
			return fmt.Errorf("document %s has dimension %d, index expects %d", doc.ID, len(doc.Embedding), c.vectorDim)
		}
		rows = append(rows, documentParams(doc, now))
	}

	query := `
		UNWIND $docs AS doc
		MERGE (d:KnowledgeDocument {id: doc.id})
		ON CREATE SET d.created_at = doc.created_at
		SET d.title = doc.title,
		    d.category = doc.category,
		    d.content = doc.content,
		    d.tags = doc.tags,
		    d.embedding = doc.embedding,
		    d.updated_at = doc.updated_at
	`

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		result, err := session.Run(ctx, query, map[string]interface{}{"docs": rows})
		if err != nil {
			return fmt.Errorf("failed to upsert knowledge documents: %w", err)
		}
		_, err = result.Consume(ctx)
		return err
	})
	if err != nil {
		return err
	}

	logger.Info("Knowledge documents upserted into Neo4j", zap.Int("count", len(docs)))
	return nil
}

// SimilaritySearch queries the vector index. Scores are cosine similarities,
// so ordering by score descending yields nearest first.
func (c *Client) SimilaritySearch(ctx context.Context, query []float32, k int, category string) ([]models.KnowledgeDocument, error) {
	if k <= 0 {
		return nil, nil
	}

	candidates := k
	if category != "" {
		candidates = k * categoryOverfetch
	}

	cypher := `
		CALL db.index.vector.queryNodes($index, $candidates, $embedding)
		YIELD node, score
		WHERE $category = '' OR node.category = $category
		RETURN node.id AS id, node.title AS title, node.category AS category,
		       node.content AS content, node.tags AS tags,
		       node.created_at AS created_at, node.updated_at AS updated_at
		ORDER BY score DESC
		LIMIT $k
	`

	var docs []models.KnowledgeDocument

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		docs = docs[:0]

		result, err := session.Run(ctx, cypher, map[string]interface{}{
			"index":      c.indexName,
			"candidates": candidates,
			"embedding":  toFloat64(query),
			"category":   category,
			"k":          k,
		})
		if err != nil {
			return fmt.Errorf("failed to query vector index: %w", err)
		}

		for result.Next(ctx) {
			doc, err := documentFromRecord(result.Record())
			if err != nil {
				return retry.Permanent(err)
			}
			docs = append(docs, doc)
		}

		if err := result.Err(); err != nil {
			return fmt.Errorf("error iterating results: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Neo4j vector search completed",
		zap.Int("topK", k),
		zap.Int("results", len(docs)),
		zap.String("category", category),
	)

	return docs, nil
}

func documentParams(doc models.KnowledgeDocument, now int64) map[string]interface{} {
	created := now
	if !doc.CreatedAt.IsZero() {
		created = doc.CreatedAt.Unix()
	}

	tags := make([]interface{}, len(doc.Tags))
	for i, t := range doc.Tags {
		tags[i] = t
	}

	return map[string]interface{}{
		"id":         doc.ID,
		"title":      doc.Title,
		"category":   doc.Category,
		"content":    doc.Content,
		"tags":       tags,
		"embedding":  toFloat64(doc.Embedding),
		"created_at": created,
		"updated_at": now,
	}
}

func documentFromRecord(record *neo4j.Record) (models.KnowledgeDocument, error) {
	var doc models.KnowledgeDocument

	str := func(key string) (string, error) {
		v, ok := record.Get(key)
		if !ok {
			return "", fmt.Errorf("record is missing %s", key)
		}
		if v == nil {
			return "", nil
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("field %s is %T, want string", key, v)
		}
		return s, nil
	}

	var err error
	if doc.ID, err = str("id"); err != nil {
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

	if raw, ok := record.Get("tags"); ok {
		if list, ok := raw.([]interface{}); ok {
			for _, t := range list {
				if s, ok := t.(string); ok {
					doc.Tags = append(doc.Tags, s)
				}
			}
		}
	}

	if v, ok := record.Get("created_at"); ok {
		if n, ok := v.(int64); ok {
			doc.CreatedAt = time.Unix(n, 0)
		}
	}
	if v, ok := record.Get("updated_at"); ok {
		if n, ok := v.(int64); ok {
			doc.UpdatedAt = time.Unix(n, 0)
		}
	}

	return doc, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
