package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/internal/vector"
	"github.com/order-chatbot/backend/pkg/logger"
)

// Upsert stores knowledge documents together with their embeddings, replacing
// any document with the same id.
func (c *Client) Upsert(ctx context.Context, docs []models.KnowledgeDocument) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO knowledge_documents (id, title, category, content, tags, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			content = excluded.content,
			tags = excluded.tags,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare knowledge upsert: %w", err)
	}
	defer stmt.Close()

	now := c.now()
	for _, doc := range docs {
		tags, err := json.Marshal(doc.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags for %s: %w", doc.ID, err)
		}

		createdAt := doc.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		if _, err := stmt.ExecContext(ctx,
			doc.ID,
			doc.Title,
			doc.Category,
			doc.Content,
			string(tags),
			vector.Encode(doc.Embedding),
			createdAt.Unix(),
			now.Unix(),
		); err != nil {
			return fmt.Errorf("failed to upsert knowledge document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit knowledge upsert: %w", err)
	}

	logger.Debug("Knowledge documents stored", zap.Int("count", len(docs)))
	return nil
}

// SimilaritySearch scans every embedded document, optionally restricted to
// category, and returns the k closest by cosine distance.
func (c *Client) SimilaritySearch(ctx context.Context, query []float32, k int, category string) ([]models.KnowledgeDocument, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, title, category, content, tags, embedding, created_at, updated_at
		FROM knowledge_documents
		WHERE embedding IS NOT NULL AND (? = '' OR category = ?)`,
		category, category,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge documents: %w", err)
	}
	defer rows.Close()

	type scored struct {
		doc      models.KnowledgeDocument
		distance float64
	}

	var candidates []scored
	for rows.Next() {
		doc, err := scanKnowledge(rows)
		if err != nil {
			return nil, err
		}

		d, err := vector.CosineDistance(query, doc.Embedding)
		if err != nil {
			logger.Warn("Skipping knowledge document with unusable embedding",
				zap.String("doc_id", doc.ID),
				zap.Error(err),
			)
			continue
		}
		candidates = append(candidates, scored{doc: *doc, distance: d})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate knowledge documents: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	docs := make([]models.KnowledgeDocument, len(candidates))
	for i, cand := range candidates {
		docs[i] = cand.doc
	}
	return docs, nil
}

func (c *Client) CountKnowledgeDocuments(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count knowledge documents: %w", err)
	}
	return n, nil
}

func scanKnowledge(s scanner) (*models.KnowledgeDocument, error) {
	var (
		doc                  models.KnowledgeDocument
		tags                 []byte
		blob                 []byte
		createdAt, updatedAt int64
	)

	if err := s.Scan(&doc.ID, &doc.Title, &doc.Category, &doc.Content, &tags, &blob, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan knowledge document: %w", err)
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &doc.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for %s: %w", doc.ID, err)
		}
	}

	embedding, err := vector.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedding for %s: %w", doc.ID, err)
	}
	doc.Embedding = embedding
	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)

	return &doc, nil
}
