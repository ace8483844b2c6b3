package knowledge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/metrics"
	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/logger"
)

// Indexer embeds knowledge documents and writes them to a Store.
type Indexer struct {
	embedder Embedder
	store    Store
	log      *zap.Logger
}

func NewIndexer(embedder Embedder, store Store) *Indexer {
	return &Indexer{embedder: embedder, store: store, log: logger.Named("knowledge.indexer")}
}

// Index embeds each document's content and upserts the embedded ones. A
// document that cannot be embedded is logged and skipped. It returns the
// number of documents stored.
func (ix *Indexer) Index(ctx context.Context, docs []models.KnowledgeDocument) (int, error) {
	embedded := make([]models.KnowledgeDocument, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		vec, err := ix.embedder.Embed(ctx, doc.Content)
		if err != nil {
			metrics.DocumentsIndexed.WithLabelValues("failed").Inc()
			ix.log.Error("Error embedding knowledge document", zap.String("doc_id", doc.ID), zap.Error(err))
			continue
		}
		doc.Embedding = vec
		embedded = append(embedded, doc)
	}

	if len(embedded) == 0 {
		return 0, nil
	}

	if err := ix.store.Upsert(ctx, embedded); err != nil {
		metrics.DocumentsIndexed.WithLabelValues("failed").Add(float64(len(embedded)))
		return 0, fmt.Errorf("failed to store knowledge documents: %w", err)
	}

	metrics.DocumentsIndexed.WithLabelValues("ok").Add(float64(len(embedded)))
	for _, doc := range embedded {
		ix.log.Info("Loaded knowledge base document", zap.String("doc_id", doc.ID))
	}
	return len(embedded), nil
}

// IndexDir loads and indexes every knowledge file in dir.
func (ix *Indexer) IndexDir(ctx context.Context, dir string) (int, error) {
	ix.log.Info("Initializing knowledge base", zap.String("dir", dir))

	docs, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}

	n, err := ix.Index(ctx, docs)
	if err != nil {
		return 0, err
	}

	ix.log.Info("Knowledge base initialization completed",
		zap.Int("loaded", len(docs)),
		zap.Int("indexed", n),
	)
	return n, nil
}

// IndexFile re-indexes a single knowledge file.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	docs, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	return ix.Index(ctx, docs)
}
