// Package knowledge embeds, stores and retrieves the help-centre documents
// that ground chat replies.
package knowledge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/metrics"
	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/logger"
)

const noRelevantInformation = "No relevant information found."

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is a similarity-searchable knowledge index. SimilaritySearch returns
// documents ordered by ascending distance; an empty category means no filter.
type Store interface {
	Upsert(ctx context.Context, docs []models.KnowledgeDocument) error
	SimilaritySearch(ctx context.Context, query []float32, k int, category string) ([]models.KnowledgeDocument, error)
}

type Retriever struct {
	embedder Embedder
	store    Store
	log      *zap.Logger
}

func NewRetriever(embedder Embedder, store Store) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		log:      logger.Named("knowledge"),
	}
}

// Retrieve returns at most k documents closest to query. Any embedding or
// search failure yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, category string) []models.KnowledgeDocument {
	if k <= 0 {
		return nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		metrics.RetrievalFailures.WithLabelValues("embed").Inc()
		r.log.Warn("Query embedding failed, continuing without knowledge", zap.Error(err))
		return nil
	}

	docs, err := r.store.SimilaritySearch(ctx, vec, k, category)
	if err != nil {
		metrics.RetrievalFailures.WithLabelValues("search").Inc()
		r.log.Warn("Knowledge search failed, continuing without knowledge",
			zap.String("category", category),
			zap.Error(err),
		)
		return nil
	}

	if len(docs) > k {
		docs = docs[:k]
	}

	metrics.RetrievalResults.Observe(float64(len(docs)))
	r.log.Debug("Knowledge retrieved",
		zap.Int("count", len(docs)),
		zap.String("category", category),
	)

	return docs
}

// BuildContext renders docs in retrieval order for the prompt.
func BuildContext(docs []models.KnowledgeDocument) string {
	if len(docs) == 0 {
		return noRelevantInformation
	}

	var b strings.Builder
	b.WriteString("Based on the following knowledge base information:\n\n")
	for _, doc := range docs {
		fmt.Fprintf(&b, "Document: %s\nCategory: %s\nContent: %s\n\n", doc.Title, doc.Category, doc.Content)
	}
	return b.String()
}
