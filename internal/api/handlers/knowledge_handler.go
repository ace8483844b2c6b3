package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/logger"
)

const (
	defaultSearchK = 3
	maxSearchK     = 10
)

type KnowledgeSearcher interface {
	Retrieve(ctx context.Context, query string, k int, category string) []models.KnowledgeDocument
}

type DocumentIndexer interface {
	Index(ctx context.Context, docs []models.KnowledgeDocument) (int, error)
}

type KnowledgeHandler struct {
	searcher KnowledgeSearcher
	indexer  DocumentIndexer
}

func NewKnowledgeHandler(searcher KnowledgeSearcher, indexer DocumentIndexer) *KnowledgeHandler {
	return &KnowledgeHandler{
		searcher: searcher,
		indexer:  indexer,
	}
}

type documentView struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
}

func (h *KnowledgeHandler) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query parameter q is required",
		})
	}

	k := c.QueryInt("k", defaultSearchK)
	if k < 1 || k > maxSearchK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "k must be between 1 and 10",
		})
	}

	docs := h.searcher.Retrieve(c.UserContext(), query, k, c.Query("category"))

	results := make([]documentView, 0, len(docs))
	for _, d := range docs {
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		results = append(results, documentView{
			ID:       d.ID,
			Title:    d.Title,
			Category: d.Category,
			Content:  d.Content,
			Tags:     tags,
		})
	}

	return c.JSON(fiber.Map{
		"query":   query,
		"results": results,
	})
}

// UploadDocument embeds and stores a single knowledge document. The route
// must sit behind the operator token guard.
func (h *KnowledgeHandler) UploadDocument(c *fiber.Ctx) error {
	var req documentView
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Document id and content are required",
		})
	}
	if req.Category == "" {
		req.Category = "general"
	}
	if req.Title == "" {
		req.Title = req.ID
	}

	indexed, err := h.indexer.Index(c.UserContext(), []models.KnowledgeDocument{{
		ID:       req.ID,
		Title:    req.Title,
		Category: req.Category,
		Content:  req.Content,
		Tags:     req.Tags,
	}})
	if err != nil || indexed == 0 {
		logger.Error("Failed to index document",
			zap.String("id", req.ID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Failed to index document",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Document indexed successfully",
		"id":      req.ID,
	})
}
