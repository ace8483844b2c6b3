package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/chat"
	"github.com/order-chatbot/backend/internal/middleware/identity"
	"github.com/order-chatbot/backend/internal/middleware/validation"
	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/logger"
)

type MessageHandler interface {
	HandleMessage(ctx context.Context, req chat.Request) chat.Response
}

type HistoryStore interface {
	ConversationHistory(ctx context.Context, customerID int64, sessionID string, limit int) ([]models.ConversationTurn, error)
}

type ChatHandler struct {
	chat         MessageHandler
	history      HistoryStore
	historyLimit int
}

func NewChatHandler(chat MessageHandler, history HistoryStore, historyLimit int) *ChatHandler {
	return &ChatHandler{
		chat:         chat,
		history:      history,
		historyLimit: historyLimit,
	}
}

// SendMessage expects identity and validation middleware to have run.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	customerID, ok := identity.CustomerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing customer identity",
		})
	}

	req, ok := validation.Message(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp := h.chat.HandleMessage(c.UserContext(), chat.Request{
		Message:    req.Message,
		CustomerID: customerID,
		SessionID:  req.SessionID,
	})

	return c.JSON(resp)
}

type historyEntry struct {
	SessionID string      `json:"session_id"`
	Role      models.Role `json:"role"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	customerID, ok := identity.CustomerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing customer identity",
		})
	}

	sessionID := c.Query("session_id")
	if sessionID != "" && !validation.ValidSessionID(sessionID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session id",
		})
	}

	turns, err := h.history.ConversationHistory(c.UserContext(), customerID, sessionID, h.historyLimit)
	if err != nil {
		logger.Error("Failed to load conversation history",
			zap.Int64("customer_id", customerID),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation history",
		})
	}

	entries := make([]historyEntry, 0, len(turns))
	for _, turn := range turns {
		entries = append(entries, historyEntry{
			SessionID: turn.SessionID,
			Role:      turn.Role,
			Message:   turn.Message,
			Timestamp: turn.Timestamp,
		})
	}

	return c.JSON(fiber.Map{
		"history": entries,
	})
}

func (h *ChatHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "UP",
		"service": "Order Status Chatbot",
	})
}
