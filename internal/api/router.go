package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/api/handlers"
	"github.com/order-chatbot/backend/internal/middleware/admin"
	"github.com/order-chatbot/backend/internal/middleware/identity"
	"github.com/order-chatbot/backend/internal/middleware/validation"
)

type Handlers struct {
	Chat      *handlers.ChatHandler
	Orders    *handlers.OrderHandler
	Knowledge *handlers.KnowledgeHandler
	WebSocket *handlers.WebSocketHandler
	Health    *handlers.HealthHandler
}

type RouterConfig struct {
	MaxMessageLength int
	// ChatLimiter guards the chat message endpoints. Nil disables limiting.
	ChatLimiter fiber.Handler
	// AdminToken guards knowledge document uploads. Empty disables uploads.
	AdminToken string
	Logger     *zap.Logger
}

// Register mounts the HTTP API under /api/v1 and the streaming chat endpoint
// under /ws/chat.
func Register(app *fiber.App, h Handlers, cfg RouterConfig) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	authenticated := identity.Middleware(identity.Config{Logger: cfg.Logger})
	limited := cfg.ChatLimiter
	if limited == nil {
		limited = func(c *fiber.Ctx) error { return c.Next() }
	}

	v1 := app.Group("/api/v1")

	v1.Get("/health", h.Health.Health)
	v1.Get("/ready", h.Health.Ready)

	chat := v1.Group("/chat")
	chat.Get("/health", h.Chat.Health)
	chat.Post("/message",
		authenticated,
		limited,
		validation.ChatMessageMiddleware(validation.Config{
			MaxMessageLength: cfg.MaxMessageLength,
			Logger:           cfg.Logger,
		}),
		h.Chat.SendMessage,
	)
	chat.Get("/history", authenticated, h.Chat.GetHistory)

	orders := v1.Group("/orders")
	orders.Get("/my-orders", authenticated, h.Orders.MyOrders)
	orders.Get("/:orderNumber", authenticated, h.Orders.GetOrder)

	knowledge := v1.Group("/knowledge")
	knowledge.Get("/search", authenticated, h.Knowledge.Search)
	knowledge.Post("/documents",
		admin.Middleware(admin.Config{Token: cfg.AdminToken, Logger: cfg.Logger}),
		h.Knowledge.UploadDocument,
	)

	app.Get("/ws/chat",
		authenticated,
		limited,
		func(c *fiber.Ctx) error {
			if !websocket.IsWebSocketUpgrade(c) {
				return fiber.ErrUpgradeRequired
			}
			return c.Next()
		},
		websocket.New(h.WebSocket.HandleConnection),
	)
}
