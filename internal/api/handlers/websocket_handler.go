package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/chat"
	"github.com/order-chatbot/backend/internal/middleware/identity"
	"github.com/order-chatbot/backend/internal/middleware/validation"
	"github.com/order-chatbot/backend/pkg/logger"
)

type WebSocketHandler struct {
	chat             MessageHandler
	maxMessageLength int
}

func NewWebSocketHandler(chat MessageHandler, maxMessageLength int) *WebSocketHandler {
	return &WebSocketHandler{
		chat:             chat,
		maxMessageLength: maxMessageLength,
	}
}

type wsMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SessionID string `json:"session_id"`
}

type wsFrame struct {
	Type       string      `json:"type"`
	Content    string      `json:"content,omitempty"`
	Error      string      `json:"error,omitempty"`
	Intent     chat.Intent `json:"intent,omitempty"`
	Confidence *float64    `json:"confidence,omitempty"`
	SessionID  string      `json:"session_id,omitempty"`
	Timestamp  *time.Time  `json:"timestamp,omitempty"`
}

// HandleConnection serves one chat connection. The upgrade route must run
// the identity middleware so the customer id is in the connection locals.
// Messages without a session id continue the connection's last session.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	customerID, ok := c.Locals(identity.LocalsKey).(int64)
	if !ok {
		_ = c.WriteJSON(wsFrame{Type: "error", Error: "Missing customer identity"})
		_ = c.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	log := logger.Named("websocket").With(zap.Int64("customer_id", customerID))
	log.Info("WebSocket connection established")

	defer func() {
		cancel()
		_ = c.Close()
		log.Info("WebSocket connection closed")
	}()

	var session string
	for {
		var msg wsMessage
		if err := c.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("Failed to read WebSocket message", zap.Error(err))
			}
			return
		}

		if msg.Type != "message" {
			continue
		}

		req, err := h.request(msg, customerID, session)
		if err != nil {
			if err := c.WriteJSON(wsFrame{Type: "error", Error: err.Error()}); err != nil {
				return
			}
			continue
		}

		resp, err := h.streamResponse(ctx, c, req)
		if err != nil {
			log.Warn("Failed to stream response", zap.Error(err))
			return
		}
		session = resp.SessionID
	}
}

func (h *WebSocketHandler) request(msg wsMessage, customerID int64, session string) (chat.Request, error) {
	text, err := validation.CheckMessage(msg.Content, h.maxMessageLength)
	if err != nil {
		return chat.Request{}, err
	}

	if msg.SessionID != "" {
		if !validation.ValidSessionID(msg.SessionID) {
			return chat.Request{}, errors.New("invalid session id")
		}
		session = msg.SessionID
	}

	return chat.Request{
		Message:    text,
		CustomerID: customerID,
		SessionID:  session,
	}, nil
}

func (h *WebSocketHandler) streamResponse(ctx context.Context, c *websocket.Conn, req chat.Request) (chat.Response, error) {
	if err := c.WriteJSON(wsFrame{Type: "status", Content: "Processing message..."}); err != nil {
		return chat.Response{}, err
	}

	resp := h.chat.HandleMessage(ctx, req)

	for _, chunk := range chunkWords(resp.Text) {
		if err := c.WriteJSON(wsFrame{Type: "chunk", Content: chunk}); err != nil {
			return resp, err
		}
	}

	ts, confidence := resp.Timestamp, resp.Confidence
	return resp, c.WriteJSON(wsFrame{
		Type:       "complete",
		Intent:     resp.Intent,
		Confidence: &confidence,
		SessionID:  resp.SessionID,
		Timestamp:  &ts,
	})
}

// chunkWords splits text into streaming chunks. Concatenating the chunks
// yields the text with runs of spaces collapsed and newlines kept.
func chunkWords(text string) []string {
	var chunks []string
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			chunks = append(chunks, "\n")
		}
		words := strings.Fields(line)
		for j, w := range words {
			if j < len(words)-1 {
				w += " "
			}
			chunks = append(chunks, w)
		}
	}
	return chunks
}
