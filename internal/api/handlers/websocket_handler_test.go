package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-chatbot/backend/internal/middleware/validation"
)

func TestChunkWords(t *testing.T) {
	chunks := chunkWords("Your order  has shipped.\nTracking: 1Z999")
	assert.Equal(t, []string{"Your ", "order ", "has ", "shipped.", "\n", "Tracking: ", "1Z999"}, chunks)
	assert.Equal(t, "Your order has shipped.\nTracking: 1Z999", strings.Join(chunks, ""))

	assert.Empty(t, chunkWords(""))
}

func TestWebSocketRequest(t *testing.T) {
	h := NewWebSocketHandler(nil, 10)

	req, err := h.request(wsMessage{Type: "message", Content: " hello "}, 7, "prev")
	require.NoError(t, err)
	assert.Equal(t, "hello", req.Message)
	assert.Equal(t, int64(7), req.CustomerID)
	assert.Equal(t, "prev", req.SessionID, "continues the connection session")

	req, err = h.request(wsMessage{Content: "hi", SessionID: "next-1"}, 7, "prev")
	require.NoError(t, err)
	assert.Equal(t, "next-1", req.SessionID)

	_, err = h.request(wsMessage{Content: "far too long message"}, 7, "")
	assert.ErrorIs(t, err, validation.ErrMessageTooLong)

	_, err = h.request(wsMessage{Content: "hi", SessionID: "no spaces"}, 7, "")
	assert.Error(t, err)
}
