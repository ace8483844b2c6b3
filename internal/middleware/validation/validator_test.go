package validation

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Post("/chat", ChatMessageMiddleware(Config{MaxMessageLength: 20}), func(c *fiber.Ctx) error {
		req, ok := Message(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(req)
	})
	return app
}

func post(t *testing.T, app *fiber.App, contentType, body string) (int, string) {
	t.Helper()

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestChatMessageMiddlewareRejects(t *testing.T) {
	app := newApp()

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
	}{
		{"wrong content type", "text/plain", `{"message":"hi"}`, fiber.StatusUnsupportedMediaType},
		{"malformed json", "application/json", `{"message":`, fiber.StatusBadRequest},
		{"missing message", "application/json", `{}`, fiber.StatusBadRequest},
		{"blank message", "application/json", `{"message":"   "}`, fiber.StatusBadRequest},
		{"too long", "application/json", `{"message":"` + strings.Repeat("a", 21) + `"}`, fiber.StatusBadRequest},
		{"markup", "application/json", `{"message":"<script>x</script>"}`, fiber.StatusBadRequest},
		{"bad session id", "application/json", `{"message":"hi","session_id":"a b"}`, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := post(t, app, tt.contentType, tt.body)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestChatMessageMiddlewareSanitizes(t *testing.T) {
	app := newApp()

	status, body := post(t, app, "application/json; charset=utf-8",
		`{"message":"  cancel my order \u0000 ","session_id":"sess-1"}`)

	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"message":"cancel my order","session_id":"sess-1"}`, body)
}

func TestLengthCountsCharactersNotBytes(t *testing.T) {
	app := newApp()

	status, _ := post(t, app, "application/json", `{"message":"`+strings.Repeat("é", 20)+`"}`)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestValidSessionID(t *testing.T) {
	assert.True(t, ValidSessionID("3f2b8c1e-2d4a-4b7e-9c1d-7a6e5f4d3c2b"))
	assert.False(t, ValidSessionID(""))
	assert.False(t, ValidSessionID(strings.Repeat("x", 65)))
}

func TestCheckMessage(t *testing.T) {
	msg, err := CheckMessage("  where is ORD-001?  ", 1000)
	require.NoError(t, err)
	assert.Equal(t, "where is ORD-001?", msg)

	_, err = CheckMessage("\x00 ", 1000)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = CheckMessage("abcdef", 5)
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = CheckMessage(`<iframe src="x">`, 1000)
	assert.ErrorIs(t, err, ErrMarkup)
}
