package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	markupPattern    = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

const localsKey = "chat_message"

var (
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = errors.New("message is too long")
	ErrMarkup         = errors.New("invalid message content")
)

// ChatMessage is a validated chat request body.
type ChatMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type Config struct {
	MaxMessageLength int
	Logger           *zap.Logger
}

// ChatMessageMiddleware validates the JSON body of a chat message request and
// stores the sanitized result for Message.
func ChatMessageMiddleware(cfg Config) fiber.Handler {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Content type must be application/json",
			})
		}

		var req ChatMessage
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		msg, err := CheckMessage(req.Message, cfg.MaxMessageLength)
		if err != nil {
			if errors.Is(err, ErrMarkup) {
				cfg.Logger.Warn("Rejected chat message containing markup",
					zap.String("ip", c.IP()),
				)
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		req.Message = msg

		req.SessionID = strings.TrimSpace(req.SessionID)
		if req.SessionID != "" && !sessionIDPattern.MatchString(req.SessionID) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid session id",
			})
		}

		c.Locals(localsKey, req)
		return c.Next()
	}
}

// CheckMessage sanitizes a chat message and enforces its length limit in
// characters.
func CheckMessage(message string, maxLength int) (string, error) {
	message = sanitizeString(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(message); n > maxLength {
		return "", fmt.Errorf("%w: %d characters, limit %d", ErrMessageTooLong, n, maxLength)
	}
	if markupPattern.MatchString(message) {
		return "", ErrMarkup
	}
	return message, nil
}

// Message returns the request validated by ChatMessageMiddleware.
func Message(c *fiber.Ctx) (ChatMessage, bool) {
	req, ok := c.Locals(localsKey).(ChatMessage)
	return req, ok
}

// ValidSessionID reports whether id may be used as a session key.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func sanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
