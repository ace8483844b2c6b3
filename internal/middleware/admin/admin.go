package admin

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Header carries the operator token for knowledge base writes.
const Header = "X-Admin-Token"

type Config struct {
	// Token is the shared operator secret. Empty rejects every request.
	Token  string
	Logger *zap.Logger
}

// Middleware admits only requests presenting the configured operator token.
// Customer identity never grants access.
func Middleware(cfg Config) fiber.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	want := []byte(cfg.Token)

	return func(c *fiber.Ctx) error {
		got := []byte(strings.TrimSpace(c.Get(Header)))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			cfg.Logger.Warn("Rejected knowledge base write",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
				zap.Bool("token_present", len(got) > 0),
			)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Operator credentials required",
			})
		}
		return c.Next()
	}
}
