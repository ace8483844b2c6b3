package identity

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Header carries the authenticated customer id set by the upstream auth layer.
const Header = "X-Customer-ID"

// LocalsKey is the fiber locals key holding the customer id.
const LocalsKey = "customer_id"

type Config struct {
	Logger *zap.Logger
}

// Middleware rejects requests without a positive numeric customer id and
// stores the id for handlers to read with CustomerID.
func Middleware(cfg Config) fiber.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(Header))
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing customer identity",
			})
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			cfg.Logger.Warn("Rejected invalid customer identity",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid customer identity",
			})
		}

		c.Locals(LocalsKey, id)
		return c.Next()
	}
}

// CustomerID returns the id stored by Middleware, or false when absent.
func CustomerID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(LocalsKey).(int64)
	return id, ok
}
