package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/metrics"
	"github.com/order-chatbot/backend/internal/middleware/identity"
	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/logger"
)

type OrderReader interface {
	OrderByNumber(ctx context.Context, number string) (*models.Order, error)
	OrdersByCustomer(ctx context.Context, customerID int64) ([]models.Order, error)
}

type OrderHandler struct {
	orders OrderReader
}

func NewOrderHandler(orders OrderReader) *OrderHandler {
	return &OrderHandler{
		orders: orders,
	}
}

type orderView struct {
	OrderNumber     string             `json:"order_number"`
	CustomerID      int64              `json:"customer_id"`
	Status          models.OrderStatus `json:"status"`
	Total           models.Money       `json:"total_amount"`
	ShippingAddress string             `json:"shipping_address"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`
}

func newOrderView(o models.Order) orderView {
	v := orderView{
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		Status:          o.Status,
		Total:           o.Total,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
	}
	if !o.UpdatedAt.IsZero() {
		updated := o.UpdatedAt
		v.UpdatedAt = &updated
	}
	return v
}

// GetOrder returns 403 rather than the order when it belongs to another customer.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	customerID, ok := identity.CustomerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing customer identity",
		})
	}

	number := c.Params("orderNumber")
	if number == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Order number is required",
		})
	}

	order, err := h.orders.OrderByNumber(c.UserContext(), number)
	if errors.Is(err, models.ErrOrderNotFound) {
		metrics.OrderLookups.WithLabelValues("api", "not_found").Inc()
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
		})
	}
	if err != nil {
		metrics.OrderLookups.WithLabelValues("api", "error").Inc()
		logger.Error("Failed to load order",
			zap.String("order_number", number),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load order",
		})
	}

	if !order.OwnedBy(customerID) {
		metrics.OrderLookups.WithLabelValues("api", "denied").Inc()
		logger.Warn("Customer requested an order they do not own",
			zap.Int64("customer_id", customerID),
			zap.String("order_number", number),
		)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	metrics.OrderLookups.WithLabelValues("api", "found").Inc()
	return c.JSON(newOrderView(*order))
}

func (h *OrderHandler) MyOrders(c *fiber.Ctx) error {
	customerID, ok := identity.CustomerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing customer identity",
		})
	}

	orders, err := h.orders.OrdersByCustomer(c.UserContext(), customerID)
	if err != nil {
		logger.Error("Failed to load customer orders",
			zap.Int64("customer_id", customerID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load orders",
		})
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}

	return c.JSON(views)
}
