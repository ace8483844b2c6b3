package chat

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/metrics"
	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/logger"
)

const defaultRecentDays = 30

// OrderStore is the read side of the order records. OrderByNumber returns
// models.ErrOrderNotFound for unknown numbers.
type OrderStore interface {
	OrderByNumber(ctx context.Context, number string) (*models.Order, error)
	OrdersByCustomer(ctx context.Context, customerID int64) ([]models.Order, error)
	RecentOrdersByCustomer(ctx context.Context, customerID int64, days int) ([]models.Order, error)
	OrdersByCustomerAndStatus(ctx context.Context, customerID int64, status models.OrderStatus) ([]models.Order, error)
}

// OrderContextResolver turns a message into order context blocks scoped to
// the requesting customer.
type OrderContextResolver struct {
	orders     OrderStore
	recentDays int
	log        *zap.Logger
}

func NewOrderContextResolver(orders OrderStore, recentDays int) *OrderContextResolver {
	if recentDays <= 0 {
		recentDays = defaultRecentDays
	}
	return &OrderContextResolver{
		orders:     orders,
		recentDays: recentDays,
		log:        logger.Named("chat.orders"),
	}
}

// Resolve runs the order-number, history, recent and status steps in that
// order. A failed lookup contributes a single ErrorBlock at the position of
// the first failure and later steps still run.
func (r *OrderContextResolver) Resolve(ctx context.Context, message string, customerID int64) []Block {
	var (
		blocks []Block
		failed bool
	)

	fail := func(kind string, err error) {
		metrics.OrderLookups.WithLabelValues(kind, "error").Inc()
		r.log.Error("Error retrieving order context",
			zap.String("lookup", kind),
			zap.Int64("customer_id", customerID),
			zap.Error(err),
		)
		if !failed {
			failed = true
			blocks = append(blocks, ErrorBlock{})
		}
	}

	lower := strings.ToLower(message)

	if number, ok := ExtractOrderNumber(message); ok {
		if b, err := r.specificOrder(ctx, number, customerID); err != nil {
			fail("by_number", err)
		} else {
			blocks = append(blocks, b)
		}
	}

	if strings.Contains(lower, "order") && containsAny(lower, "history", "all", "my orders") {
		orders, err := r.orders.OrdersByCustomer(ctx, customerID)
		if err != nil {
			fail("history", err)
		} else {
			metrics.OrderLookups.WithLabelValues("history", "ok").Inc()
			blocks = append(blocks, OrderHistoryBlock{Orders: orders})
		}
	}

	if containsAny(lower, "recent", "latest") {
		orders, err := r.orders.RecentOrdersByCustomer(ctx, customerID, r.recentDays)
		if err != nil {
			fail("recent", err)
		} else {
			metrics.OrderLookups.WithLabelValues("recent", "ok").Inc()
			blocks = append(blocks, RecentOrdersBlock{Days: r.recentDays, Orders: orders})
		}
	}

	if status, ok := ExtractStatusKeyword(message); ok {
		orders, err := r.orders.OrdersByCustomerAndStatus(ctx, customerID, status)
		if err != nil {
			fail("status", err)
		} else {
			metrics.OrderLookups.WithLabelValues("status", "ok").Inc()
			blocks = append(blocks, StatusFilteredBlock{Status: status, Orders: orders})
		}
	}

	if len(blocks) == 0 {
		return []Block{EmptyBlock{}}
	}
	return blocks
}

func (r *OrderContextResolver) specificOrder(ctx context.Context, number string, customerID int64) (Block, error) {
	order, err := r.orders.OrderByNumber(ctx, number)
	if errors.Is(err, models.ErrOrderNotFound) {
		metrics.OrderLookups.WithLabelValues("by_number", "not_found").Inc()
		return OrderNotFoundBlock{OrderNumber: number}, nil
	}
	if err != nil {
		return nil, err
	}

	if !order.OwnedBy(customerID) {
		metrics.OrderLookups.WithLabelValues("by_number", "denied").Inc()
		r.log.Warn("Order requested by non-owner",
			zap.String("order_number", number),
			zap.Int64("customer_id", customerID),
		)
		return AccessDeniedBlock{OrderNumber: number}, nil
	}

	metrics.OrderLookups.WithLabelValues("by_number", "found").Inc()
	return SpecificOrderBlock{Order: *order}, nil
}
