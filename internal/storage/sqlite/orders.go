package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/logger"
)

const orderColumns = `id, order_number, customer_id, status, total_cents, shipping_address, created_at, updated_at`

func (c *Client) InsertOrder(ctx context.Context, order *models.Order) error {
	if !order.Status.Valid() {
		return fmt.Errorf("invalid order status %d", uint8(order.Status))
	}

	now := c.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	query := `
		INSERT INTO orders (order_number, customer_id, status, total_cents, shipping_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := c.db.ExecContext(ctx, query,
		order.OrderNumber,
		order.CustomerID,
		order.Status.String(),
		int64(order.Total),
		order.ShippingAddress,
		order.CreatedAt.Unix(),
		order.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if order.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read order id: %w", err)
	}

	logger.Debug("Order inserted", zap.String("order_number", order.OrderNumber))
	return nil
}

// OrderByNumber returns models.ErrOrderNotFound when no order carries number.
func (c *Client) OrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = ?`, number)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// OrdersByCustomer lists every order of the customer, newest first.
func (c *Client) OrdersByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	return c.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = ? ORDER BY created_at DESC, id DESC`,
		customerID,
	)
}

// RecentOrdersByCustomer lists orders created within the last days days.
func (c *Client) RecentOrdersByCustomer(ctx context.Context, customerID int64, days int) ([]models.Order, error) {
	since := c.now().AddDate(0, 0, -days)
	return c.OrdersByCustomerSince(ctx, customerID, since)
}

func (c *Client) OrdersByCustomerSince(ctx context.Context, customerID int64, since time.Time) ([]models.Order, error) {
	return c.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = ? AND created_at >= ? ORDER BY created_at DESC, id DESC`,
		customerID, since.Unix(),
	)
}

func (c *Client) OrdersByCustomerAndStatus(ctx context.Context, customerID int64, status models.OrderStatus) ([]models.Order, error) {
	return c.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = ? AND status = ? ORDER BY created_at DESC, id DESC`,
		customerID, status.String(),
	)
}

func (c *Client) queryOrders(ctx context.Context, query string, args ...interface{}) ([]models.Order, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return orders, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(s scanner) (*models.Order, error) {
	var (
		order                models.Order
		status               string
		total                int64
		createdAt, updatedAt int64
	)

	err := s.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&status,
		&total,
		&order.ShippingAddress,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if order.Status, err = models.ParseOrderStatus(status); err != nil {
		return nil, fmt.Errorf("order %s: %w", order.OrderNumber, err)
	}
	order.Total = models.Money(total)
	order.CreatedAt = time.Unix(createdAt, 0)
	order.UpdatedAt = time.Unix(updatedAt, 0)

	return &order, nil
}
