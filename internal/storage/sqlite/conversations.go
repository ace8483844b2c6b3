package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/order-chatbot/backend/internal/storage/models"
)

func (c *Client) AppendTurn(ctx context.Context, turn *models.ConversationTurn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = c.now()
	}

	res, err := c.db.ExecContext(ctx,
		`INSERT INTO conversations (customer_id, session_id, message, role, timestamp) VALUES (?, ?, ?, ?, ?)`,
		turn.CustomerID,
		turn.SessionID,
		turn.Message,
		string(turn.Role),
		turn.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation turn: %w", err)
	}

	if turn.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read conversation turn id: %w", err)
	}
	return nil
}

// ConversationHistory returns the customer's most recent turns in
// chronological order, restricted to one session unless sessionID is empty.
// A limit of zero or less returns every turn.
func (c *Client) ConversationHistory(ctx context.Context, customerID int64, sessionID string, limit int) ([]models.ConversationTurn, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, customer_id, session_id, message, role, timestamp
		FROM (
			SELECT id, customer_id, session_id, message, role, timestamp
			FROM conversations
			WHERE customer_id = ? AND (? = '' OR session_id = ?)
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC`,
		customerID, sessionID, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer rows.Close()

	var turns []models.ConversationTurn
	for rows.Next() {
		var (
			turn models.ConversationTurn
			role string
			ts   int64
		)
		if err := rows.Scan(&turn.ID, &turn.CustomerID, &turn.SessionID, &turn.Message, &role, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan conversation turn: %w", err)
		}
		turn.Role = models.Role(role)
		turn.Timestamp = time.UnixMilli(ts)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation: %w", err)
	}

	return turns, nil
}
