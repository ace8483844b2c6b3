package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-chatbot/backend/internal/storage/models"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c, err := NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	c.now = func() time.Time { return fixedNow }
	require.NoError(t, c.InitSchema())
	return c
}

func seedOrder(t *testing.T, c *Client, number string, customer int64, status models.OrderStatus, age time.Duration) *models.Order {
	t.Helper()

	o := &models.Order{
		OrderNumber:     number,
		CustomerID:      customer,
		Status:          status,
		Total:           4950,
		ShippingAddress: "1 Main St",
		CreatedAt:       fixedNow.Add(-age),
	}
	require.NoError(t, c.InsertOrder(context.Background(), o))
	return o
}

func TestOrderByNumber(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	seeded := seedOrder(t, c, "ORD-1001", 7, models.StatusShipped, time.Hour)

	got, err := c.OrderByNumber(ctx, "ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)
	assert.Equal(t, int64(7), got.CustomerID)
	assert.Equal(t, models.StatusShipped, got.Status)
	assert.Equal(t, models.Money(4950), got.Total)
	assert.Equal(t, seeded.CreatedAt.Unix(), got.CreatedAt.Unix())

	_, err = c.OrderByNumber(ctx, "ORD-404")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestInsertOrderRejectsInvalidStatus(t *testing.T) {
	c := newTestClient(t)
	err := c.InsertOrder(context.Background(), &models.Order{OrderNumber: "ORD-1", CustomerID: 1})
	assert.Error(t, err)
}

func TestOrderQueries(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	seedOrder(t, c, "ORD-1", 7, models.StatusDelivered, 60*24*time.Hour)
	seedOrder(t, c, "ORD-2", 7, models.StatusShipped, 10*24*time.Hour)
	seedOrder(t, c, "ORD-3", 7, models.StatusShipped, 24*time.Hour)
	seedOrder(t, c, "ORD-4", 8, models.StatusShipped, 24*time.Hour)

	all, err := c.OrdersByCustomer(ctx, 7)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ORD-3", all[0].OrderNumber)
	assert.Equal(t, "ORD-1", all[2].OrderNumber)

	recent, err := c.RecentOrdersByCustomer(ctx, 7, 30)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "ORD-3", recent[0].OrderNumber)
	assert.Equal(t, "ORD-2", recent[1].OrderNumber)

	shipped, err := c.OrdersByCustomerAndStatus(ctx, 7, models.StatusShipped)
	require.NoError(t, err)
	assert.Len(t, shipped, 2)

	cancelled, err := c.OrdersByCustomerAndStatus(ctx, 7, models.StatusCancelled)
	require.NoError(t, err)
	assert.Empty(t, cancelled)

	none, err := c.OrdersByCustomer(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestConversationHistory(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	turns := []models.ConversationTurn{
		{CustomerID: 7, SessionID: "s1", Message: "where is my order", Role: models.RoleUser},
		{CustomerID: 7, SessionID: "s1", Message: "It shipped.", Role: models.RoleAssistant},
		{CustomerID: 7, SessionID: "s2", Message: "other session", Role: models.RoleUser},
		{CustomerID: 8, SessionID: "s1", Message: "other customer", Role: models.RoleUser},
	}
	for i := range turns {
		require.NoError(t, c.AppendTurn(ctx, &turns[i]))
		assert.NotZero(t, turns[i].ID)
	}

	history, err := c.ConversationHistory(ctx, 7, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "It shipped.", history[1].Message)
	assert.Equal(t, fixedNow.UnixMilli(), history[0].Timestamp.UnixMilli())

	limited, err := c.ConversationHistory(ctx, 7, "s1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "It shipped.", limited[0].Message)

	all, err := c.ConversationHistory(ctx, 7, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "other session", all[2].Message)
}

func TestConversationHistoryKeepsNewestTurns(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		turn := models.ConversationTurn{CustomerID: 7, SessionID: "s1", Message: fmt.Sprintf("m%d", i), Role: models.RoleUser}
		require.NoError(t, c.AppendTurn(ctx, &turn))
	}

	for _, session := range []string{"s1", ""} {
		history, err := c.ConversationHistory(ctx, 7, session, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "m3", history[0].Message)
		assert.Equal(t, "m4", history[1].Message)
	}
}

func TestKnowledgeSimilaritySearch(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	docs := []models.KnowledgeDocument{
		{ID: "returns", Title: "Return Policy", Category: "policy", Content: "30 days", Tags: []string{"returns"}, Embedding: []float32{1, 0, 0}},
		{ID: "shipping", Title: "Shipping Times", Category: "shipping", Content: "3-5 days", Embedding: []float32{0, 1, 0}},
		{ID: "refunds", Title: "Refunds", Category: "policy", Content: "5 business days", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "unembedded", Title: "Draft", Category: "policy", Content: "n/a"},
	}
	require.NoError(t, c.Upsert(ctx, docs))

	n, err := c.CountKnowledgeDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := c.SimilaritySearch(ctx, []float32{1, 0, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "returns", got[0].ID)
	assert.Equal(t, "refunds", got[1].ID)
	assert.Equal(t, []string{"returns"}, got[0].Tags)

	shipping, err := c.SimilaritySearch(ctx, []float32{1, 0, 0}, 3, "shipping")
	require.NoError(t, err)
	require.Len(t, shipping, 1)
	assert.Equal(t, "shipping", shipping[0].ID)

	docs[0].Title = "Return Policy v2"
	require.NoError(t, c.Upsert(ctx, docs[:1]))
	got, err = c.SimilaritySearch(ctx, []float32{1, 0, 0}, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "Return Policy v2", got[0].Title)

	empty, err := c.SimilaritySearch(ctx, []float32{1, 0, 0}, 0, "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
