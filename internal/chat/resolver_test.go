package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-chatbot/backend/internal/storage/models"
)

const (
	alice int64 = 1
	bob   int64 = 2
)

func fixtureOrders() *memoryOrders {
	foreign := order("ORD-500", bob, models.StatusProcessing, 29999, 24*time.Hour)
	foreign.ShippingAddress = "9 Harbour Road, Portsmouth"

	return &memoryOrders{orders: []models.Order{
		order("ORD-007", alice, models.StatusShipped, 4950, 2*24*time.Hour),
		order("ORD-008", alice, models.StatusDelivered, 12000, 60*24*time.Hour),
		foreign,
	}}
}

func resolve(t *testing.T, orders OrderStore, message string, customer int64) []Block {
	t.Helper()
	return NewOrderContextResolver(orders, 30).Resolve(context.Background(), message, customer)
}

func TestResolveOwnedOrder(t *testing.T) {
	blocks := resolve(t, fixtureOrders(), "What's the status of order ORD-007?", alice)
	require.Len(t, blocks, 1)

	b, ok := blocks[0].(SpecificOrderBlock)
	require.True(t, ok)
	text := b.Render()
	assert.Contains(t, text, "- Order Number: ORD-007")
	assert.Contains(t, text, "- Status: SHIPPED")
	assert.Contains(t, text, "- Total Amount: $49.50")
	assert.Contains(t, text, "- Shipping Address: 42 Elm Street, Springfield")
	assert.Contains(t, text, "- Created Date: 2024-03-13 12:00")
	assert.Contains(t, text, "- Last Updated: 2024-03-13 13:00")
}

func TestResolveForeignOrderIsDenied(t *testing.T) {
	blocks := resolve(t, fixtureOrders(), "where is ORD-500", alice)
	require.Len(t, blocks, 1)
	assert.Equal(t, AccessDeniedBlock{OrderNumber: "ORD-500"}, blocks[0])
	assert.Equal(t,
		"ACCESS DENIED: I'm sorry, but I can only provide information about your own orders. The order number 'ORD-500' does not belong to your account.",
		blocks[0].Render())
}

func TestResolveMissingOrder(t *testing.T) {
	blocks := resolve(t, fixtureOrders(), "check ORD-999 please", alice)
	require.Len(t, blocks, 1)
	assert.Equal(t, "ORDER NOT FOUND: The order number 'ORD-999' was not found in our system.", blocks[0].Render())
}

func TestResolveHistory(t *testing.T) {
	blocks := resolve(t, fixtureOrders(), "show me all my orders", alice)
	require.Len(t, blocks, 1)
	assert.Equal(t,
		"CUSTOMER ORDER HISTORY:\n"+
			"- Order ORD-007: SHIPPED, $49.50, 2024-03-13 12:00\n"+
			"- Order ORD-008: DELIVERED, $120.00, 2024-01-15 12:00",
		blocks[0].Render())

	empty := resolve(t, &memoryOrders{}, "show me my order history", alice)
	require.Len(t, empty, 1)
	assert.Equal(t, "ORDER HISTORY: No orders found for this customer.", empty[0].Render())
}

func TestResolveRecent(t *testing.T) {
	blocks := resolve(t, fixtureOrders(), "what did I buy recently", alice)
	require.Len(t, blocks, 1)
	assert.Equal(t, "RECENT ORDERS (Last 30 days):\n- Order ORD-007: SHIPPED, $49.50, 2024-03-13 12:00", blocks[0].Render())

	empty := resolve(t, &memoryOrders{}, "latest purchases", alice)
	assert.Equal(t, "RECENT ORDERS: No recent orders found.", empty[0].Render())
}

func TestResolveStatusFilter(t *testing.T) {
	blocks := resolve(t, fixtureOrders(), "anything delivered?", alice)
	require.Len(t, blocks, 1)
	assert.Equal(t, "ORDERS WITH STATUS 'DELIVERED':\n- Order ORD-008: $120.00, 2024-01-15 12:00", blocks[0].Render())

	none := resolve(t, fixtureOrders(), "any cancelled ones", alice)
	assert.Equal(t, "No orders found with status 'CANCELLED'.", none[0].Render())
}

func TestResolveStatusFilterNeverCrossesCustomers(t *testing.T) {
	blocks := resolve(t, fixtureOrders(), "which are processing", alice)
	require.Len(t, blocks, 1)
	assert.NotContains(t, blocks[0].Render(), "ORD-500")
}

func TestResolveStepsAreAdditiveAndOrdered(t *testing.T) {
	blocks := resolve(t, fixtureOrders(), "ORD-007 and my order history, the latest shipped ones", alice)
	require.Len(t, blocks, 4)
	assert.IsType(t, SpecificOrderBlock{}, blocks[0])
	assert.IsType(t, OrderHistoryBlock{}, blocks[1])
	assert.IsType(t, RecentOrdersBlock{}, blocks[2])
	assert.IsType(t, StatusFilteredBlock{}, blocks[3])
}

func TestResolveNothingApplies(t *testing.T) {
	blocks := resolve(t, fixtureOrders(), "what is your return policy", alice)
	assert.Equal(t, []Block{EmptyBlock{}}, blocks)
	assert.Empty(t, blocks[0].Render())
}

func TestResolveLookupFailureKeepsOtherSteps(t *testing.T) {
	orders := fixtureOrders()
	orders.fail = map[string]bool{"by_number": true, "recent": true}

	blocks := resolve(t, orders, "ORD-007 in my order history, latest first", alice)
	require.Len(t, blocks, 2)
	assert.Equal(t, ErrorBlock{}, blocks[0])
	assert.Equal(t, "ERROR: Unable to retrieve order information at this time.", blocks[0].Render())
	assert.IsType(t, OrderHistoryBlock{}, blocks[1])
}

func TestForeignOrderNeverLeaks(t *testing.T) {
	orders := fixtureOrders()
	foreign := orders.orders[2]

	messages := []string{
		"What's the status of order ORD-500?",
		"ORD-500 where is it",
		"(ORD-500) my order history, recent, processing",
		"is ORD-500 shipped or processing",
	}

	retriever := &stubRetriever{}
	assembler := NewContextAssembler(retriever, NewOrderContextResolver(orders, 30), 3)

	for _, msg := range messages {
		blocks := assembler.Blocks(context.Background(), msg, alice)
		var denied bool
		for _, b := range blocks {
			if _, ok := b.(SpecificOrderBlock); ok {
				t.Fatalf("specific order block for foreign order in %q", msg)
			}
			if d, ok := b.(AccessDeniedBlock); ok {
				denied = true
				assert.Equal(t, "ORD-500", d.OrderNumber)
			}
		}
		assert.True(t, denied, msg)

		text := Render(blocks)
		assert.NotContains(t, text, foreign.ShippingAddress, msg)
		assert.NotContains(t, text, "299.99", msg)
		assert.NotContains(t, text, "Order ORD-500:", msg)
		assert.NotContains(t, text, "Order Number: ORD-500", msg)
	}
}
