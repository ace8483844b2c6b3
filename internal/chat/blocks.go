package chat

import (
	"fmt"
	"strings"

	"github.com/order-chatbot/backend/internal/storage/models"
)

const dateLayout = "2006-01-02 15:04"

// Block is one unit of grounding context. The set of implementations is
// closed to this package.
type Block interface {
	Render() string
	block()
}

type KnowledgeBlock struct {
	Text string
}

type SpecificOrderBlock struct {
	Order models.Order
}

// AccessDeniedBlock names the requested order number and nothing else.
type AccessDeniedBlock struct {
	OrderNumber string
}

type OrderNotFoundBlock struct {
	OrderNumber string
}

type OrderHistoryBlock struct {
	Orders []models.Order
}

type RecentOrdersBlock struct {
	Days   int
	Orders []models.Order
}

type StatusFilteredBlock struct {
	Status models.OrderStatus
	Orders []models.Order
}

type ErrorBlock struct{}

type EmptyBlock struct{}

func (KnowledgeBlock) block()      {}
func (SpecificOrderBlock) block()  {}
func (AccessDeniedBlock) block()   {}
func (OrderNotFoundBlock) block()  {}
func (OrderHistoryBlock) block()   {}
func (RecentOrdersBlock) block()   {}
func (StatusFilteredBlock) block() {}
func (ErrorBlock) block()          {}
func (EmptyBlock) block()          {}

func (b KnowledgeBlock) Render() string {
	return b.Text
}

func (b SpecificOrderBlock) Render() string {
	o := b.Order

	var sb strings.Builder
	sb.WriteString("SPECIFIC ORDER INFORMATION:\n")
	fmt.Fprintf(&sb, "- Order Number: %s\n", o.OrderNumber)
	fmt.Fprintf(&sb, "- Status: %s\n", o.Status)
	fmt.Fprintf(&sb, "- Total Amount: $%s\n", o.Total)
	fmt.Fprintf(&sb, "- Shipping Address: %s\n", o.ShippingAddress)
	fmt.Fprintf(&sb, "- Created Date: %s", o.CreatedAt.Format(dateLayout))
	if !o.UpdatedAt.IsZero() {
		fmt.Fprintf(&sb, "\n- Last Updated: %s", o.UpdatedAt.Format(dateLayout))
	}
	return sb.String()
}

func (b AccessDeniedBlock) Render() string {
	return fmt.Sprintf("ACCESS DENIED: I'm sorry, but I can only provide information about your own orders. "+
		"The order number '%s' does not belong to your account.", b.OrderNumber)
}

func (b OrderNotFoundBlock) Render() string {
	return fmt.Sprintf("ORDER NOT FOUND: The order number '%s' was not found in our system.", b.OrderNumber)
}

func (b OrderHistoryBlock) Render() string {
	if len(b.Orders) == 0 {
		return "ORDER HISTORY: No orders found for this customer."
	}
	return "CUSTOMER ORDER HISTORY:\n" + orderLines(b.Orders, true)
}

func (b RecentOrdersBlock) Render() string {
	if len(b.Orders) == 0 {
		return "RECENT ORDERS: No recent orders found."
	}
	return fmt.Sprintf("RECENT ORDERS (Last %d days):\n", b.Days) + orderLines(b.Orders, true)
}

func (b StatusFilteredBlock) Render() string {
	if len(b.Orders) == 0 {
		return fmt.Sprintf("No orders found with status '%s'.", b.Status)
	}
	return fmt.Sprintf("ORDERS WITH STATUS '%s':\n", b.Status) + orderLines(b.Orders, false)
}

func (ErrorBlock) Render() string {
	return "ERROR: Unable to retrieve order information at this time."
}

func (EmptyBlock) Render() string {
	return ""
}

func orderLines(orders []models.Order, withStatus bool) string {
	lines := make([]string, len(orders))
	for i, o := range orders {
		if withStatus {
			lines[i] = fmt.Sprintf("- Order %s: %s, $%s, %s", o.OrderNumber, o.Status, o.Total, o.CreatedAt.Format(dateLayout))
		} else {
			lines[i] = fmt.Sprintf("- Order %s: $%s, %s", o.OrderNumber, o.Total, o.CreatedAt.Format(dateLayout))
		}
	}
	return strings.Join(lines, "\n")
}
