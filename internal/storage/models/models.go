package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrOrderNotFound = errors.New("order not found")

type KnowledgeDocument struct {
	ID        string
	Title     string
	Category  string
	Content   string
	Tags      []string
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderStatus uint8

const (
	StatusProcessing OrderStatus = iota + 1
	StatusShipped
	StatusDelivered
	StatusCancelled
)

var orderStatusNames = map[OrderStatus]string{
	StatusProcessing: "PROCESSING",
	StatusShipped:    "SHIPPED",
	StatusDelivered:  "DELIVERED",
	StatusCancelled:  "CANCELLED",
}

// OrderStatuses lists every status in display order.
var OrderStatuses = []OrderStatus{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OrderStatus(%d)", uint8(s))
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	for status, name := range orderStatusNames {
		if name == upper {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", raw)
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid order status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *OrderStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Money is an amount in minor units (cents).
type Money int64

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

type Order struct {
	ID              int64
	OrderNumber     string
	CustomerID      int64
	Status          OrderStatus
	Total           Money
	ShippingAddress string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OwnedBy reports whether the order belongs to customerID.
func (o *Order) OwnedBy(customerID int64) bool {
	return o != nil && o.CustomerID == customerID
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ConversationTurn struct {
	ID         int64
	CustomerID int64
	SessionID  string
	Message    string
	Role       Role
	Timestamp  time.Time
}
