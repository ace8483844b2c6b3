package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/order-chatbot/backend/internal/llm"
	"github.com/order-chatbot/backend/internal/storage/models"
)

var errStoreDown = errors.New("order store unreachable")

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type memoryOrders struct {
	orders []models.Order
	fail   map[string]bool
}

func (m *memoryOrders) OrderByNumber(_ context.Context, number string) (*models.Order, error) {
	if m.fail["by_number"] {
		return nil, errStoreDown
	}
	for _, o := range m.orders {
		if o.OrderNumber == number {
			o := o
			return &o, nil
		}
	}
	return nil, models.ErrOrderNotFound
}

func (m *memoryOrders) filter(keep func(models.Order) bool) []models.Order {
	var out []models.Order
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryOrders) OrdersByCustomer(_ context.Context, customerID int64) ([]models.Order, error) {
	if m.fail["history"] {
		return nil, errStoreDown
	}
	return m.filter(func(o models.Order) bool { return o.CustomerID == customerID }), nil
}

func (m *memoryOrders) RecentOrdersByCustomer(_ context.Context, customerID int64, days int) ([]models.Order, error) {
	if m.fail["recent"] {
		return nil, errStoreDown
	}
	since := testNow.AddDate(0, 0, -days)
	return m.filter(func(o models.Order) bool {
		return o.CustomerID == customerID && !o.CreatedAt.Before(since)
	}), nil
}

func (m *memoryOrders) OrdersByCustomerAndStatus(_ context.Context, customerID int64, status models.OrderStatus) ([]models.Order, error) {
	if m.fail["status"] {
		return nil, errStoreDown
	}
	return m.filter(func(o models.Order) bool {
		return o.CustomerID == customerID && o.Status == status
	}), nil
}

type stubRetriever struct {
	docs  []models.KnowledgeDocument
	query string
	k     int
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, k int, _ string) []models.KnowledgeDocument {
	s.query, s.k = query, k
	if len(s.docs) > k {
		return s.docs[:k]
	}
	return s.docs
}

type stubCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []llm.CompletionRequest
}

func (s *stubCompleter) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.reply}, nil
}

func (s *stubCompleter) last() llm.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqs[len(s.reqs)-1]
}

type memorySink struct {
	mu    sync.Mutex
	turns []models.ConversationTurn
	err   error
}

func (m *memorySink) AppendTurn(_ context.Context, turn *models.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.turns = append(m.turns, *turn)
	return nil
}

func (m *memorySink) all() []models.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ConversationTurn(nil), m.turns...)
}

func order(number string, customer int64, status models.OrderStatus, total models.Money, age time.Duration) models.Order {
	created := testNow.Add(-age)
	return models.Order{
		OrderNumber:     number,
		CustomerID:      customer,
		Status:          status,
		Total:           total,
		ShippingAddress: "42 Elm Street, Springfield",
		CreatedAt:       created,
		UpdatedAt:       created.Add(time.Hour),
	}
}
