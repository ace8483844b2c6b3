package chat

import (
	"context"
	"strings"

	"github.com/sourcegraph/conc"

	"github.com/order-chatbot/backend/internal/knowledge"
	"github.com/order-chatbot/backend/internal/storage/models"
)

const defaultRetrievalK = 3

type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, query string, k int, category string) []models.KnowledgeDocument
}

// ContextAssembler builds the grounding context for one message. Knowledge
// retrieval and order resolution run concurrently; the output order is fixed.
type ContextAssembler struct {
	knowledge KnowledgeRetriever
	orders    *OrderContextResolver
	k         int
}

func NewContextAssembler(knowledge KnowledgeRetriever, orders *OrderContextResolver, k int) *ContextAssembler {
	if k <= 0 {
		k = defaultRetrievalK
	}
	return &ContextAssembler{knowledge: knowledge, orders: orders, k: k}
}

// Blocks returns the knowledge block followed by the order blocks.
func (a *ContextAssembler) Blocks(ctx context.Context, message string, customerID int64) []Block {
	var (
		wg          conc.WaitGroup
		docs        []models.KnowledgeDocument
		orderBlocks []Block
	)

	wg.Go(func() {
		docs = a.knowledge.Retrieve(ctx, message, a.k, "")
	})
	wg.Go(func() {
		orderBlocks = a.orders.Resolve(ctx, message, customerID)
	})
	wg.Wait()

	blocks := make([]Block, 0, len(orderBlocks)+1)
	blocks = append(blocks, KnowledgeBlock{Text: knowledge.BuildContext(docs)})
	return append(blocks, orderBlocks...)
}

// Assemble renders the knowledge text, a blank line, then each order block
// separated by a blank line.
func (a *ContextAssembler) Assemble(ctx context.Context, message string, customerID int64) string {
	return Render(a.Blocks(ctx, message, customerID))
}

func Render(blocks []Block) string {
	if len(blocks) == 0 {
		return ""
	}

	orderTexts := make([]string, 0, len(blocks)-1)
	for _, b := range blocks[1:] {
		orderTexts = append(orderTexts, b.Render())
	}
	return blocks[0].Render() + "\n\n" + strings.Join(orderTexts, "\n\n")
}
