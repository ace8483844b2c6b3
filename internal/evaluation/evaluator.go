package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/chat"
	"github.com/order-chatbot/backend/internal/knowledge"
	"github.com/order-chatbot/backend/internal/vector"
	"github.com/order-chatbot/backend/pkg/logger"
)

type MessageHandler interface {
	HandleMessage(ctx context.Context, req chat.Request) chat.Response
}

// Evaluator replays a dataset of customer messages through the chat pipeline
// and scores the replies.
type Evaluator struct {
	chat     MessageHandler
	embedder knowledge.Embedder
	log      *zap.Logger
}

type Dataset struct {
	Items []DatasetItem `json:"items"`
}

type DatasetItem struct {
	Message         string `json:"message"`
	CustomerID      int64  `json:"customer_id"`
	ExpectedIntent  string `json:"expected_intent"`
	ReferenceAnswer string `json:"reference_answer"`
	// MustMention lists substrings the reply has to contain, such as an order number.
	MustMention []string `json:"must_mention"`
	// MustNotMention lists substrings that would leak another customer's data.
	MustNotMention []string `json:"must_not_mention"`
}

type ItemResult struct {
	Message     string
	Intent      chat.Intent
	IntentMatch bool
	Fallback    bool
	Confidence  float64
	// Similarity is the cosine similarity to the reference answer, or -1 when
	// there is no reference or it could not be computed.
	Similarity float64
	Missing    []string
	Leaked     []string
}

type Report struct {
	Total         int
	IntentMatches int
	Fallbacks     int
	Leaks         int
	AvgConfidence float64
	AvgSimilarity float64
	ScoredAnswers int
	Results       []ItemResult
}

func NewEvaluator(chat MessageHandler, embedder knowledge.Embedder) *Evaluator {
	return &Evaluator{
		chat:     chat,
		embedder: embedder,
		log:      logger.Named("evaluation"),
	}
}

func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var dataset Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}
	return &dataset, nil
}

func (e *Evaluator) EvaluateItem(ctx context.Context, index int, item DatasetItem) ItemResult {
	resp := e.chat.HandleMessage(ctx, chat.Request{
		Message:    item.Message,
		CustomerID: item.CustomerID,
		SessionID:  fmt.Sprintf("eval-%d", index),
	})

	result := ItemResult{
		Message:     item.Message,
		Intent:      resp.Intent,
		IntentMatch: item.ExpectedIntent == "" || resp.Intent.String() == item.ExpectedIntent,
		Fallback:    resp.Text == chat.FallbackReply,
		Confidence:  resp.Confidence,
		Similarity:  -1,
	}

	for _, s := range item.MustMention {
		if !containsFold(resp.Text, s) {
			result.Missing = append(result.Missing, s)
		}
	}
	for _, s := range item.MustNotMention {
		if containsFold(resp.Text, s) {
			result.Leaked = append(result.Leaked, s)
		}
	}

	if item.ReferenceAnswer != "" && !result.Fallback {
		sim, err := e.similarity(ctx, resp.Text, item.ReferenceAnswer)
		if err != nil {
			e.log.Warn("Failed to calculate cosine similarity", zap.Int("index", index), zap.Error(err))
		} else {
			result.Similarity = sim
		}
	}

	return result
}

func (e *Evaluator) Run(ctx context.Context, dataset *Dataset) (*Report, error) {
	e.log.Info("Running dataset evaluation", zap.Int("items", len(dataset.Items)))

	report := &Report{Total: len(dataset.Items)}
	var totalConfidence, totalSimilarity float64

	for i, item := range dataset.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := e.EvaluateItem(ctx, i, item)
		report.Results = append(report.Results, result)

		if result.IntentMatch {
			report.IntentMatches++
		}
		if result.Fallback {
			report.Fallbacks++
		}
		if len(result.Leaked) > 0 {
			report.Leaks++
			e.log.Error("Reply mentioned forbidden content",
				zap.Int("index", i),
				zap.Strings("leaked", result.Leaked),
			)
		}
		totalConfidence += result.Confidence
		if result.Similarity >= 0 {
			totalSimilarity += result.Similarity
			report.ScoredAnswers++
		}
	}

	if report.Total > 0 {
		report.AvgConfidence = totalConfidence / float64(report.Total)
	}
	if report.ScoredAnswers > 0 {
		report.AvgSimilarity = totalSimilarity / float64(report.ScoredAnswers)
	}

	e.log.Info("Dataset evaluation completed",
		zap.Int("total", report.Total),
		zap.Int("intent_matches", report.IntentMatches),
		zap.Int("fallbacks", report.Fallbacks),
		zap.Int("leaks", report.Leaks),
	)

	return report, nil
}

func (e *Evaluator) similarity(ctx context.Context, reply, reference string) (float64, error) {
	a, err := e.embedder.Embed(ctx, reply)
	if err != nil {
		return 0, err
	}
	b, err := e.embedder.Embed(ctx, reference)
	if err != nil {
		return 0, err
	}

	dist, err := vector.CosineDistance(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - dist, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func (r *Report) String() string {
	return fmt.Sprintf(`
Evaluation Report
=================

Messages: %d

Intent accuracy: %d (%.1f%%)
Fallback replies: %d (%.1f%%)
Replies leaking other customers' data: %d

Average confidence: %.2f
Average similarity to reference: %.3f (%d scored)
`,
		r.Total,
		r.IntentMatches, percent(r.IntentMatches, r.Total),
		r.Fallbacks, percent(r.Fallbacks, r.Total),
		r.Leaks,
		r.AvgConfidence,
		r.AvgSimilarity, r.ScoredAnswers,
	)
}
