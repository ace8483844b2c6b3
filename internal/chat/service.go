package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/llm"
	"github.com/order-chatbot/backend/internal/metrics"
	"github.com/order-chatbot/backend/pkg/logger"
)

// FallbackReply is returned when no reply could be produced.
const FallbackReply = "I apologize, but I'm having trouble processing your request right now. Please try again in a moment."

type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type Request struct {
	Message    string
	CustomerID int64
	// SessionID groups turns of one conversation. A new id is generated when empty.
	SessionID string
}

type Response struct {
	Text       string    `json:"response"`
	Intent     Intent    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
}

type Options struct {
	MaxTokens     int
	Temperature   float32
	RecordTimeout time.Duration
}

type Service struct {
	assembler *ContextAssembler
	completer Completer
	recorder  *ConversationRecorder
	opts      Options
	now       func() time.Time
	newID     func() string
	log       *zap.Logger

	recordings conc.WaitGroup
}

func NewService(assembler *ContextAssembler, completer Completer, recorder *ConversationRecorder, opts Options) *Service {
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = 5 * time.Second
	}
	return &Service{
		assembler: assembler,
		completer: completer,
		recorder:  recorder,
		opts:      opts,
		now:       time.Now,
		newID:     uuid.NewString,
		log:       logger.Named("chat"),
	}
}

// HandleMessage always returns a usable response. When the reply cannot be
// produced it returns FallbackReply with IntentUnknown and zero confidence.
func (s *Service) HandleMessage(ctx context.Context, req Request) Response {
	start := s.now()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.newID()
	}

	s.log.Info("Processing message",
		zap.Int64("customer_id", req.CustomerID),
		zap.String("session_id", sessionID),
	)

	intent := Classify(req.Message)
	grounding := s.assembler.Assemble(ctx, req.Message, req.CustomerID)
	prompt := BuildPrompt(grounding, req.Message)

	reply, err := s.complete(ctx, prompt)
	if err != nil {
		return s.fallback(sessionID, err)
	}

	confidence := Score(req.Message, reply)
	resp := Response{
		Text:       reply,
		Intent:     intent,
		Confidence: confidence,
		Timestamp:  s.now(),
		SessionID:  sessionID,
	}

	s.recordAsync(ctx, req.CustomerID, sessionID, req.Message, reply)

	metrics.ChatTotal.WithLabelValues("ok").Inc()
	metrics.ChatDuration.WithLabelValues(intent.String()).Observe(s.now().Sub(start).Seconds())
	metrics.ConfidenceScore.Observe(confidence)

	s.log.Info("Successfully processed message",
		zap.String("intent", intent.String()),
		zap.Float64("confidence", confidence),
		zap.String("session_id", sessionID),
	)

	return resp
}

func (s *Service) complete(ctx context.Context, prompt Prompt) (string, error) {
	temperature := s.opts.Temperature
	resp, err := s.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		MaxTokens:    s.opts.MaxTokens,
		Temperature:  &temperature,
	})
	if err != nil {
		return "", &Error{Kind: KindCompletion, Err: err}
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", &Error{Kind: KindEmptyReply}
	}
	return resp.Content, nil
}

func (s *Service) fallback(sessionID string, err error) Response {
	kind := "unexpected"
	var chatErr *Error
	if errors.As(err, &chatErr) {
		kind = chatErr.Kind.String()
	}

	metrics.ChatTotal.WithLabelValues("fallback").Inc()
	s.log.Error("Error processing message, returning fallback",
		zap.String("kind", kind),
		zap.String("session_id", sessionID),
		zap.Bool("provider_unavailable", errors.Is(err, llm.ErrCompletionUnavailable)),
		zap.Error(err),
	)

	return Response{
		Text:       FallbackReply,
		Intent:     IntentUnknown,
		Confidence: 0,
		Timestamp:  s.now(),
		SessionID:  sessionID,
	}
}

// recordAsync persists the exchange off the request path. The recording
// outlives the request context but is bounded by RecordTimeout.
func (s *Service) recordAsync(ctx context.Context, customerID int64, sessionID, message, reply string) {
	if s.recorder == nil {
		return
	}

	recordCtx := context.WithoutCancel(ctx)
	s.recordings.Go(func() {
		ctx, cancel := context.WithTimeout(recordCtx, s.opts.RecordTimeout)
		defer cancel()
		s.recorder.Record(ctx, customerID, sessionID, message, reply)
	})
}

// Drain waits for in-flight recordings to finish.
func (s *Service) Drain() {
	s.recordings.Wait()
}
