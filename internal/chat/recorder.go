package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/metrics"
	"github.com/order-chatbot/backend/internal/storage/models"
	"github.com/order-chatbot/backend/pkg/logger"
)

type ConversationSink interface {
	AppendTurn(ctx context.Context, turn *models.ConversationTurn) error
}

// ConversationRecorder persists an exchange as a user turn followed by an
// assistant turn. Failures are logged and dropped.
type ConversationRecorder struct {
	sink ConversationSink
	now  func() time.Time
	log  *zap.Logger
}

func NewConversationRecorder(sink ConversationSink) *ConversationRecorder {
	return &ConversationRecorder{
		sink: sink,
		now:  time.Now,
		log:  logger.Named("chat.recorder"),
	}
}

func (r *ConversationRecorder) Record(ctx context.Context, customerID int64, sessionID, userMessage, reply string) {
	ts := r.now()

	turns := []models.ConversationTurn{
		{CustomerID: customerID, SessionID: sessionID, Message: userMessage, Role: models.RoleUser, Timestamp: ts},
		{CustomerID: customerID, SessionID: sessionID, Message: reply, Role: models.RoleAssistant, Timestamp: ts},
	}

	for i := range turns {
		if err := r.sink.AppendTurn(ctx, &turns[i]); err != nil {
			metrics.RecordingFailures.Inc()
			r.log.Error("Error saving conversation",
				zap.Int64("customer_id", customerID),
				zap.String("session_id", sessionID),
				zap.String("role", string(turns[i].Role)),
				zap.Error(err),
			)
			return
		}
	}

	r.log.Debug("Saved conversation",
		zap.Int64("customer_id", customerID),
		zap.String("session_id", sessionID),
	)
}
