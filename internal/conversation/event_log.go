package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

// Event is a structured record of one step in the concierge flow. All
// events share the same base fields for easy filtering/grep.
type Event struct {
	Time      string         `json:"time"`
	Event     string         `json:"event"`
	SessionID string         `json:"session_id"`
	HotelID   string         `json:"hotel_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventLogger emits structured JSON events at each decision point in
// the conversation flow. Designed for fast grep/filter debugging:
//
//	grep '"event":"confidence_evaluated"' /var/log/app.log
//	grep '"session_id":"chatwoot-42"' /var/log/app.log
type EventLogger struct {
	logger *logging.Logger
}

// NewEventLogger creates a new conversation event logger.
func NewEventLogger(logger *logging.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Log emits a structured conversation event.
func (e *EventLogger) Log(_ context.Context, event, sessionID, hotelID string, data map[string]any) {
	if e == nil || e.logger == nil {
		return
	}
	evt := Event{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Event:     event,
		SessionID: sessionID,
		HotelID:   hotelID,
		Data:      data,
	}
	b, _ := json.Marshal(evt)
	e.logger.Info(string(b))
}

// Convenience methods for common events:

func (e *EventLogger) MessageReceived(ctx context.Context, sessionID, hotelID, message string) {
	// Truncate message for logging
	msg := message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	e.Log(ctx, "message_received", sessionID, hotelID, map[string]any{
		"message": msg,
	})
}

func (e *EventLogger) AgentReplyGenerated(ctx context.Context, sessionID, hotelID string, durationMs int64, replyLen int) {
	e.Log(ctx, "agent_reply_generated", sessionID, hotelID, map[string]any{
		"duration_ms": durationMs,
		"reply_len":   replyLen,
	})
}

func (e *EventLogger) ConfidenceEvaluated(ctx context.Context, sessionID, hotelID string, score float64, method string, shouldEscalate bool) {
	e.Log(ctx, "confidence_evaluated", sessionID, hotelID, map[string]any{
		"score":           score,
		"method":          method,
		"should_escalate": shouldEscalate,
	})
}

func (e *EventLogger) Escalated(ctx context.Context, sessionID, hotelID string, conversationID int64, success bool) {
	e.Log(ctx, "escalated_to_human", sessionID, hotelID, map[string]any{
		"conversation_id": conversationID,
		"success":         success,
	})
}

func (e *EventLogger) ResponseSent(ctx context.Context, sessionID, hotelID, action string) {
	e.Log(ctx, "response_sent", sessionID, hotelID, map[string]any{
		"action": action,
	})
}

func (e *EventLogger) ErrorOccurred(ctx context.Context, sessionID, hotelID, step string, err error) {
	e.Log(ctx, "error", sessionID, hotelID, map[string]any{
		"step":  step,
		"error": err.Error(),
	})
}
