// Package conversation drives one guest turn end to end: session
// bookkeeping, prompt construction, agent reply, confidence gating and
// delivery of a guest-safe message.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/daotomata/hotel-ai-platform/internal/agent"
	"github.com/daotomata/hotel-ai-platform/internal/hitl"
	"github.com/daotomata/hotel-ai-platform/internal/observability/metrics"
	"github.com/daotomata/hotel-ai-platform/internal/session"
	"github.com/daotomata/hotel-ai-platform/internal/tenancy"
	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

var tracer = otel.Tracer("concierge/conversation")

// contextMessageWindow bounds how much history travels to the judge.
const contextMessageWindow = 4

const fallbackReply = "Lo siento, en este momento no puedo atender tu mensaje. Un miembro de nuestro equipo te responderá en breve."

// Inbound is the message envelope produced by the webhook layer.
type Inbound struct {
	SessionID      string            `json:"session_id"`
	HotelID        string            `json:"hotel_id"`
	Message        string            `json:"message"`
	ConversationID int64             `json:"conversation_id,omitempty"`
	UserContext    map[string]string `json:"user_context,omitempty"`
}

// Outcome is what the caller delivers back to the guest.
type Outcome struct {
	SessionID string  `json:"session_id"`
	Reply     string  `json:"reply"`
	Action    string  `json:"action_taken"`
	Score     float64 `json:"confidence_score"`
	Method    string  `json:"evaluation_method,omitempty"`
	Escalated bool    `json:"escalated"`
}

// Service orchestrates the concierge pipeline for inbound messages.
type Service struct {
	store     session.Store
	responder agent.Responder
	manager   *hitl.Manager
	events    *EventLogger
	logger    *logging.Logger
}

// NewService wires the pipeline together.
func NewService(store session.Store, responder agent.Responder, manager *hitl.Manager, events *EventLogger, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if events == nil {
		events = NewEventLogger(logger)
	}
	return &Service{
		store:     store,
		responder: responder,
		manager:   manager,
		events:    events,
		logger:    logger,
	}
}

// HandleInbound processes one guest message and returns the message to
// deliver. Agent and escalation failures degrade to deterministic
// guest-safe replies; only malformed input is returned as an error.
func (s *Service) HandleInbound(ctx context.Context, in Inbound) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "conversation.handle_inbound")
	defer span.End()

	if err := validateInbound(in); err != nil {
		return Outcome{}, err
	}

	ctx = tenancy.WithHotelID(ctx, in.HotelID)
	logger := s.logger.WithHotel(in.HotelID)
	span.SetAttributes(
		attribute.String("hotel.id", in.HotelID),
		attribute.String("session.id", in.SessionID),
	)
	metrics.MessagesTotal.WithLabelValues(in.HotelID).Inc()
	s.events.MessageReceived(ctx, in.SessionID, in.HotelID, in.Message)

	if _, err := s.store.GetOrCreate(ctx, in.SessionID, in.HotelID); err != nil {
		return Outcome{}, fmt.Errorf("conversation: failed to load session: %w", err)
	}
	if len(in.UserContext) > 0 {
		if err := s.store.SetPlatformContext(ctx, in.SessionID, in.UserContext); err != nil {
			logger.Warn("failed to merge platform context", "session_id", in.SessionID, "error", err)
		}
	}

	sess, err := session.AppendUserMessage(ctx, s.store, in.SessionID, in.Message)
	if err != nil {
		return Outcome{}, fmt.Errorf("conversation: failed to append user message: %w", err)
	}

	systemPrompt, history := session.BuildPrompt(sess)
	// The last history entry is the message just appended; the agent
	// receives it separately as the live turn.
	priorHistory := history
	if len(priorHistory) > 0 {
		priorHistory = priorHistory[:len(priorHistory)-1]
	}

	start := time.Now()
	reply, err := s.responder.Respond(ctx, systemPrompt, priorHistory, in.Message)
	if err != nil {
		s.events.ErrorOccurred(ctx, in.SessionID, in.HotelID, "agent_reply", err)
		logger.Error("agent reply generation failed",
			"session_id", in.SessionID,
			"error", err,
		)
		return s.handleAgentFailure(ctx, in)
	}
	s.events.AgentReplyGenerated(ctx, in.SessionID, in.HotelID, time.Since(start).Milliseconds(), len(reply.Text))

	decision := s.decide(ctx, in, reply.Text, priorHistory)

	if _, err := session.AppendAssistantMessage(ctx, s.store, in.SessionID, decision.GuestMessage); err != nil {
		logger.Warn("failed to append assistant message", "session_id", in.SessionID, "error", err)
	}
	s.events.ResponseSent(ctx, in.SessionID, in.HotelID, decision.Action)

	return Outcome{
		SessionID: in.SessionID,
		Reply:     decision.GuestMessage,
		Action:    decision.Action,
		Score:     decision.Confidence.Score,
		Method:    decision.Confidence.Method,
		Escalated: decision.Action == hitl.ActionEscalated,
	}, nil
}

// decide runs the confidence gate. Turns without a platform
// conversation id cannot be handed over, so the reply goes out as-is.
func (s *Service) decide(ctx context.Context, in Inbound, replyText string, history []session.Message) hitl.Decision {
	if s.manager == nil || in.ConversationID == 0 {
		return hitl.Decision{Action: hitl.ActionSendResponse, GuestMessage: replyText}
	}

	decision := s.manager.EvaluateAndHandle(ctx, hitl.Turn{
		HotelID:        in.HotelID,
		ConversationID: in.ConversationID,
		AIResponse:     replyText,
		UserQuestion:   in.Message,
		Context:        summarizeHistory(history),
	})

	s.events.ConfidenceEvaluated(ctx, in.SessionID, in.HotelID,
		decision.Confidence.Score, decision.Confidence.Method, decision.Confidence.ShouldEscalate)
	if decision.Escalation != nil {
		s.events.Escalated(ctx, in.SessionID, in.HotelID, in.ConversationID, decision.Escalation.Success)
	}
	return decision
}

// handleAgentFailure delivers a deterministic apology and pulls in a
// human when the turn is attached to a platform conversation.
func (s *Service) handleAgentFailure(ctx context.Context, in Inbound) (Outcome, error) {
	action := hitl.ActionSendResponse
	if s.manager != nil && s.manager.Enabled() && in.ConversationID != 0 {
		outcome := s.manager.ForceEscalate(ctx, in.HotelID, in.ConversationID, "Agent reply generation failed")
		if outcome.Success {
			action = hitl.ActionEscalated
		}
		s.events.Escalated(ctx, in.SessionID, in.HotelID, in.ConversationID, outcome.Success)
	}

	if _, err := session.AppendAssistantMessage(ctx, s.store, in.SessionID, fallbackReply); err != nil {
		s.logger.Warn("failed to append fallback reply", "session_id", in.SessionID, "error", err)
	}

	return Outcome{
		SessionID: in.SessionID,
		Reply:     fallbackReply,
		Action:    action,
		Escalated: action == hitl.ActionEscalated,
	}, nil
}

func validateInbound(in Inbound) error {
	switch {
	case strings.TrimSpace(in.SessionID) == "":
		return fmt.Errorf("conversation: session_id is required")
	case strings.TrimSpace(in.HotelID) == "":
		return fmt.Errorf("conversation: hotel_id is required")
	case strings.TrimSpace(in.Message) == "":
		return fmt.Errorf("conversation: message is required")
	}
	return nil
}

// summarizeHistory renders the tail of the conversation for the LLM
// judge's context field.
func summarizeHistory(history []session.Message) string {
	start := len(history) - contextMessageWindow
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, msg := range history[start:] {
		if msg.Role == session.RoleSystem {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	return strings.TrimSpace(b.String())
}
