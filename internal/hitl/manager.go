// Package hitl decides whether an AI reply can go to the guest or must
// be handed to a human operator, and drives the chat platform calls
// that perform the handover.
package hitl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/daotomata/hotel-ai-platform/internal/confidence"
	"github.com/daotomata/hotel-ai-platform/internal/observability/metrics"
	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

var tracer = otel.Tracer("concierge/hitl")

// Decision actions.
const (
	ActionSendResponse = "send_response"
	ActionEscalated    = "escalated_to_human"
)

const (
	maxNoteQuestionLen = 200
	maxNoteResponseLen = 300

	defaultSideEffectTimeout = 30 * time.Second
)

// Decision is the outcome of one assistant turn. GuestMessage is always
// safe to deliver: the original AI text when confidence is high, the
// same text behind a handover notice when a human was pulled in, or a
// deterministic fallback when the handover itself failed.
type Decision struct {
	Action       string             `json:"action_taken"`
	GuestMessage string             `json:"guest_message"`
	Confidence   confidence.Result  `json:"confidence"`
	Threshold    float64            `json:"threshold_used"`
	Escalation   *EscalationOutcome `json:"escalation_result,omitempty"`
}

// EscalationOutcome reports one escalation attempt.
type EscalationOutcome struct {
	Success         bool              `json:"success"`
	Reason          string            `json:"reason"`
	ConfidenceScore float64           `json:"confidence_score"`
	ConversationID  int64             `json:"conversation_id"`
	HotelID         string            `json:"hotel_id"`
	Timestamp       time.Time         `json:"escalation_time"`
	Details         map[string]string `json:"details,omitempty"`
}

// Turn carries one assistant turn through evaluation and handling.
type Turn struct {
	HotelID        string
	ConversationID int64
	AIResponse     string
	UserQuestion   string
	Context        string
	Threshold      float64
}

// ManagerConfig tunes the escalation coordinator.
type ManagerConfig struct {
	Enabled           bool
	Threshold         float64
	SideEffectTimeout time.Duration
}

// Manager coordinates confidence evaluation and human handover.
type Manager struct {
	evaluator *confidence.Evaluator
	platform  Platform
	log       Log
	logger    *logging.Logger

	enabled   bool
	threshold float64
	timeout   time.Duration

	now func() time.Time
}

// NewManager creates an escalation coordinator.
func NewManager(evaluator *confidence.Evaluator, platform Platform, log Log, cfg ManagerConfig, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = confidence.DefaultThreshold
	}
	timeout := cfg.SideEffectTimeout
	if timeout <= 0 {
		timeout = defaultSideEffectTimeout
	}
	return &Manager{
		evaluator: evaluator,
		platform:  platform,
		log:       log,
		logger:    logger,
		enabled:   cfg.Enabled,
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Enabled reports whether escalation handling is active.
func (m *Manager) Enabled() bool { return m.enabled }

// EvaluateAndHandle scores the AI response and, when confidence falls
// below the threshold, hands the conversation to a human. Callers must
// invoke it exactly once per assistant turn.
func (m *Manager) EvaluateAndHandle(ctx context.Context, turn Turn) Decision {
	ctx, span := tracer.Start(ctx, "hitl.evaluate_and_handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("hotel.id", turn.HotelID),
		attribute.Int64("conversation.id", turn.ConversationID),
	)

	if !m.enabled {
		return Decision{Action: ActionSendResponse, GuestMessage: turn.AIResponse}
	}

	threshold := turn.Threshold
	if threshold <= 0 {
		threshold = m.threshold
	}

	result := m.evaluator.Evaluate(ctx, confidence.Input{
		Response:     turn.AIResponse,
		UserQuestion: turn.UserQuestion,
		Context:      turn.Context,
		Threshold:    threshold,
	})

	if !result.ShouldEscalate {
		m.logger.Info("confidence above threshold, sending AI response",
			"hotel_id", turn.HotelID,
			"conversation_id", turn.ConversationID,
			"score", result.Score,
		)
		return Decision{
			Action:       ActionSendResponse,
			GuestMessage: turn.AIResponse,
			Confidence:   result,
			Threshold:    threshold,
		}
	}

	m.logger.Warn("low confidence detected, escalating",
		"hotel_id", turn.HotelID,
		"conversation_id", turn.ConversationID,
		"score", result.Score,
		"threshold", threshold,
	)

	outcome := m.escalate(ctx, turn.HotelID, turn.ConversationID, result, turn.AIResponse, turn.UserQuestion, "AI confidence below threshold")

	locale := detectLocale(turn.UserQuestion, turn.AIResponse)
	guestMessage := fallbackGuestMessage(locale)
	if outcome.Success {
		// The original reply is preserved behind the handover notice,
		// never discarded.
		guestMessage = handoverNotice(locale) + "\n\n" + turn.AIResponse
	}

	return Decision{
		Action:       ActionEscalated,
		GuestMessage: guestMessage,
		Confidence:   result,
		Threshold:    threshold,
		Escalation:   &outcome,
	}
}

// ForceEscalate hands a conversation to a human regardless of
// confidence. Used for manual and administrative triggers.
func (m *Manager) ForceEscalate(ctx context.Context, hotelID string, conversationID int64, reason string) EscalationOutcome {
	if strings.TrimSpace(reason) == "" {
		reason = "Manual escalation"
	}
	m.logger.Info("force escalating conversation",
		"hotel_id", hotelID,
		"conversation_id", conversationID,
		"reason", reason,
	)

	result := confidence.Result{
		Score:          0,
		Reasons:        []string{reason},
		Method:         confidence.MethodManual,
		ShouldEscalate: true,
	}
	return m.escalate(ctx, hotelID, conversationID, result, "Manual escalation requested", "", reason)
}

// HotelStats returns escalation analytics for one hotel.
func (m *Manager) HotelStats(ctx context.Context, hotelID string) (HotelStats, error) {
	return m.log.HotelStats(ctx, hotelID)
}

// GlobalStats returns escalation analytics across all hotels.
func (m *Manager) GlobalStats(ctx context.Context) (GlobalStats, error) {
	return m.log.GlobalStats(ctx)
}

// escalate runs the handover sequence: open the conversation first,
// then post the internal note only if the status change succeeded, then
// record the attempt. Side effects run on a detached context so an
// upstream cancellation cannot leave the platform half-updated.
func (m *Manager) escalate(ctx context.Context, hotelID string, conversationID int64, result confidence.Result, aiResponse, userQuestion, reason string) EscalationOutcome {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "hitl.escalate")
	defer span.End()

	outcome := EscalationOutcome{
		ConfidenceScore: result.Score,
		ConversationID:  conversationID,
		HotelID:         hotelID,
		Timestamp:       m.now().UTC(),
		Details:         map[string]string{},
	}

	statusCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.platform.SetConversationStatus(statusCtx, hotelID, conversationID, StatusOpen)
	cancel()
	if err != nil {
		m.logger.Error("failed to open conversation for handover",
			"hotel_id", hotelID,
			"conversation_id", conversationID,
			"error", err,
		)
		outcome.Reason = "Failed to change conversation status"
		outcome.Details["error"] = err.Error()
		m.record(ctx, hotelID, conversationID, result, false)
		metrics.EscalationsTotal.WithLabelValues("failed").Inc()
		return outcome
	}

	note := formatEscalationNote(result, aiResponse, userQuestion)
	noteCtx, cancel := context.WithTimeout(ctx, m.timeout)
	messageID, noteErr := m.platform.SendMessage(noteCtx, hotelID, conversationID, note, true)
	cancel()
	if noteErr != nil {
		// The conversation is already open; a lost note degrades the
		// operator's context but the handover stands.
		m.logger.Warn("failed to post handover note",
			"hotel_id", hotelID,
			"conversation_id", conversationID,
			"error", noteErr,
		)
		outcome.Details["note_error"] = noteErr.Error()
	} else {
		outcome.Details["note_message_id"] = messageID
	}

	m.record(ctx, hotelID, conversationID, result, true)
	metrics.EscalationsTotal.WithLabelValues("escalated").Inc()

	outcome.Success = true
	outcome.Reason = reason
	m.logger.Info("conversation escalated to human",
		"hotel_id", hotelID,
		"conversation_id", conversationID,
		"score", result.Score,
	)
	return outcome
}

func (m *Manager) record(ctx context.Context, hotelID string, conversationID int64, result confidence.Result, success bool) {
	rec := Record{
		ConversationID: conversationID,
		HotelID:        hotelID,
		Score:          result.Score,
		Reasons:        result.Reasons,
		Method:         result.Method,
		Timestamp:      m.now().UTC(),
		Success:        success,
	}
	if err := m.log.Append(ctx, rec); err != nil {
		m.logger.Error("failed to record escalation", "hotel_id", hotelID, "error", err)
	}
}

// formatEscalationNote builds the private note operators see when a
// conversation is handed over.
func formatEscalationNote(result confidence.Result, aiResponse, userQuestion string) string {
	var b strings.Builder
	b.WriteString("🤖 **ESCALACIÓN AUTOMÁTICA - Agente IA**\n\n")
	fmt.Fprintf(&b, "**Motivo:** Confianza baja en la respuesta (%.1f%%)\n", result.Score*100)
	fmt.Fprintf(&b, "**Razones:** %s\n", strings.Join(result.Reasons, ", "))
	fmt.Fprintf(&b, "**Método:** %s\n\n", result.Method)
	fmt.Fprintf(&b, "**Pregunta del usuario:** %s\n\n", truncate(userQuestion, maxNoteQuestionLen))
	fmt.Fprintf(&b, "**Respuesta que iba a enviar el AI:**\n%s\n\n", truncate(aiResponse, maxNoteResponseLen))
	b.WriteString("Por favor, revisa la conversación y proporciona una respuesta adecuada al cliente.")
	return b.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

var spanishMarkers = []string{
	"¿", "¡", "á", "é", "í", "ó", "ú", "ñ",
	"hola", "gracias", "por favor", "habitacion", "reserva",
	" el ", " la ", " una ", " para ", " tienen ",
}

// detectLocale picks the guest-facing language from the conversation
// text. Spanish is the default for this deployment; English is used
// only when nothing Spanish shows up.
func detectLocale(texts ...string) string {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, marker := range spanishMarkers {
			if strings.Contains(lower, marker) {
				return "es"
			}
		}
	}
	if strings.TrimSpace(strings.Join(texts, "")) == "" {
		return "es"
	}
	return "en"
}

func handoverNotice(locale string) string {
	if locale == "en" {
		return "🤝 A member of our team has joined the conversation to assist you."
	}
	return "🤝 Un miembro de nuestro equipo se ha unido a la conversación para ayudarte."
}

func fallbackGuestMessage(locale string) string {
	if locale == "en" {
		return "Let me check that with our team. A colleague will get back to you shortly."
	}
	return "Permíteme consultarlo con nuestro equipo. Un compañero te responderá en breve."
}
