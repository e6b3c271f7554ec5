package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/daotomata/hotel-ai-platform/internal/conversation"
	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

// chatwootEvent is the slice of Chatwoot's webhook payload this service
// consumes. Everything else in the payload is ignored.
type chatwootEvent struct {
	Event       string `json:"event"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	Private     bool   `json:"private"`
	Sender      struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"sender"`
	Conversation struct {
		ID int64 `json:"id"`
	} `json:"conversation"`
}

// ChatwootWebhookHandler receives message_created webhooks from each
// hotel's Chatwoot instance and feeds guest messages into the pipeline.
type ChatwootWebhookHandler struct {
	service *conversation.Service
	logger  *logging.Logger
}

func NewChatwootWebhookHandler(service *conversation.Service, logger *logging.Logger) *ChatwootWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatwootWebhookHandler{service: service, logger: logger}
}

// Handle processes POST /webhook/chatwoot/{hotelID}.
func (h *ChatwootWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	hotelID := chi.URLParam(r, "hotelID")
	if hotelID == "" {
		writeError(w, http.StatusBadRequest, "hotel id is required")
		return
	}

	var evt chatwootEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	// Only fresh guest messages enter the pipeline. Agent replies, bot
	// echoes and private notes would loop the webhook otherwise.
	if evt.Event != "message_created" ||
		evt.MessageType != "incoming" ||
		evt.Private ||
		!strings.EqualFold(evt.Sender.Type, "contact") {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if strings.TrimSpace(evt.Content) == "" || evt.Conversation.ID == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	in := conversation.Inbound{
		SessionID:      fmt.Sprintf("chatwoot-%d", evt.Conversation.ID),
		HotelID:        hotelID,
		Message:        evt.Content,
		ConversationID: evt.Conversation.ID,
	}
	if evt.Sender.Name != "" {
		in.UserContext = map[string]string{"guest_name": evt.Sender.Name}
	}

	out, err := h.service.HandleInbound(r.Context(), in)
	if err != nil {
		h.logger.Error("webhook processing failed",
			"hotel_id", hotelID,
			"conversation_id", evt.Conversation.ID,
			"error", err,
		)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, out)
}
