package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daotomata/hotel-ai-platform/internal/hitl"
	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

// EscalationsHandler exposes manual escalation and analytics endpoints
// for hotel operators.
type EscalationsHandler struct {
	manager *hitl.Manager
	logger  *logging.Logger
}

func NewEscalationsHandler(manager *hitl.Manager, logger *logging.Logger) *EscalationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &EscalationsHandler{manager: manager, logger: logger}
}

type forceEscalateRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Reason         string `json:"reason"`
}

// Force handles POST /api/escalations/{hotelID}/force.
func (h *EscalationsHandler) Force(w http.ResponseWriter, r *http.Request) {
	hotelID := chi.URLParam(r, "hotelID")
	if hotelID == "" {
		writeError(w, http.StatusBadRequest, "hotel id is required")
		return
	}

	var req forceEscalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.ConversationID == 0 {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	outcome := h.manager.ForceEscalate(r.Context(), hotelID, req.ConversationID, req.Reason)
	status := http.StatusOK
	if !outcome.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, outcome)
}

// Stats handles GET /api/escalations/stats. With a hotel_id query
// parameter it returns that hotel's stats, otherwise the global view.
func (h *EscalationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	hotelID := r.URL.Query().Get("hotel_id")

	if hotelID != "" {
		stats, err := h.manager.HotelStats(r.Context(), hotelID)
		if err != nil {
			h.logger.Error("failed to load hotel escalation stats", "hotel_id", hotelID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := h.manager.GlobalStats(r.Context())
	if err != nil {
		h.logger.Error("failed to load global escalation stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
