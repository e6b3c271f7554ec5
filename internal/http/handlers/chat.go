package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daotomata/hotel-ai-platform/internal/conversation"
	"github.com/daotomata/hotel-ai-platform/internal/session"
	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

// ChatHandler exposes the concierge pipeline for direct API clients
// (web chat widget, integration tests).
type ChatHandler struct {
	service *conversation.Service
	store   session.Store
	logger  *logging.Logger
}

func NewChatHandler(service *conversation.Service, store session.Store, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{service: service, store: store, logger: logger}
}

// Message handles POST /api/chat.
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var in conversation.Inbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	out, err := h.service.HandleInbound(r.Context(), in)
	if err != nil {
		h.logger.Warn("rejected chat request", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// History handles GET /api/sessions/{sessionID}/history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	history, err := h.store.History(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load session history", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if history == nil {
		history = []session.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"history":    history,
	})
}

// ClearSession handles DELETE /api/sessions/{sessionID}.
func (h *ChatHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	existed, err := h.store.Clear(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to clear session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"cleared":    existed,
	})
}
