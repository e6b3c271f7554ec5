package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daotomata/hotel-ai-platform/internal/conversation"
)

func webhookRouter(env *testEnv) http.Handler {
	h := NewChatwootWebhookHandler(env.service, nil)
	r := chi.NewRouter()
	r.Post("/webhook/chatwoot/{hotelID}", h.Handle)
	return r
}

func postWebhook(t *testing.T, router http.Handler, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/chatwoot/hotel-madrid", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatwootWebhookGuestMessage(t *testing.T) {
	env := newTestEnv(&stubResponder{reply: "La piscina del hotel abre a las nueve y cierra a las diez durante todo el verano."})
	router := webhookRouter(env)

	rec := postWebhook(t, router, `{
		"event": "message_created",
		"message_type": "incoming",
		"content": "¿Horario de la piscina?",
		"sender": {"type": "contact", "name": "Ana"},
		"conversation": {"id": 42}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var out conversation.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "chatwoot-42", out.SessionID)
	assert.Equal(t, "send_response", out.Action)

	history, err := env.store.History(context.Background(), "chatwoot-42")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestChatwootWebhookEscalation(t *testing.T) {
	env := newTestEnv(&stubResponder{reply: "Lo siento, no estoy seguro, tal vez pueda ayudarte recepción."})
	router := webhookRouter(env)

	rec := postWebhook(t, router, `{
		"event": "message_created",
		"message_type": "incoming",
		"content": "¿Aceptan mascotas grandes?",
		"sender": {"type": "contact"},
		"conversation": {"id": 43}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var out conversation.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Escalated)
	assert.Equal(t, 1, env.platform.statusCalls)
	assert.Equal(t, 1, env.platform.sendCalls)
}

func TestChatwootWebhookIgnoresNonGuestEvents(t *testing.T) {
	env := newTestEnv(&stubResponder{reply: "should never run"})
	router := webhookRouter(env)

	payloads := []string{
		// Agent reply echoed back by the webhook.
		`{"event": "message_created", "message_type": "outgoing", "content": "hola", "sender": {"type": "user"}, "conversation": {"id": 1}}`,
		// Private operator note.
		`{"event": "message_created", "message_type": "incoming", "private": true, "content": "nota", "sender": {"type": "contact"}, "conversation": {"id": 1}}`,
		// Different event type.
		`{"event": "conversation_status_changed", "message_type": "incoming", "content": "x", "sender": {"type": "contact"}, "conversation": {"id": 1}}`,
		// Empty content.
		`{"event": "message_created", "message_type": "incoming", "content": "  ", "sender": {"type": "contact"}, "conversation": {"id": 1}}`,
		// Missing conversation id.
		`{"event": "message_created", "message_type": "incoming", "content": "hola", "sender": {"type": "contact"}}`,
	}
	for _, payload := range payloads {
		rec := postWebhook(t, router, payload)
		require.Equal(t, http.StatusOK, rec.Code, payload)
		assert.Contains(t, rec.Body.String(), "ignored", payload)
	}

	history, err := env.store.History(context.Background(), "chatwoot-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestChatwootWebhookInvalidJSON(t *testing.T) {
	env := newTestEnv(&stubResponder{reply: "x"})
	router := webhookRouter(env)

	rec := postWebhook(t, router, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
