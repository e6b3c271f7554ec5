package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daotomata/hotel-ai-platform/internal/session"
)

type fakeLLM struct {
	resp LLMResponse
	err  error
	got  LLMRequest
}

func (f *fakeLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	f.got = req
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return f.resp, nil
}

func TestRespondBuildsRequest(t *testing.T) {
	llm := &fakeLLM{resp: LLMResponse{Text: "Buenos días, claro que sí."}}
	r := NewLLMResponder(llm, "gemini-2.5-flash")

	history := []session.Message{
		{Role: session.RoleSystem, Content: "internal note"},
		{Role: session.RoleUser, Content: "hola"},
		{Role: session.RoleAssistant, Content: "buenos días"},
	}

	reply, err := r.Respond(context.Background(), "You are a concierge.", history, "¿tienen spa?")
	require.NoError(t, err)
	assert.Equal(t, "Buenos días, claro que sí.", reply.Text)

	assert.Equal(t, "gemini-2.5-flash", llm.got.Model)
	assert.Equal(t, []string{"You are a concierge."}, llm.got.System)

	// System entries in history are folded out; only the dialogue plus
	// the live turn travel as messages.
	require.Len(t, llm.got.Messages, 3)
	assert.Equal(t, ChatRoleUser, llm.got.Messages[0].Role)
	assert.Equal(t, "hola", llm.got.Messages[0].Content)
	assert.Equal(t, ChatRoleAssistant, llm.got.Messages[1].Role)
	assert.Equal(t, "¿tienen spa?", llm.got.Messages[2].Content)
}

func TestRespondEmptyMessage(t *testing.T) {
	r := NewLLMResponder(&fakeLLM{}, "m")

	_, err := r.Respond(context.Background(), "sys", nil, "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty user message")
}

func TestRespondPropagatesClientError(t *testing.T) {
	r := NewLLMResponder(&fakeLLM{err: errors.New("quota exceeded")}, "m")

	_, err := r.Respond(context.Background(), "sys", nil, "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion failed")
}
