package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/daotomata/hotel-ai-platform/internal/session"
)

// Reply is the agent output consumed by the concierge pipeline.
type Reply struct {
	Text      string
	ToolsUsed []string
}

// Responder generates a concierge reply from the session prompt and the
// latest guest message. The reply generation itself is an external
// collaborator; this package only defines the contract and a thin
// LLM-backed implementation.
type Responder interface {
	Respond(ctx context.Context, systemPrompt string, history []session.Message, userMessage string) (Reply, error)
}

// LLMResponder implements Responder on top of an LLMClient.
type LLMResponder struct {
	client LLMClient
	model  string
}

// NewLLMResponder creates an LLM-backed responder.
func NewLLMResponder(client LLMClient, model string) *LLMResponder {
	return &LLMResponder{client: client, model: model}
}

func (r *LLMResponder) Respond(ctx context.Context, systemPrompt string, history []session.Message, userMessage string) (Reply, error) {
	if strings.TrimSpace(userMessage) == "" {
		return Reply{}, fmt.Errorf("agent: empty user message")
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	for _, msg := range history {
		if msg.Role == session.RoleSystem {
			continue
		}
		messages = append(messages, ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: userMessage})

	resp, err := r.client.Complete(ctx, LLMRequest{
		Model:       r.model,
		System:      []string{systemPrompt},
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("agent: completion failed: %w", err)
	}
	return Reply{Text: resp.Text}, nil
}
