package handlers

import (
	"context"

	"github.com/daotomata/hotel-ai-platform/internal/agent"
	"github.com/daotomata/hotel-ai-platform/internal/confidence"
	"github.com/daotomata/hotel-ai-platform/internal/conversation"
	"github.com/daotomata/hotel-ai-platform/internal/hitl"
	"github.com/daotomata/hotel-ai-platform/internal/session"
)

type stubResponder struct {
	reply string
	err   error
}

func (r *stubResponder) Respond(_ context.Context, _ string, _ []session.Message, _ string) (agent.Reply, error) {
	if r.err != nil {
		return agent.Reply{}, r.err
	}
	return agent.Reply{Text: r.reply}, nil
}

type stubPlatform struct {
	statusErr   error
	statusCalls int
	sendCalls   int
}

func (p *stubPlatform) SendMessage(_ context.Context, _ string, _ int64, _ string, _ bool) (string, error) {
	p.sendCalls++
	return "msg-1", nil
}

func (p *stubPlatform) SetConversationStatus(_ context.Context, _ string, _ int64, _ hitl.ConversationStatus) error {
	p.statusCalls++
	return p.statusErr
}

type testEnv struct {
	store    session.Store
	platform *stubPlatform
	manager  *hitl.Manager
	service  *conversation.Service
}

func newTestEnv(responder agent.Responder) *testEnv {
	store := session.NewMemoryStore()
	platform := &stubPlatform{}
	evaluator := confidence.NewEvaluator(confidence.DefaultRules(), confidence.DefaultWeights(), nil, nil)
	manager := hitl.NewManager(evaluator, platform, hitl.NewMemoryLog(), hitl.ManagerConfig{Enabled: true, Threshold: 0.7}, nil)
	service := conversation.NewService(store, responder, manager, nil, nil)
	return &testEnv{store: store, platform: platform, manager: manager, service: service}
}
