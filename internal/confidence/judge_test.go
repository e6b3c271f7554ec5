package confidence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daotomata/hotel-ai-platform/internal/agent"
)

type recordingLLM struct {
	text     string
	requests []agent.LLMRequest
}

func (r *recordingLLM) Complete(_ context.Context, req agent.LLMRequest) (agent.LLMResponse, error) {
	r.requests = append(r.requests, req)
	return agent.LLMResponse{Text: r.text}, nil
}

func TestParseJudgeOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		score   float64
		reasons []string
		wantErr bool
	}{
		{
			name:    "plain json",
			raw:     `{"confidence": 0.85, "reasons": ["Específica", "Verificable"]}`,
			score:   0.85,
			reasons: []string{"Específica", "Verificable"},
		},
		{
			name:    "fenced json",
			raw:     "```json\n{\"confidence\": 0.4, \"reasons\": [\"Vaga\"]}\n```",
			score:   0.4,
			reasons: []string{"Vaga"},
		},
		{
			name:    "missing reasons gets default",
			raw:     `{"confidence": 0.5}`,
			score:   0.5,
			reasons: []string{"LLM evaluation completed"},
		},
		{
			name:  "out of range clamped",
			raw:   `{"confidence": 1.7, "reasons": ["x"]}`,
			score: 1.0, reasons: []string{"x"},
		},
		{
			name:    "missing confidence",
			raw:     `{"reasons": ["only reasons"]}`,
			wantErr: true,
		},
		{
			name:    "prose instead of json",
			raw:     "The response looks fine to me.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reasons, err := parseJudgeOutput(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.reasons, reasons)
		})
	}
}

func TestJudgeScorePropagatesClientError(t *testing.T) {
	j := NewJudge(&stubLLM{err: errors.New("quota exceeded")}, "judge-model", time.Second)

	_, _, err := j.Score(context.Background(), "respuesta", "pregunta", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge call failed")
}

func TestJudgeScoreNotConfigured(t *testing.T) {
	var j *Judge
	_, _, err := j.Score(context.Background(), "respuesta", "pregunta", "")
	require.Error(t, err)
}

func TestJudgePromptIncludesQuestionAndResponse(t *testing.T) {
	llm := &recordingLLM{text: `{"confidence": 0.7}`}
	j := NewJudge(llm, "judge-model", time.Second)

	_, _, err := j.Score(context.Background(), "la respuesta del agente", "la pregunta del huésped", "contexto")
	require.NoError(t, err)
	require.Len(t, llm.requests, 1)

	prompt := llm.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "la pregunta del huésped")
	assert.Contains(t, prompt, "la respuesta del agente")
	assert.Contains(t, prompt, "contexto")
	assert.Equal(t, "judge-model", llm.requests[0].Model)
}
