package confidence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/daotomata/hotel-ai-platform/internal/agent"
	"github.com/daotomata/hotel-ai-platform/internal/observability/metrics"
)

const judgeSystemPrompt = "Eres un evaluador experto de confianza en respuestas de AI. Responde siempre con JSON válido."

const judgePromptTemplate = `Evalúa la confianza de esta respuesta de un agente de hotel AI en una escala de 0.0 a 1.0.

PREGUNTA DEL USUARIO: %s

CONTEXTO ADICIONAL: %s

RESPUESTA A EVALUAR: %s

Considera estos factores:
1. ¿La respuesta es específica y directa?
2. ¿Contiene información precisa y verificable?
3. ¿Hay palabras de incertidumbre o dudas?
4. ¿La respuesta resuelve completamente la pregunta?
5. ¿El agente admite no saber algo?

Responde SOLO con este formato JSON:
{
    "confidence": 0.85,
    "reasons": ["Respuesta específica", "Información verificable", "Sin incertidumbres"]
}`

// Judge asks a second model to critique an agent response against a
// fixed rubric. Non-JSON output or a missing confidence field is a
// failure the caller must recover from.
type Judge struct {
	client  agent.LLMClient
	model   string
	timeout time.Duration
}

// NewJudge creates a judge backed by the given LLM client.
func NewJudge(client agent.LLMClient, model string, timeout time.Duration) *Judge {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Judge{client: client, model: model, timeout: timeout}
}

// Score evaluates the response and returns a confidence in [0,1] with
// the judge's reasons.
func (j *Judge) Score(ctx context.Context, response, userQuestion, convContext string) (float64, []string, error) {
	if j == nil || j.client == nil {
		return 0, nil, fmt.Errorf("confidence: judge not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.JudgeLatency.Observe(time.Since(start).Seconds())
	}()

	prompt := fmt.Sprintf(judgePromptTemplate, userQuestion, convContext, response)
	resp, err := j.client.Complete(ctx, agent.LLMRequest{
		Model:       j.model,
		System:      []string{judgeSystemPrompt},
		Messages:    []agent.ChatMessage{{Role: agent.ChatRoleUser, Content: prompt}},
		MaxTokens:   200,
		Temperature: 0.1,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("confidence: judge call failed: %w", err)
	}

	return parseJudgeOutput(resp.Text)
}

type judgeVerdict struct {
	Confidence *float64 `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// parseJudgeOutput decodes the strict JSON contract, tolerating only a
// markdown code fence around the payload.
func parseJudgeOutput(raw string) (float64, []string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return 0, nil, fmt.Errorf("confidence: judge returned invalid JSON: %w", err)
	}
	if verdict.Confidence == nil {
		return 0, nil, fmt.Errorf("confidence: judge verdict missing confidence")
	}

	score := clamp01(*verdict.Confidence)
	reasons := verdict.Reasons
	if len(reasons) == 0 {
		reasons = []string{"LLM evaluation completed"}
	}
	return score, reasons, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
