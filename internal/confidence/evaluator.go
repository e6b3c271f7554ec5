package confidence

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/daotomata/hotel-ai-platform/internal/observability/metrics"
	"github.com/daotomata/hotel-ai-platform/internal/tenancy"
	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

var evaluatorTracer = otel.Tracer("concierge/confidence")

// Evaluation methods, reported on every result.
const (
	MethodErrorDetection  = "error_detection"
	MethodSpecialHandling = "special_handling_detection"
	MethodKeyword         = "keyword"
	MethodHybrid          = "hybrid"
	MethodManual          = "manual"
)

// DefaultThreshold is the escalation cutoff used when callers pass none.
const DefaultThreshold = 0.7

// GroupSizeThreshold is the party size at or above which a request
// always goes to a human (group rates, event logistics).
const GroupSizeThreshold = 10

const specialHandlingScore = 0.3

const maxReasons = 8

// Result of a confidence evaluation.
type Result struct {
	Score          float64  `json:"score"`
	Reasons        []string `json:"reasons"`
	Method         string   `json:"method"`
	ShouldEscalate bool     `json:"should_escalate"`
}

// Input bundles everything the evaluator needs for one assistant turn.
type Input struct {
	Response     string
	UserQuestion string
	Context      string
	Threshold    float64
}

// errorPatterns mark a response as unusable regardless of content.
var errorPatterns = []string{
	"error",
	"exception",
	"failed to",
	"unable to",
	"cannot process",
	"something went wrong",
	"internal error",
	"timeout",
	"service unavailable",
}

// groupSizePatterns extract party sizes from guest questions and agent
// replies, Spanish and English.
var groupSizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*personas`),
	regexp.MustCompile(`(?i)grupo\s+de\s+(\d+)`),
	regexp.MustCompile(`(?i)para\s+(\d+)\s+personas`),
	regexp.MustCompile(`(?i)reservar?\s+para\s+(\d+)`),
	regexp.MustCompile(`(?i)group\s+of\s+(\d+)`),
	regexp.MustCompile(`(?i)party\s+of\s+(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s+(?:people|guests)`),
}

var eventRequestKeywords = []string{
	"evento corporativo", "retiro", "corporate event", "retreat", "team building",
}

var specialistClaimKeywords = []string{
	"especialista", "specialist", "soy el especialista", "i am the specialist",
}

// Evaluator scores agent responses for reliability. It combines a
// data-driven keyword pass with an LLM self-critique, degrading to
// keywords alone when the judge is unavailable.
type Evaluator struct {
	rules   RuleSet
	weights Weights
	judge   *Judge
	logger  *logging.Logger
}

// NewEvaluator creates an evaluator. A nil judge disables the LLM pass;
// the evaluator then runs keyword-only.
func NewEvaluator(rules RuleSet, weights Weights, judge *Judge, logger *logging.Logger) *Evaluator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Evaluator{
		rules:   rules,
		weights: weights,
		judge:   judge,
		logger:  logger,
	}
}

// Evaluate scores one assistant turn and decides whether it needs a
// human. The score is always in [0,1]; escalation requires the score to
// be strictly below the threshold.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) Result {
	ctx, span := evaluatorTracer.Start(ctx, "confidence.evaluate")
	defer span.End()

	threshold := in.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	logger := e.logger
	if hotelID, ok := tenancy.HotelIDFromContext(ctx); ok {
		logger = logger.WithHotel(hotelID)
		span.SetAttributes(attribute.String("hotel.id", hotelID))
	}

	result := e.evaluate(ctx, in, threshold)

	metrics.EvaluationsTotal.WithLabelValues(result.Method).Inc()
	span.SetAttributes(
		attribute.Float64("confidence.score", result.Score),
		attribute.String("confidence.method", result.Method),
		attribute.Bool("confidence.should_escalate", result.ShouldEscalate),
	)
	logger.Info("confidence evaluated",
		"score", result.Score,
		"method", result.Method,
		"should_escalate", result.ShouldEscalate,
		"threshold", threshold,
	)
	return result
}

func (e *Evaluator) evaluate(ctx context.Context, in Input, threshold float64) Result {
	if isEmptyOrError(in.Response) {
		return Result{
			Score:          0,
			Reasons:        []string{"Empty or error response"},
			Method:         MethodErrorDetection,
			ShouldEscalate: true,
		}
	}

	if reasons, ok := detectSpecialHandling(in.UserQuestion, in.Response); ok {
		return Result{
			Score:          specialHandlingScore,
			Reasons:        reasons,
			Method:         MethodSpecialHandling,
			ShouldEscalate: true,
		}
	}

	keywordScore, keywordReasons, keywordOK := e.scoreKeywords(in.Response)

	var (
		judgeScore   float64
		judgeReasons []string
		judgeErr     error
	)
	if e.judge != nil {
		judgeScore, judgeReasons, judgeErr = e.judge.Score(ctx, in.Response, in.UserQuestion, in.Context)
	} else {
		judgeErr = fmt.Errorf("confidence: judge disabled")
	}

	if judgeErr != nil {
		if !keywordOK {
			// Both paths unusable: err toward human review.
			return Result{
				Score:          0,
				Reasons:        []string{"Confidence evaluation unavailable"},
				Method:         MethodKeyword,
				ShouldEscalate: true,
			}
		}
		e.logger.Warn("judge evaluation unavailable, using keyword score", "error", judgeErr)
		reasons := mergeReasons(keywordReasons, []string{"LLM evaluation unavailable"})
		return Result{
			Score:          clamp01(keywordScore),
			Reasons:        reasons,
			Method:         MethodKeyword,
			ShouldEscalate: keywordScore < threshold,
		}
	}

	final := clamp01(0.3*keywordScore + 0.7*judgeScore)
	return Result{
		Score:          final,
		Reasons:        mergeReasons(keywordReasons, judgeReasons),
		Method:         MethodHybrid,
		ShouldEscalate: final < threshold,
	}
}

// isEmptyOrError reports whether a response is empty, too short to be
// meaningful, or matches a configured error pattern.
func isEmptyOrError(response string) bool {
	trimmed := strings.TrimSpace(response)
	// Character count, not bytes: accented Spanish replies must not
	// slip past the minimum-length check.
	if trimmed == "" || utf8.RuneCountInString(trimmed) < 10 {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, pattern := range errorPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// detectSpecialHandling flags turns that must reach a human regardless
// of how confident the reply sounds: large groups and corporate event
// or retreat requests the agent claims to handle itself.
func detectSpecialHandling(userQuestion, response string) ([]string, bool) {
	combined := userQuestion + " " + response

	if n, ok := extractGroupSize(combined); ok && n >= GroupSizeThreshold {
		return []string{fmt.Sprintf("Group booking for %d people requires human handling", n)}, true
	}

	questionLower := strings.ToLower(userQuestion)
	responseLower := strings.ToLower(response)
	for _, event := range eventRequestKeywords {
		if !strings.Contains(questionLower, event) {
			continue
		}
		for _, claim := range specialistClaimKeywords {
			if strings.Contains(responseLower, claim) {
				return []string{fmt.Sprintf("Agent claimed specialist expertise for %q request", event)}, true
			}
		}
	}
	return nil, false
}

// extractGroupSize returns the largest party size mentioned in the text.
func extractGroupSize(text string) (int, bool) {
	best := 0
	found := false
	for _, re := range groupSizePatterns {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			if len(match) < 2 {
				continue
			}
			n, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			found = true
			if n > best {
				best = n
			}
		}
	}
	return best, found
}

// scoreKeywords runs the data-driven keyword pass. The false-action
// tier carries a heavier per-hit weight and its own cap because an
// agent inventing referrals is worse than generic hedging.
func (e *Evaluator) scoreKeywords(response string) (float64, []string, bool) {
	if len(e.rules.Rules) == 0 {
		return 0, nil, false
	}

	lower := strings.ToLower(response)

	var hedgingPenalty, falseActionPenalty, bonus float64
	var hedgingHits, falseActionHits, confidenceHits []string

	for _, rule := range e.rules.Rules {
		if !strings.Contains(lower, strings.ToLower(rule.Keyword)) {
			continue
		}
		switch rule.Tier {
		case TierHedging:
			hedgingPenalty += rule.Weight
			hedgingHits = append(hedgingHits, rule.Keyword)
		case TierFalseAction:
			falseActionPenalty += rule.Weight
			falseActionHits = append(falseActionHits, rule.Keyword)
		case TierConfidence:
			bonus += rule.Weight
			confidenceHits = append(confidenceHits, rule.Keyword)
		}
	}

	if hedgingPenalty > e.weights.HedgingCap {
		hedgingPenalty = e.weights.HedgingCap
	}
	if falseActionPenalty > e.weights.FalseActionCap {
		falseActionPenalty = e.weights.FalseActionCap
	}
	if bonus > e.weights.BonusCap {
		bonus = e.weights.BonusCap
	}

	score := clamp01(e.weights.Base - hedgingPenalty - falseActionPenalty + bonus)

	var reasons []string
	if len(hedgingHits) > 0 {
		reasons = append(reasons, "Uncertainty keywords: "+joinFirst(hedgingHits, 3))
	}
	if len(falseActionHits) > 0 {
		reasons = append(reasons, "False-action claims: "+joinFirst(falseActionHits, 3))
	}
	if len(confidenceHits) > 0 {
		reasons = append(reasons, "Confidence keywords: "+joinFirst(confidenceHits, 3))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "No strong confidence indicators")
	}

	return score, reasons, true
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ", ")
}

// mergeReasons concatenates, de-duplicates and caps reason lists.
func mergeReasons(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, reason := range list {
			reason = strings.TrimSpace(reason)
			if reason == "" {
				continue
			}
			if _, ok := seen[reason]; ok {
				continue
			}
			seen[reason] = struct{}{}
			out = append(out, reason)
			if len(out) == maxReasons {
				return out
			}
		}
	}
	return out
}
