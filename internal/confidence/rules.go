package confidence

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tier classifies a keyword rule.
//
//   - TierHedging: generic uncertainty wording ("no estoy seguro", "maybe").
//   - TierFalseAction: the agent claiming an action it cannot perform
//     ("he transferido tu solicitud"). Weighted heavier than hedging.
//   - TierConfidence: assertive wording that earns a capped bonus.
type Tier string

const (
	TierHedging     Tier = "hedging"
	TierFalseAction Tier = "false_action"
	TierConfidence  Tier = "confidence"
)

// Rule is one entry of the data-driven keyword table. Keywords are
// matched case-insensitively as substrings.
type Rule struct {
	Keyword  string  `json:"keyword"`
	Weight   float64 `json:"weight"`
	Language string  `json:"language"`
	Tier     Tier    `json:"tier"`
}

// RuleSet is a versioned keyword table loaded at startup.
type RuleSet struct {
	Version string `json:"version"`
	Rules   []Rule `json:"rules"`
}

// Weights tunes the keyword scoring arithmetic. The per-hit weights
// live on the rules; the caps and base live here because the intended
// cutoffs are configuration, not fixed law.
type Weights struct {
	Base           float64 `json:"base"`
	HedgingCap     float64 `json:"hedging_cap"`
	FalseActionCap float64 `json:"false_action_cap"`
	BonusCap       float64 `json:"bonus_cap"`
}

// DefaultWeights returns the stock scoring parameters.
func DefaultWeights() Weights {
	return Weights{
		Base:           0.8,
		HedgingCap:     0.6,
		FalseActionCap: 0.8,
		BonusCap:       0.2,
	}
}

const (
	hedgingWeight     = 0.2
	falseActionWeight = 0.3
	confidenceWeight  = 0.1
)

// DefaultRules returns the built-in bilingual keyword table.
func DefaultRules() RuleSet {
	rules := make([]Rule, 0, 64)

	add := func(lang string, tier Tier, weight float64, keywords ...string) {
		for _, kw := range keywords {
			rules = append(rules, Rule{Keyword: kw, Weight: weight, Language: lang, Tier: tier})
		}
	}

	add("es", TierHedging, hedgingWeight,
		"no estoy seguro", "no estoy segura", "no sé", "no se",
		"podría ser", "tal vez", "quizás", "probablemente",
		"creo que", "parece que", "supongo", "asumo",
		"no tengo información", "no puedo confirmar",
		"disculpa", "lo siento", "perdón", "no entiendo",
		"no comprendo", "no está claro", "confuso",
	)
	add("en", TierHedging, hedgingWeight,
		"i'm not sure", "i don't know", "maybe", "perhaps",
		"probably", "i think", "seems like", "i assume",
		"sorry", "i don't understand", "unclear", "confused",
	)

	add("es", TierFalseAction, falseActionWeight,
		"he transferido", "he contactado", "he escalado", "he enviado tu solicitud",
		"se pondrán en contacto", "se comunicarán contigo", "he notificado",
		"te recomiendo contactar", "departamento de grupos",
	)
	add("en", TierFalseAction, falseActionWeight,
		"i have transferred", "i've transferred", "i have contacted", "i've contacted",
		"i have forwarded", "i've forwarded", "will be in touch with you",
		"i recommend contacting", "i have escalated",
	)

	add("es", TierConfidence, confidenceWeight,
		"definitivamente", "seguramente", "ciertamente", "absolutamente",
		"sin duda", "por supuesto", "exactamente", "precisamente",
		"confirmo", "garantizo", "aseguro",
	)
	add("en", TierConfidence, confidenceWeight,
		"definitely", "certainly", "absolutely", "surely",
		"without doubt", "of course", "exactly", "precisely",
		"confirm", "guarantee", "assure",
	)

	return RuleSet{Version: "builtin-1", Rules: rules}
}

// LoadRules reads a rule table from a JSON file. An empty path returns
// the built-in defaults.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("confidence: failed to read rules file: %w", err)
	}

	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("confidence: failed to parse rules file: %w", err)
	}
	if len(rs.Rules) == 0 {
		return RuleSet{}, fmt.Errorf("confidence: rules file %s contains no rules", path)
	}
	for i, r := range rs.Rules {
		if r.Keyword == "" || r.Weight <= 0 {
			return RuleSet{}, fmt.Errorf("confidence: invalid rule at index %d", i)
		}
		switch r.Tier {
		case TierHedging, TierFalseAction, TierConfidence:
		default:
			return RuleSet{}, fmt.Errorf("confidence: unknown tier %q at index %d", r.Tier, i)
		}
	}
	return rs, nil
}
