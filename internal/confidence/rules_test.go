package confidence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRulesCoverBothLanguagesAndTiers(t *testing.T) {
	rs := DefaultRules()
	require.NotEmpty(t, rs.Rules)

	langs := map[string]bool{}
	tiers := map[Tier]bool{}
	for _, r := range rs.Rules {
		langs[r.Language] = true
		tiers[r.Tier] = true
		assert.Greater(t, r.Weight, 0.0, r.Keyword)
	}
	assert.True(t, langs["es"])
	assert.True(t, langs["en"])
	assert.True(t, tiers[TierHedging])
	assert.True(t, tiers[TierFalseAction])
	assert.True(t, tiers[TierConfidence])
}

func TestLoadRulesEmptyPathReturnsDefaults(t *testing.T) {
	rs, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rs)
}

func TestLoadRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	payload := `{
		"version": "hotel-custom-1",
		"rules": [
			{"keyword": "no disponible", "weight": 0.2, "language": "es", "tier": "hedging"},
			{"keyword": "guaranteed", "weight": 0.1, "language": "en", "tier": "confidence"}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	rs, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "hotel-custom-1", rs.Version)
	require.Len(t, rs.Rules, 2)
	assert.Equal(t, TierHedging, rs.Rules[0].Tier)
}

func TestLoadRulesRejectsInvalidFiles(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "hello"},
		{"empty rules", `{"version": "v", "rules": []}`},
		{"missing keyword", `{"rules": [{"keyword": "", "weight": 0.2, "tier": "hedging"}]}`},
		{"bad weight", `{"rules": [{"keyword": "x", "weight": 0, "tier": "hedging"}]}`},
		{"unknown tier", `{"rules": [{"keyword": "x", "weight": 0.2, "tier": "mystery"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.payload), 0o600))
			_, err := LoadRules(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadRulesMissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
