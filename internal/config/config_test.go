package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gemini-2.5-flash", cfg.AgentModelID)
	assert.True(t, cfg.HITLEnabled)
	assert.InDelta(t, 0.7, cfg.HITLConfidenceThreshold, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.HITLJudgeTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.ChatwootTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HITL_ENABLED", "false")
	t.Setenv("HITL_CONFIDENCE_THRESHOLD", "0.55")
	t.Setenv("SESSION_TTL", "12h")
	t.Setenv("USE_REDIS_STORE", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.HITLEnabled)
	assert.InDelta(t, 0.55, cfg.HITLConfidenceThreshold, 1e-9)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.UseRedisStore)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("HITL_CONFIDENCE_THRESHOLD", "not-a-float")
	t.Setenv("SESSION_TTL", "yesterday")

	cfg := Load()

	assert.InDelta(t, 0.7, cfg.HITLConfidenceThreshold, 1e-9)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}
