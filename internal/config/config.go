package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	UseRedisStore bool

	GeminiAPIKey string
	AgentModelID string

	HITLEnabled             bool
	HITLConfidenceThreshold float64
	HITLJudgeModelID        string
	HITLJudgeTimeout        time.Duration
	HITLRulesFile           string

	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	ChatwootTimeout    time.Duration
	ChatwootConfigJSON string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		UseRedisStore: getEnvAsBool("USE_REDIS_STORE", false),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		AgentModelID: getEnv("AGENT_MODEL_ID", "gemini-2.5-flash"),

		HITLEnabled:             getEnvAsBool("HITL_ENABLED", true),
		HITLConfidenceThreshold: getEnvAsFloat("HITL_CONFIDENCE_THRESHOLD", 0.7),
		HITLJudgeModelID:        getEnv("HITL_JUDGE_MODEL_ID", "gemini-2.5-flash-lite"),
		HITLJudgeTimeout:        getEnvAsDuration("HITL_JUDGE_TIMEOUT", 10*time.Second),
		HITLRulesFile:           getEnv("HITL_RULES_FILE", ""),

		SessionTTL:           getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SessionSweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Hour),

		ChatwootTimeout:    getEnvAsDuration("CHATWOOT_TIMEOUT", 30*time.Second),
		ChatwootConfigJSON: getEnv("CHATWOOT_CONFIG_JSON", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
