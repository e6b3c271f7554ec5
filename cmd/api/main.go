package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/daotomata/hotel-ai-platform/internal/agent"
	"github.com/daotomata/hotel-ai-platform/internal/api/router"
	appconfig "github.com/daotomata/hotel-ai-platform/internal/config"
	"github.com/daotomata/hotel-ai-platform/internal/confidence"
	"github.com/daotomata/hotel-ai-platform/internal/conversation"
	"github.com/daotomata/hotel-ai-platform/internal/hitl"
	"github.com/daotomata/hotel-ai-platform/internal/http/handlers"
	"github.com/daotomata/hotel-ai-platform/internal/platform/chatwoot"
	"github.com/daotomata/hotel-ai-platform/internal/session"
	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting hotel concierge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Session store: Redis when configured, in-memory otherwise.
	var store session.Store
	if cfg.UseRedisStore {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		store = session.NewRedisStore(client, cfg.SessionTTL)
		logger.Info("using redis session store", "addr", cfg.RedisAddr)
	} else {
		store = session.NewMemoryStore()
		logger.Info("using in-memory session store")
	}

	// LLM client shared by the agent and the confidence judge.
	var llmClient agent.LLMClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := agent.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.AgentModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		llmClient = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, agent replies and LLM judging disabled")
	}

	rules, err := confidence.LoadRules(cfg.HITLRulesFile)
	if err != nil {
		logger.Error("failed to load confidence rules", "file", cfg.HITLRulesFile, "error", err)
		os.Exit(1)
	}

	var judge *confidence.Judge
	if llmClient != nil {
		judge = confidence.NewJudge(llmClient, cfg.HITLJudgeModelID, cfg.HITLJudgeTimeout)
	}
	evaluator := confidence.NewEvaluator(rules, confidence.DefaultWeights(), judge, logger)

	// Escalation log: Postgres when configured, in-memory otherwise.
	var escalationLog hitl.Log
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pgLog := hitl.NewPostgresLog(db)
		if err := pgLog.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure escalations schema", "error", err)
			os.Exit(1)
		}
		escalationLog = pgLog
		logger.Info("using postgres escalation log")
	} else {
		escalationLog = hitl.NewMemoryLog()
		logger.Info("using in-memory escalation log")
	}

	chatwootConfigs, err := chatwoot.ParseConfigs(cfg.ChatwootConfigJSON)
	if err != nil {
		logger.Error("failed to parse chatwoot config", "error", err)
		os.Exit(1)
	}
	chatwootClient := chatwoot.NewClient(chatwootConfigs, cfg.ChatwootTimeout, logger)

	manager := hitl.NewManager(evaluator, chatwootClient, escalationLog, hitl.ManagerConfig{
		Enabled:           cfg.HITLEnabled,
		Threshold:         cfg.HITLConfidenceThreshold,
		SideEffectTimeout: cfg.ChatwootTimeout,
	}, logger)

	var responder agent.Responder
	if llmClient != nil {
		responder = agent.NewLLMResponder(llmClient, cfg.AgentModelID)
	} else {
		responder = unavailableResponder{}
	}

	events := conversation.NewEventLogger(logger)
	service := conversation.NewService(store, responder, manager, events, logger)

	// Background sweep of inactive sessions.
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	sweeper := session.NewSweeper(store, cfg.SessionTTL, cfg.SessionSweepInterval, logger)
	go sweeper.Run(sweepCtx)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        handlers.NewChatHandler(service, store, logger),
		ChatwootWebhook:    handlers.NewChatwootWebhookHandler(service, logger),
		EscalationsHandler: handlers.NewEscalationsHandler(manager, logger),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// unavailableResponder keeps the service running without an LLM key;
// every turn takes the deterministic fallback path.
type unavailableResponder struct{}

func (unavailableResponder) Respond(context.Context, string, []session.Message, string) (agent.Reply, error) {
	return agent.Reply{}, errors.New("agent: llm client not configured")
}
