// Package chatwoot implements the chat platform adapter against the
// Chatwoot REST API. Each hotel runs its own Chatwoot account, so the
// client keeps a per-hotel configuration registry.
package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/daotomata/hotel-ai-platform/internal/hitl"
	"github.com/daotomata/hotel-ai-platform/pkg/logging"
)

var tracer = otel.Tracer("concierge/chatwoot")

const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response body is surfaced.
const maxErrorBody = 512

// Config holds one hotel's Chatwoot credentials.
type Config struct {
	BaseURL        string `json:"base_url"`
	APIAccessToken string `json:"api_access_token"`
	AccountID      int64  `json:"account_id"`
	InboxID        int64  `json:"inbox_id"`
}

// ParseConfigs decodes a hotel-to-config JSON map, typically loaded
// from the CHATWOOT_CONFIG_JSON environment variable.
func ParseConfigs(raw string) (map[string]Config, error) {
	if raw == "" {
		return map[string]Config{}, nil
	}
	var configs map[string]Config
	if err := json.Unmarshal([]byte(raw), &configs); err != nil {
		return nil, fmt.Errorf("chatwoot: failed to parse config map: %w", err)
	}
	for hotelID, cfg := range configs {
		if cfg.BaseURL == "" || cfg.APIAccessToken == "" || cfg.AccountID == 0 {
			return nil, fmt.Errorf("chatwoot: incomplete config for hotel %s", hotelID)
		}
	}
	return configs, nil
}

// Client talks to Chatwoot. Single attempt per call, bounded by the
// HTTP client timeout; failures surface to the caller.
type Client struct {
	httpClient *http.Client
	logger     *logging.Logger

	mu      sync.RWMutex
	configs map[string]Config
}

// NewClient creates a Chatwoot client with the given per-hotel configs.
func NewClient(configs map[string]Config, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	if configs == nil {
		configs = map[string]Config{}
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		configs:    configs,
	}
}

// AddHotelConfig registers or replaces one hotel's configuration.
func (c *Client) AddHotelConfig(hotelID string, cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configs[hotelID] = cfg
}

func (c *Client) configFor(hotelID string) (Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.configs[hotelID]
	if !ok {
		return Config{}, fmt.Errorf("chatwoot: no configuration for hotel %s", hotelID)
	}
	return cfg, nil
}

type messagePayload struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	Private     bool   `json:"private"`
}

type messageResponse struct {
	ID int64 `json:"id"`
}

// SendMessage posts a message to a conversation and returns the
// Chatwoot message ID. Private messages are internal operator notes.
func (c *Client) SendMessage(ctx context.Context, hotelID string, conversationID int64, content string, private bool) (string, error) {
	ctx, span := tracer.Start(ctx, "chatwoot.send_message")
	defer span.End()
	span.SetAttributes(
		attribute.String("hotel.id", hotelID),
		attribute.Int64("conversation.id", conversationID),
		attribute.Bool("message.private", private),
	)

	cfg, err := c.configFor(hotelID)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/api/v1/accounts/%d/conversations/%d/messages", cfg.BaseURL, cfg.AccountID, conversationID)
	payload := messagePayload{Content: content, MessageType: "outgoing", Private: private}

	var resp messageResponse
	if err := c.post(ctx, cfg, url, payload, &resp); err != nil {
		return "", fmt.Errorf("chatwoot: failed to send message to conversation %d: %w", conversationID, err)
	}

	c.logger.Info("chatwoot message sent",
		"hotel_id", hotelID,
		"conversation_id", conversationID,
		"message_id", resp.ID,
		"private", private,
	)
	return strconv.FormatInt(resp.ID, 10), nil
}

type statusPayload struct {
	Status string `json:"status"`
}

// SetConversationStatus toggles a conversation's status. Opening a
// conversation triggers Chatwoot's operator auto-assignment.
func (c *Client) SetConversationStatus(ctx context.Context, hotelID string, conversationID int64, status hitl.ConversationStatus) error {
	ctx, span := tracer.Start(ctx, "chatwoot.set_conversation_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("hotel.id", hotelID),
		attribute.Int64("conversation.id", conversationID),
		attribute.String("conversation.status", string(status)),
	)

	cfg, err := c.configFor(hotelID)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/accounts/%d/conversations/%d/toggle_status", cfg.BaseURL, cfg.AccountID, conversationID)
	if err := c.post(ctx, cfg, url, statusPayload{Status: string(status)}, nil); err != nil {
		return fmt.Errorf("chatwoot: failed to set conversation %d status to %s: %w", conversationID, status, err)
	}

	c.logger.Info("chatwoot conversation status changed",
		"hotel_id", hotelID,
		"conversation_id", conversationID,
		"status", string(status),
	)
	return nil
}

func (c *Client) post(ctx context.Context, cfg Config, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", cfg.APIAccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("api error: status %d: %s", resp.StatusCode, string(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
