package session

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// HistoryWindow is the maximum number of messages retained per session.
// Older non-system messages are trimmed first, FIFO.
const HistoryWindow = 20

// Message is a single conversation turn. Immutable once appended.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds the per-conversation state owned by the store.
// Callers always receive copies; mutation goes through the store API.
type Session struct {
	ID              string            `json:"id"`
	HotelID         string            `json:"hotel_id"`
	CreatedAt       time.Time         `json:"created_at"`
	LastActivityAt  time.Time         `json:"last_activity_at"`
	History         []Message         `json:"history"`
	PlatformContext map[string]string `json:"platform_context,omitempty"`
}

// clone returns a deep copy so callers cannot alias store-owned state.
func (s *Session) clone() Session {
	out := *s
	out.History = make([]Message, len(s.History))
	copy(out.History, s.History)
	if s.PlatformContext != nil {
		out.PlatformContext = make(map[string]string, len(s.PlatformContext))
		for k, v := range s.PlatformContext {
			out.PlatformContext[k] = v
		}
	}
	return out
}

// trimHistory enforces the window cap, dropping the oldest non-system
// message first so a pinned system message survives trimming.
func trimHistory(history []Message) []Message {
	for len(history) > HistoryWindow {
		dropped := false
		for i, msg := range history {
			if msg.Role != RoleSystem {
				history = append(history[:i], history[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			history = history[1:]
		}
	}
	return history
}
