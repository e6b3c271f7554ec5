package hitl

import "context"

// ConversationStatus mirrors the states the chat platform understands.
type ConversationStatus string

const (
	StatusOpen     ConversationStatus = "open"
	StatusResolved ConversationStatus = "resolved"
)

// Platform is the slice of the chat platform the escalation path needs.
// Implementations perform a single attempt with a short timeout and
// surface failures; no retry policy lives behind this interface.
type Platform interface {
	// SendMessage posts a message into a conversation. Private messages
	// are internal notes visible only to operators.
	SendMessage(ctx context.Context, hotelID string, conversationID int64, content string, private bool) (string, error)

	// SetConversationStatus moves a conversation between open and
	// resolved. Opening a conversation triggers operator auto-assignment.
	SetConversationStatus(ctx context.Context, hotelID string, conversationID int64, status ConversationStatus) error
}
