package session

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var storeTracer = otel.Tracer("concierge/session")

// Store owns conversation sessions. Implementations must serialize
// mutations per session id while letting distinct sessions proceed in
// parallel.
type Store interface {
	// GetOrCreate returns the session for the id, creating it lazily on
	// first access with the given hotel metadata.
	GetOrCreate(ctx context.Context, sessionID, hotelID string) (Session, error)
	// AppendMessage appends a timestamped message and trims the window.
	AppendMessage(ctx context.Context, sessionID, role, content string) (Session, error)
	// History returns the session history. Unknown ids yield an empty
	// default session, never an error.
	History(ctx context.Context, sessionID string) ([]Message, error)
	// SetPlatformContext merges platform metadata into the session.
	SetPlatformContext(ctx context.Context, sessionID string, meta map[string]string) error
	// Clear removes a session, reporting whether it existed.
	Clear(ctx context.Context, sessionID string) (bool, error)
	// ExpireInactive removes sessions idle longer than maxAge and
	// returns how many were removed.
	ExpireInactive(ctx context.Context, maxAge time.Duration) (int, error)
}

// AppendUserMessage appends a guest message to the session.
func AppendUserMessage(ctx context.Context, s Store, sessionID, content string) (Session, error) {
	return s.AppendMessage(ctx, sessionID, RoleUser, content)
}

// AppendAssistantMessage appends an agent reply to the session.
func AppendAssistantMessage(ctx context.Context, s Store, sessionID, content string) (Session, error) {
	return s.AppendMessage(ctx, sessionID, RoleAssistant, content)
}

type memoryEntry struct {
	mu      sync.Mutex
	session Session
}

// MemoryStore keeps sessions in process memory with a lock per session
// so concurrent turns for the same conversation never interleave.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

func (m *MemoryStore) entry(sessionID, hotelID string, create bool) *memoryEntry {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok || !create {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.sessions[sessionID]; ok {
		return e
	}
	now := m.now().UTC()
	e = &memoryEntry{session: Session{
		ID:             sessionID,
		HotelID:        hotelID,
		CreatedAt:      now,
		LastActivityAt: now,
	}}
	m.sessions[sessionID] = e
	return e
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, sessionID, hotelID string) (Session, error) {
	_, span := storeTracer.Start(ctx, "session.get_or_create")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	e := m.entry(sessionID, hotelID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.HotelID == "" && hotelID != "" {
		e.session.HotelID = hotelID
	}
	return e.session.clone(), nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, sessionID, role, content string) (Session, error) {
	_, span := storeTracer.Start(ctx, "session.append_message",
		trace.WithAttributes(attribute.String("message.role", role)))
	defer span.End()

	e := m.entry(sessionID, "", true)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.now().UTC()
	e.session.History = trimHistory(append(e.session.History, Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	}))
	if now.After(e.session.LastActivityAt) {
		e.session.LastActivityAt = now
	}
	return e.session.clone(), nil
}

func (m *MemoryStore) History(ctx context.Context, sessionID string) ([]Message, error) {
	_, span := storeTracer.Start(ctx, "session.history")
	defer span.End()

	e := m.entry(sessionID, "", false)
	if e == nil {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.session.History))
	copy(out, e.session.History)
	return out, nil
}

func (m *MemoryStore) SetPlatformContext(ctx context.Context, sessionID string, meta map[string]string) error {
	_, span := storeTracer.Start(ctx, "session.set_platform_context")
	defer span.End()

	if len(meta) == 0 {
		return nil
	}
	e := m.entry(sessionID, "", true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.PlatformContext == nil {
		e.session.PlatformContext = make(map[string]string, len(meta))
	}
	for k, v := range meta {
		e.session.PlatformContext[k] = v
	}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, sessionID string) (bool, error) {
	_, span := storeTracer.Start(ctx, "session.clear")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok, nil
}

func (m *MemoryStore) ExpireInactive(ctx context.Context, maxAge time.Duration) (int, error) {
	_, span := storeTracer.Start(ctx, "session.expire_inactive")
	defer span.End()

	cutoff := m.now().UTC().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.sessions {
		e.mu.Lock()
		stale := e.session.LastActivityAt.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			removed++
		}
	}
	span.SetAttributes(attribute.Int("session.expired", removed))
	return removed, nil
}
