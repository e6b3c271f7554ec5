package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const sessionKeyPrefix = "session:"

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// RedisStore persists sessions as JSON blobs with a TTL so history
// survives process restarts. Mutations still serialize through an
// in-process lock per session id; distributed deployments must route a
// given session id to a single instance to keep that contract.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("concierge/session/redis"),
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *RedisStore) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// dropLock releases the per-session lock entry once the session is
// gone so the map does not grow with every session id ever seen.
func (s *RedisStore) dropLock(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, sessionID)
}

func (s *RedisStore) load(ctx context.Context, sessionID string) (Session, bool, error) {
	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("session: failed to load %s: %w", sessionID, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false, fmt.Errorf("session: failed to decode %s: %w", sessionID, err)
	}
	return sess, true, nil
}

func (s *RedisStore) save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: failed to marshal %s: %w", sess.ID, err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: failed to persist %s: %w", sess.ID, err)
	}
	return nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, sessionID, hotelID string) (Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.get_or_create")
	defer span.End()

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return Session{}, err
	}
	if !ok {
		now := s.now().UTC()
		sess = Session{
			ID:             sessionID,
			HotelID:        hotelID,
			CreatedAt:      now,
			LastActivityAt: now,
		}
		if err := s.save(ctx, sess); err != nil {
			span.RecordError(err)
			return Session{}, err
		}
	} else if sess.HotelID == "" && hotelID != "" {
		sess.HotelID = hotelID
		if err := s.save(ctx, sess); err != nil {
			span.RecordError(err)
			return Session{}, err
		}
	}
	return sess, nil
}

func (s *RedisStore) AppendMessage(ctx context.Context, sessionID, role, content string) (Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.append_message")
	defer span.End()

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return Session{}, err
	}
	now := s.now().UTC()
	if !ok {
		sess = Session{ID: sessionID, CreatedAt: now, LastActivityAt: now}
	}
	sess.History = trimHistory(append(sess.History, Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	}))
	if now.After(sess.LastActivityAt) {
		sess.LastActivityAt = now
	}
	if err := s.save(ctx, sess); err != nil {
		span.RecordError(err)
		return Session{}, err
	}
	return sess, nil
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "session.history")
	defer span.End()

	sess, ok, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return sess.History, nil
}

func (s *RedisStore) SetPlatformContext(ctx context.Context, sessionID string, meta map[string]string) error {
	ctx, span := s.tracer.Start(ctx, "session.set_platform_context")
	defer span.End()

	if len(meta) == 0 {
		return nil
	}

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok, err := s.load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		now := s.now().UTC()
		sess = Session{ID: sessionID, CreatedAt: now, LastActivityAt: now}
	}
	if sess.PlatformContext == nil {
		sess.PlatformContext = make(map[string]string, len(meta))
	}
	for k, v := range meta {
		sess.PlatformContext[k] = v
	}
	return s.save(ctx, sess)
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.clear")
	defer span.End()

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	n, err := s.redis.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("session: failed to clear %s: %w", sessionID, err)
	}
	s.dropLock(sessionID)
	return n > 0, nil
}

// ExpireInactive scans session keys and removes those idle past the
// cutoff. The key TTL already bounds retention; the sweep exists so a
// shortened max age takes effect without waiting out old TTLs.
func (s *RedisStore) ExpireInactive(ctx context.Context, maxAge time.Duration) (int, error) {
	ctx, span := s.tracer.Start(ctx, "session.expire_inactive")
	defer span.End()

	cutoff := s.now().UTC().Add(-maxAge)
	removed := 0

	iter := s.redis.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		sessionID := strings.TrimPrefix(key, sessionKeyPrefix)

		sess, ok, err := s.load(ctx, sessionID)
		if err != nil || !ok {
			continue
		}
		if sess.LastActivityAt.Before(cutoff) {
			if s.redis.Del(ctx, key).Err() == nil {
				s.dropLock(sessionID)
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return removed, fmt.Errorf("session: expire scan failed: %w", err)
	}
	return removed, nil
}
