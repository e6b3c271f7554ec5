package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperRemovesStaleSessions(t *testing.T) {
	store := NewMemoryStore()
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	_, err := store.GetOrCreate(context.Background(), "stale", "hotel-madrid")
	require.NoError(t, err)

	current = current.Add(25 * time.Hour)
	_, err = store.GetOrCreate(context.Background(), "fresh", "hotel-madrid")
	require.NoError(t, err)

	sweeper := NewSweeper(store, 24*time.Hour, time.Hour, nil)
	sweeper.sweep(context.Background())

	history, err := store.History(context.Background(), "stale")
	require.NoError(t, err)
	assert.Nil(t, history)

	_, ok := store.sessions["fresh"]
	assert.True(t, ok)
	_, ok = store.sessions["stale"]
	assert.False(t, ok)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := NewMemoryStore()
	sweeper := NewSweeper(store, time.Hour, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}

func TestSweeperDefaults(t *testing.T) {
	s := NewSweeper(NewMemoryStore(), 0, 0, nil)
	assert.Equal(t, 24*time.Hour, s.maxAge)
	assert.Equal(t, time.Hour, s.interval)
}
