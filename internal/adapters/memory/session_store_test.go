package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
)

func newSession(id string) domainauth.Session {
	now := time.Now()
	return domainauth.Session{
		ID:           id,
		Principal:    domainauth.Principal{UserID: 1, Username: "admin"},
		CreatedAt:    now,
		LastAccessAt: now,
		IdleTimeout:  time.Minute,
	}
}

func TestSessionStore_SaveGetDelete(t *testing.T) {
	store := NewSessionStore(0, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession("a")))
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Principal.Username)

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, domainauth.ErrNotFound)

	assert.Error(t, store.Save(ctx, newSession("")))
}

func TestSessionStore_TouchUpdatesActivity(t *testing.T) {
	store := NewSessionStore(10, time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newSession("a")))

	at := time.Now().Add(30 * time.Second)
	require.NoError(t, store.Touch(ctx, "a", at))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, at.Equal(got.LastAccessAt))
}

func TestSessionStore_TouchNeverRecreates(t *testing.T) {
	store := NewSessionStore(10, time.Minute)
	ctx := context.Background()

	assert.ErrorIs(t, store.Touch(ctx, "missing", time.Now()), domainauth.ErrNotFound)
	assert.Zero(t, store.Len())
}

func TestSessionStore_IdleExpiry(t *testing.T) {
	store := NewSessionStore(10, 50*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newSession("a")))

	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "a")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestSessionStore_EvictsOldest(t *testing.T) {
	store := NewSessionStore(2, time.Minute)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, newSession(id)))
	}

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, domainauth.ErrNotFound)
	assert.Equal(t, 2, store.Len())
}

func TestSessionStore_ConcurrentTouchAndDelete(t *testing.T) {
	store := NewSessionStore(10, time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newSession("a")))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Touch(ctx, "a", time.Now())
		}()
	}
	require.NoError(t, store.Delete(ctx, "a"))
	wg.Wait()

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, domainauth.ErrNotFound)
}
