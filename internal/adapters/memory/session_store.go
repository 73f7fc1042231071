// Package memory provides an in-process session store for single-instance deployments.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/ports"
)

var _ ports.SessionStore = (*SessionStore)(nil)

// DefaultMaxSessions bounds the store; the least recently written session is evicted first.
const DefaultMaxSessions = 10000

// SessionStore keeps sessions in an expiring LRU. Entries expire idleTimeout
// after their last write, which mirrors the Redis store's sliding TTL.
type SessionStore struct {
	// mu serialises Touch against Delete so a touch never resurrects a session.
	mu    sync.Mutex
	cache *expirable.LRU[string, domainauth.Session]
}

// NewSessionStore creates a store holding at most maxSessions entries.
func NewSessionStore(maxSessions int, idleTimeout time.Duration) *SessionStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if idleTimeout <= 0 {
		panic("memory session store requires a positive idle timeout")
	}
	return &SessionStore{cache: expirable.NewLRU[string, domainauth.Session](maxSessions, nil, idleTimeout)}
}

func (s *SessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(sess.ID, sess)
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		return domainauth.Session{}, domainauth.ErrNotFound
	}
	return sess, nil
}

func (s *SessionStore) Touch(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.cache.Get(id)
	if !ok {
		return domainauth.ErrNotFound
	}
	sess.LastAccessAt = at
	s.cache.Add(id, sess)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(id)
	return nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int { return s.cache.Len() }
