// Package redis provides Redis-based adapters for the todo platform.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/ports"
)

var _ ports.SessionStore = (*SessionStore)(nil)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "todo:session:"

// SessionStore is a Redis-based session store for production use.
// Each session is one JSON value whose TTL tracks the idle timeout, so Redis
// drops idle sessions on its own. Single-key commands keep concurrent
// requests on the same session consistent.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithPrefix(client, DefaultKeyPrefix)
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	if client == nil {
		panic("redis client is required")
	}
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if sess.IdleTimeout <= 0 {
		return errors.New("session idle timeout must be positive")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+sess.ID, data, sess.IdleTimeout).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, domainauth.ErrNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, domainauth.ErrNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

// Touch rewrites LastAccessAt and renews the TTL. SET XX never recreates a
// session deleted in between, so a concurrent logout always wins.
func (s *SessionStore) Touch(ctx context.Context, id string, at time.Time) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.LastAccessAt = at

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.prefix+id, data, sess.IdleTimeout).Result()
	if err != nil {
		return fmt.Errorf("redis set xx: %w", err)
	}
	if !ok {
		return domainauth.ErrNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
