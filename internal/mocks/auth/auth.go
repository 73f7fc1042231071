package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sync"
	"time"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	"github.com/target/todo-platform/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionStore    = (*MemorySessionStore)(nil)
	_ ports.CredentialStore = (*StaticCredentialStore)(nil)
)

// MemorySessionStore is an in-memory session store for unit tests.
// Err, when set, is returned from every call.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	Err      error
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if m.Err != nil {
		return m.Err
	}
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	if m.Err != nil {
		return domainauth.Session{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, domainauth.ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Touch(_ context.Context, id string, at time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.ErrNotFound
	}
	sess.LastAccessAt = at
	m.sessions[id] = sess
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StaticCredentialStore serves credentials from a fixed map.
// Err, when set, simulates an unreachable store.
type StaticCredentialStore struct {
	Credentials map[string]domainauth.StoredCredential
	Err         error
	Calls       int
}

// NewStaticCredentialStore builds a store from stored credentials keyed by username.
func NewStaticCredentialStore(creds ...domainauth.StoredCredential) *StaticCredentialStore {
	s := &StaticCredentialStore{Credentials: make(map[string]domainauth.StoredCredential, len(creds))}
	for _, c := range creds {
		s.Credentials[c.Username] = c
	}
	return s
}

func (s *StaticCredentialStore) FindCredentials(_ context.Context, username string) (domainauth.StoredCredential, error) {
	s.Calls++
	if s.Err != nil {
		return domainauth.StoredCredential{}, s.Err
	}
	c, ok := s.Credentials[username]
	if !ok {
		return domainauth.StoredCredential{}, domainauth.ErrNotFound
	}
	return c, nil
}
