package cache

import (
	"context"
	"fmt"
	"time"
)

// Session is the state stored against a session cookie
type Session struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// SessionStore persists sessions in the cache under a fixed key prefix
type SessionStore struct {
	cache Cache
	ttl   time.Duration
}

// NewSessionStore creates a session store with the given TTL
func NewSessionStore(c Cache, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{cache: c, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Get looks up a session by id. Returns ErrNotFound for missing or
// expired sessions.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	if err := s.cache.Get(ctx, sessionKey(id), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Put stores a session under the given id
func (s *SessionStore) Put(ctx context.Context, id string, sess Session) error {
	return s.cache.Set(ctx, sessionKey(id), sess, s.ttl)
}

// Delete removes a session
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, sessionKey(id))
}
