package auth

import (
	"context"
	"errors"
	"sync"
)

// ErrUserUnknown indicates no refresh token state exists for the user.
var ErrUserUnknown = errors.New("unknown user")

// NewInMemoryTokenStore returns a RefreshTokenStore backed by an in-memory map.
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{tokens: make(map[string]string)}
}

// InMemoryTokenStore implements RefreshTokenStore for tests and local development.
type InMemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// SetRefreshToken stores the active refresh token for the user, overwriting
// any prior value. An empty token revokes the session.
func (s *InMemoryTokenStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	s.tokens[userID] = token
	s.mu.Unlock()
	return nil
}

// RefreshTokenFor returns the persisted refresh token for the user.
func (s *InMemoryTokenStore) RefreshTokenFor(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	token, ok := s.tokens[userID]
	s.mu.RUnlock()
	if !ok {
		return "", ErrUserUnknown
	}
	return token, nil
}
