package memory

import (
	"context"
	"sync"
	"time"
)

// TokenStore is an in-memory password reset token store.
type TokenStore struct {
	mu     sync.Mutex
	clock  func() time.Time
	tokens map[string]resetToken
}

type resetToken struct {
	email     string
	expiresAt time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{clock: time.Now, tokens: make(map[string]resetToken)}
}

func (s *TokenStore) Put(_ context.Context, token, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = resetToken{email: email, expiresAt: s.clock().Add(ttl)}
	return nil
}

// Get returns the email a token was issued for. Expired tokens are removed.
func (s *TokenStore) Get(_ context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.After(s.clock()) {
		delete(s.tokens, token)
		return "", false, nil
	}
	return entry.email, true, nil
}

func (s *TokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}
