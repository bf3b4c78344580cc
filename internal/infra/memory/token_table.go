package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// TokenTable resolves session tokens from a fixed token -> user id map.
type TokenTable struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewTokenTable(tokens map[string]string) *TokenTable {
	t := &TokenTable{tokens: make(map[string]string, len(tokens))}
	for token, user := range tokens {
		t.tokens[token] = user
	}
	return t
}

func (t *TokenTable) ResolveCaller(_ context.Context, token string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	user, ok := t.tokens[token]
	if !ok || token == "" {
		return "", domain.ErrInvalidToken
	}
	return user, nil
}

func (t *TokenTable) Add(token, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens[token] = userID
}
