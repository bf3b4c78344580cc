package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// TokenResolver maps session tokens to users via the user_tokens table.
type TokenResolver struct {
	pool *pgxpool.Pool
}

func NewTokenResolver(pool *pgxpool.Pool) *TokenResolver {
	return &TokenResolver{pool: pool}
}

func (r *TokenResolver) ResolveCaller(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidToken
	}
	var userID string
	err := r.pool.QueryRow(ctx,
		`SELECT user_id FROM user_tokens WHERE token=$1 AND (expires_at IS NULL OR expires_at > now())`, token,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("resolve token: %w", err)
	}
	return userID, nil
}

// IssueToken stores a token for userID. A zero ttl never expires.
func (r *TokenResolver) IssueToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at`,
		token, userID, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	return nil
}
