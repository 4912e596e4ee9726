package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/unnipv/musync/internal/auth"
	"github.com/unnipv/musync/internal/models"
)

// TokenRepository stores one OAuth token per platform. It implements auth.TokenStore.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// LoadToken returns the stored token for platform or [auth.ErrNoToken].
func (r *TokenRepository) LoadToken(ctx context.Context, platform models.Platform) (*oauth2.Token, error) {
	var (
		tok    oauth2.Token
		expiry sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, token_type, expiry FROM platform_tokens WHERE platform = ?`,
		string(platform),
	).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}
	if expiry.Valid {
		tok.Expiry = expiry.Time
	}
	return &tok, nil
}

// SaveToken upserts the token for platform. An empty refresh token keeps the stored one,
// since providers omit it from refresh responses.
func (r *TokenRepository) SaveToken(ctx context.Context, platform models.Platform, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("refusing to save empty token for %s", platform)
	}

	var expiry any
	if !token.Expiry.IsZero() {
		expiry = token.Expiry.UTC()
	}
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO platform_tokens (platform, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN platform_tokens.refresh_token ELSE excluded.refresh_token END,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`, string(platform), token.AccessToken, token.RefreshToken, tokenType, expiry, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}
