// Package auth supplies per-platform bearer credentials with a refresh path.
//
// A [TokenSource] wraps an [oauth2.Config] and persists refreshed tokens through a [TokenStore], so a token
// obtained once with the authorization code flow keeps working across runs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"google.golang.org/api/youtube/v3"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/shared"
)

// ErrNoToken is returned by a [TokenStore] that has nothing saved for a platform.
var ErrNoToken = errors.New("no token stored")

// TokenStore persists OAuth tokens per platform.
type TokenStore interface {
	LoadToken(ctx context.Context, platform models.Platform) (*oauth2.Token, error)
	SaveToken(ctx context.Context, platform models.Platform, token *oauth2.Token) error
}

// OAuthConfig builds the authorization code flow configuration for a platform from the app config.
func OAuthConfig(platform models.Platform, cfg *shared.Config) (*oauth2.Config, error) {
	switch platform {
	case models.PlatformSpotify:
		c := cfg.Credentials.Spotify
		if c.ClientID == "" || c.ClientSecret == "" {
			return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
		}
		return &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURI,
			Scopes: []string{
				spotifyauth.ScopePlaylistReadPrivate,
				spotifyauth.ScopePlaylistReadCollaborative,
				spotifyauth.ScopePlaylistModifyPrivate,
				spotifyauth.ScopePlaylistModifyPublic,
			},
			Endpoint: oauth2.Endpoint{AuthURL: spotifyauth.AuthURL, TokenURL: spotifyauth.TokenURL},
		}, nil
	case models.PlatformYouTube:
		c := cfg.Credentials.YouTube
		if c.ClientID == "" || c.ClientSecret == "" {
			return nil, fmt.Errorf("%w: youtube client_id and client_secret", shared.ErrMissingCredentials)
		}
		return &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURI,
			Scopes:       []string{youtube.YoutubeScope},
			Endpoint:     endpoints.Google,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", shared.ErrInvalidArgument, platform)
	}
}

// AuthCodeURL returns the consent page URL. Offline access with a forced consent prompt makes
// Google issue a refresh token on every login.
func AuthCodeURL(cfg *oauth2.Config, state string, opts ...oauth2.AuthCodeOption) string {
	opts = append([]oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")}, opts...)
	return cfg.AuthCodeURL(state, opts...)
}

// TokenSource hands out the stored access token for one platform and refreshes it when expired or rejected.
type TokenSource struct {
	mu       sync.Mutex
	platform models.Platform
	config   *oauth2.Config
	store    TokenStore
	token    *oauth2.Token
	logger   *log.Logger
}

// NewTokenSource creates a token source; the token is loaded lazily from store.
func NewTokenSource(platform models.Platform, config *oauth2.Config, store TokenStore, logger *log.Logger) *TokenSource {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TokenSource{platform: platform, config: config, store: store, logger: logger.With("platform", platform)}
}

// Token returns a valid access token, refreshing an expired one.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return "", err
	}
	if s.token.Valid() {
		return s.token.AccessToken, nil
	}
	return s.refresh(ctx)
}

// Refresh exchanges the refresh token for a new access token even if the current one looks valid.
func (s *TokenSource) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return "", err
	}
	return s.refresh(ctx)
}

// Save stores a token obtained from the authorization code flow.
func (s *TokenSource) Save(ctx context.Context, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveToken(ctx, s.platform, token); err != nil {
		return fmt.Errorf("failed to save %s token: %w", s.platform, err)
	}
	s.token = token
	return nil
}

func (s *TokenSource) load(ctx context.Context) error {
	if s.token != nil {
		return nil
	}
	token, err := s.store.LoadToken(ctx, s.platform)
	if errors.Is(err, ErrNoToken) {
		return fmt.Errorf("%w: run `musync auth login --platform %s`", shared.ErrNotAuthenticated, s.platform)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s token: %w", s.platform, err)
	}
	s.token = token
	return nil
}

func (s *TokenSource) refresh(ctx context.Context) (string, error) {
	if s.token.RefreshToken == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrNoRefreshToken, s.platform)
	}

	expired := *s.token
	expired.Expiry = time.Now().Add(-time.Minute)

	fresh, err := s.config.TokenSource(ctx, &expired).Token()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", shared.ErrRefreshFailed, s.platform, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = s.token.RefreshToken
	}

	if err := s.store.SaveToken(ctx, s.platform, fresh); err != nil {
		s.logger.Warn("failed to persist refreshed token", "error", err)
	}
	s.token = fresh
	s.logger.Debug("refreshed access token", "expiry", fresh.Expiry)
	return fresh.AccessToken, nil
}

// Static is a fixed bearer token with no refresh path, for tokens passed on the command line.
type Static string

func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", shared.ErrNotAuthenticated
	}
	return string(s), nil
}

func (s Static) Refresh(context.Context) (string, error) {
	return "", shared.ErrNoRefreshToken
}
