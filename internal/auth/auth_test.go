package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/shared"
)

type memStore struct {
	mu     sync.Mutex
	tokens map[models.Platform]*oauth2.Token
	saves  int
}

func (m *memStore) LoadToken(_ context.Context, p models.Platform) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[p]
	if !ok {
		return nil, ErrNoToken
	}
	return t, nil
}

func (m *memStore) SaveToken(_ context.Context, p models.Platform, t *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = make(map[models.Platform]*oauth2.Token)
	}
	m.tokens[p] = t
	m.saves++
	return nil
}

func tokenServer(t *testing.T, refreshes *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		*refreshes++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-access","token_type":"Bearer","expires_in":3600}`))
	}))
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{ClientID: "id", ClientSecret: "secret", Endpoint: oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams}}
}

func TestTokenSource(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token is returned as is", func(t *testing.T) {
		store := &memStore{tokens: map[models.Platform]*oauth2.Token{
			models.PlatformSpotify: {AccessToken: "current", Expiry: time.Now().Add(time.Hour)},
		}}
		ts := NewTokenSource(models.PlatformSpotify, testConfig("http://127.0.0.1:1"), store, nil)
		got, err := ts.Token(ctx)
		if err != nil || got != "current" {
			t.Errorf("Token() = %q, %v", got, err)
		}
	})

	t.Run("expired token refreshes and persists", func(t *testing.T) {
		var refreshes int
		srv := tokenServer(t, &refreshes)
		defer srv.Close()

		store := &memStore{tokens: map[models.Platform]*oauth2.Token{
			models.PlatformYouTube: {AccessToken: "old", RefreshToken: "refresh-1", Expiry: time.Now().Add(-time.Hour)},
		}}
		ts := NewTokenSource(models.PlatformYouTube, testConfig(srv.URL), store, nil)

		got, err := ts.Token(ctx)
		if err != nil || got != "fresh-access" {
			t.Fatalf("Token() = %q, %v", got, err)
		}
		if refreshes != 1 || store.saves != 1 {
			t.Errorf("refreshes = %d, saves = %d", refreshes, store.saves)
		}
		saved, _ := store.LoadToken(ctx, models.PlatformYouTube)
		if saved.RefreshToken != "refresh-1" {
			t.Errorf("refresh token lost: %+v", saved)
		}
	})

	t.Run("Refresh forces an exchange", func(t *testing.T) {
		var refreshes int
		srv := tokenServer(t, &refreshes)
		defer srv.Close()

		store := &memStore{tokens: map[models.Platform]*oauth2.Token{
			models.PlatformSpotify: {AccessToken: "revoked", RefreshToken: "refresh-1", Expiry: time.Now().Add(time.Hour)},
		}}
		ts := NewTokenSource(models.PlatformSpotify, testConfig(srv.URL), store, nil)
		got, err := ts.Refresh(ctx)
		if err != nil || got != "fresh-access" {
			t.Fatalf("Refresh() = %q, %v", got, err)
		}
		if refreshes != 1 {
			t.Errorf("refreshes = %d, want 1", refreshes)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		ts := NewTokenSource(models.PlatformSpotify, testConfig("http://127.0.0.1:1"), &memStore{}, nil)
		if _, err := ts.Token(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("no refresh token", func(t *testing.T) {
		store := &memStore{tokens: map[models.Platform]*oauth2.Token{
			models.PlatformSpotify: {AccessToken: "old", Expiry: time.Now().Add(-time.Hour)},
		}}
		ts := NewTokenSource(models.PlatformSpotify, testConfig("http://127.0.0.1:1"), store, nil)
		if _, err := ts.Token(ctx); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})

	t.Run("rejected refresh", func(t *testing.T) {
		var refreshes int
		srv := tokenServer(t, &refreshes)
		defer srv.Close()

		store := &memStore{tokens: map[models.Platform]*oauth2.Token{
			models.PlatformSpotify: {AccessToken: "old", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)},
		}}
		ts := NewTokenSource(models.PlatformSpotify, testConfig(srv.URL), store, nil)
		if _, err := ts.Token(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})
}

func TestOAuthConfig(t *testing.T) {
	cfg := shared.DefaultConfig()
	cfg.Credentials.Spotify.ClientID, cfg.Credentials.Spotify.ClientSecret = "id", "secret"
	cfg.Credentials.YouTube.ClientID, cfg.Credentials.YouTube.ClientSecret = "", ""

	sp, err := OAuthConfig(models.PlatformSpotify, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(AuthCodeURL(sp, "xyz"), "state=xyz") {
		t.Error("auth URL should carry state")
	}

	if _, err := OAuthConfig(models.PlatformYouTube, cfg); !errors.Is(err, shared.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	if tok, err := Static("abc").Token(context.Background()); err != nil || tok != "abc" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
	if _, err := Static("abc").Refresh(context.Background()); !errors.Is(err, shared.ErrNoRefreshToken) {
		t.Errorf("expected ErrNoRefreshToken, got %v", err)
	}
}
