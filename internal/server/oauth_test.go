package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/shared"
)

// tokenServer is a fake token endpoint that requires a PKCE verifier.
func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("code_verifier") == "" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`))
	}))
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:3000/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example.com/authorize", TokenURL: tokenURL},
	}
}

func TestOAuthHandler(t *testing.T) {
	ts := tokenServer(t)
	defer ts.Close()

	t.Run("auth code url carries state and challenge", func(t *testing.T) {
		h := NewOAuthHandler(models.PlatformSpotify, testOAuthConfig(ts.URL), "state-123")
		u, err := url.Parse(h.AuthCodeURL())
		if err != nil {
			t.Fatalf("parse url: %v", err)
		}
		q := u.Query()
		if q.Get("state") != "state-123" {
			t.Errorf("expected state, got %q", q.Get("state"))
		}
		if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
			t.Errorf("expected S256 challenge, got %v", q)
		}
		if q.Get("access_type") != "offline" {
			t.Errorf("expected offline access, got %q", q.Get("access_type"))
		}
	})

	t.Run("successful exchange", func(t *testing.T) {
		h := NewOAuthHandler(models.PlatformYouTube, testOAuthConfig(ts.URL), "s")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "youtube") {
			t.Errorf("expected platform in page, got %s", w.Body.String())
		}

		res := <-h.Result()
		if err := res.Error(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Platform != models.PlatformYouTube || res.Token.AccessToken != "access" || res.Token.RefreshToken != "refresh" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "state mismatch", query: "state=evil&code=good-code", status: http.StatusBadRequest},
		{name: "user denied", query: "state=s&error=access_denied&error_description=nope", status: http.StatusBadRequest},
		{name: "exchange rejected", query: "state=s&code=bad-code", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOAuthHandler(models.PlatformSpotify, testOAuthConfig(ts.URL), "s")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
			res := <-h.Result()
			if !errors.Is(res.Error(), shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", res.Error())
			}
		})
	}

	t.Run("second callback rejected", func(t *testing.T) {
		h := NewOAuthHandler(models.PlatformSpotify, testOAuthConfig(ts.URL), "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}

		count := 0
		for range h.Result() {
			count++
		}
		if count != 1 {
			t.Errorf("expected exactly one result, got %d", count)
		}
	})

	t.Run("mounted on router", func(t *testing.T) {
		h := NewOAuthHandler(models.PlatformSpotify, testOAuthConfig(ts.URL), "s")
		router := NewRouter(RouterOpts{Handlers: []Handler{h}})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})
}
