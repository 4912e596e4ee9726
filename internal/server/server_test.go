package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/repositories"
	"github.com/unnipv/musync/internal/shared"
	"github.com/unnipv/musync/internal/tasks"
)

type fakeReconciler struct {
	gotID        string
	gotPlatforms []models.Platform
	err          error
}

func (f *fakeReconciler) Reconcile(_ context.Context, id string, platforms []models.Platform, _ chan<- tasks.ProgressUpdate) (*tasks.Report, error) {
	f.gotID = id
	f.gotPlatforms = platforms
	if f.err != nil {
		return nil, f.err
	}
	return &tasks.Report{
		PlaylistID: id,
		PerPlatform: map[models.Platform]*tasks.PlatformReport{
			models.PlatformSpotify: {Platform: models.PlatformSpotify, Status: tasks.OutcomeSynced, Matched: 3},
			models.PlatformYouTube: {Platform: models.PlatformYouTube, Status: tasks.OutcomeFailed, Error: "quota exceeded"},
		},
	}, nil
}

type fakePlaylists struct {
	playlists []models.Playlist
	err       error
}

func (f *fakePlaylists) List(context.Context) ([]models.Playlist, error) {
	return f.playlists, f.err
}

func (f *fakePlaylists) LoadPlaylist(_ context.Context, id string) (*models.Playlist, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.playlists {
		if f.playlists[i].ID == id {
			return &f.playlists[i], nil
		}
	}
	return nil, fmt.Errorf("playlist %s: %w", id, repositories.ErrNotFound)
}

func newTestRouter(rec Reconciler, pl PlaylistReader) http.Handler {
	return NewRouter(RouterOpts{API: NewAPI(rec, pl, shared.NewLogger(nil))})
}

func TestReconcileEndpoint(t *testing.T) {
	t.Run("returns per-platform report", func(t *testing.T) {
		rec := &fakeReconciler{}
		srv := httptest.NewServer(newTestRouter(rec, &fakePlaylists{}))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/api/playlists/p1/reconcile?platform=spotify&platform=yt", "", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if rec.gotID != "p1" {
			t.Errorf("expected playlist p1, got %q", rec.gotID)
		}
		want := []models.Platform{models.PlatformSpotify, models.PlatformYouTube}
		if !slices.Equal(rec.gotPlatforms, want) {
			t.Errorf("expected platforms %v, got %v", want, rec.gotPlatforms)
		}

		var report tasks.Report
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if got := report.PerPlatform[models.PlatformYouTube].Status; got != tasks.OutcomeFailed {
			t.Errorf("expected youtube failed, got %s", got)
		}
		if got := report.PerPlatform[models.PlatformSpotify].Matched; got != 3 {
			t.Errorf("expected 3 matched, got %d", got)
		}
	})

	t.Run("comma separated platforms", func(t *testing.T) {
		rec := &fakeReconciler{}
		req := httptest.NewRequest(http.MethodPost, "/api/playlists/p1/reconcile?platform=youtube,spotify", nil)
		w := httptest.NewRecorder()
		newTestRouter(rec, &fakePlaylists{}).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if len(rec.gotPlatforms) != 2 || rec.gotPlatforms[0] != models.PlatformYouTube {
			t.Errorf("unexpected platforms %v", rec.gotPlatforms)
		}
	})

	t.Run("no platform means all connected", func(t *testing.T) {
		rec := &fakeReconciler{}
		req := httptest.NewRequest(http.MethodPost, "/api/playlists/p1/reconcile", nil)
		w := httptest.NewRecorder()
		newTestRouter(rec, &fakePlaylists{}).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if rec.gotPlatforms != nil {
			t.Errorf("expected nil platforms, got %v", rec.gotPlatforms)
		}
	})

	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{name: "unknown platform", target: "/api/playlists/p1/reconcile?platform=tidal", status: http.StatusBadRequest},
		{name: "missing playlist", target: "/api/playlists/nope/reconcile", err: fmt.Errorf("load: %w", repositories.ErrNotFound), status: http.StatusNotFound},
		{name: "invalid input", target: "/api/playlists/p1/reconcile", err: fmt.Errorf("%w: empty", shared.ErrInvalidInput), status: http.StatusBadRequest},
		{name: "internal error", target: "/api/playlists/p1/reconcile", err: errors.New("disk on fire"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			w := httptest.NewRecorder()
			newTestRouter(&fakeReconciler{err: tt.err}, &fakePlaylists{}).ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("expected error body, got %s", w.Body.String())
			}
		})
	}
}

func TestPlaylistEndpoints(t *testing.T) {
	pl := &fakePlaylists{playlists: []models.Playlist{
		{ID: "p1", Name: "Road Trip", Tracks: []models.Track{{ID: "t1", Title: "Song", Artist: "Band"}}},
		{ID: "p2", Name: "Focus"},
	}}
	router := newTestRouter(&fakeReconciler{}, pl)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var got []models.Playlist
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 playlists, got %d", len(got))
		}
	})

	t.Run("list empty is an array", func(t *testing.T) {
		w := httptest.NewRecorder()
		newTestRouter(&fakeReconciler{}, &fakePlaylists{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))

		if got := strings.TrimSpace(w.Body.String()); got != "[]" {
			t.Errorf("expected [], got %s", got)
		}
	})

	t.Run("show", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/playlists/p1", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var got models.Playlist
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if got.Name != "Road Trip" || len(got.Tracks) != 1 {
			t.Errorf("unexpected playlist %+v", got)
		}
	})

	t.Run("show missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/playlists/zzz", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

func TestRouterAmbientRoutes(t *testing.T) {
	router := NewRouter(RouterOpts{Logger: shared.NewLogger(nil)})

	t.Run("healthz", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "ok" {
			t.Errorf("unexpected healthz response %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("api absent without API", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), shared.NewLogger(nil))
	}()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}
