package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/remote"
	"github.com/unnipv/musync/internal/shared"
)

const youtubeToken = "ya29.youtube-access-token"

func TestYouTubeVideoTrack(t *testing.T) {
	tc := []struct {
		name, title, channel string
		wantTitle, wantArtist string
	}{
		{name: "topic channel", title: "Hello", channel: "Adele - Topic", wantTitle: "Hello", wantArtist: "Adele"},
		{name: "artist dash title", title: "Adele - Hello (Official Music Video)", channel: "AdeleVEVO", wantTitle: "Hello", wantArtist: "Adele"},
		{name: "escaped entities", title: "Guns N&#39; Roses - Don&#39;t Cry [Official Video]", channel: "GunsNRosesVEVO", wantTitle: "Don't Cry", wantArtist: "Guns N' Roses"},
		{name: "plain upload", title: "Clair de Lune", channel: "Piano Channel", wantTitle: "Clair de Lune", wantArtist: "Piano Channel"},
		{name: "remix kept", title: "Song (Remix)", channel: "X - Topic", wantTitle: "Song (Remix)", wantArtist: "X"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := youtubeVideoTrack("vid", tt.title, tt.channel)
			if got.Title != tt.wantTitle || got.Artist != tt.wantArtist {
				t.Errorf("got %q by %q, want %q by %q", got.Title, got.Artist, tt.wantTitle, tt.wantArtist)
			}
			if got.Platform != models.PlatformYouTube || got.PlatformID != "vid" {
				t.Errorf("unexpected identity %+v", got)
			}
		})
	}
}

func TestYouTubeCatalog(t *testing.T) {
	t.Run("ListTracks pages and skips unavailable videos", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlistItems" || r.URL.Query().Get("playlistId") != "PL1" {
				t.Errorf("unexpected request %s", r.URL)
			}
			if r.URL.Query().Get("pageToken") == "" {
				w.Write([]byte(`{"nextPageToken":"p2","items":[
					{"id":"item1","snippet":{"title":"Hello","videoOwnerChannelTitle":"Adele - Topic","publishedAt":"2024-01-01T00:00:00Z","resourceId":{"videoId":"v1"}},"contentDetails":{"videoId":"v1"}},
					{"id":"item2","snippet":{"title":"Deleted video","resourceId":{"videoId":"v2"}},"contentDetails":{"videoId":"v2"}}
				]}`))
				return
			}
			w.Write([]byte(`{"items":[{"id":"item3","snippet":{"title":"Numb","videoOwnerChannelTitle":"Linkin Park - Topic","resourceId":{"videoId":"v3"}}}]}`))
		}))
		defer srv.Close()

		y := NewYouTube(newRemote("youtube"), &staticCreds{token: youtubeToken}, WithYouTubeBaseURL(srv.URL))
		tracks, err := y.ListTracks(context.Background(), "PL1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("got %d tracks, want 2", len(tracks))
		}
		if tracks[0].EntryID != "item1" || tracks[0].PlatformID != "v1" || tracks[0].Artist != "Adele" {
			t.Errorf("unexpected first track %+v", tracks[0])
		}
		if tracks[1].PlatformID != "v3" {
			t.Errorf("resourceId fallback not used: %+v", tracks[1])
		}
	})

	t.Run("reads fall back to API key without a bearer", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("key") != "api-key" {
				t.Errorf("expected fallback key, got %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"items":[{"id":{"videoId":"v9"},"snippet":{"title":"Hello","channelTitle":"Adele - Topic"}}]}`))
		}))
		defer srv.Close()

		y := NewYouTube(newRemote("youtube", remote.WithFallbackKey("api-key")), nil, WithYouTubeBaseURL(srv.URL))
		got, err := y.SearchTrack(context.Background(), "Hello", "Adele")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.PlatformID != "v9" {
			t.Errorf("PlatformID = %q, want v9", got.PlatformID)
		}
	})

	t.Run("writes without a bearer fail", func(t *testing.T) {
		y := NewYouTube(newRemote("youtube", remote.WithFallbackKey("api-key")), nil, WithYouTubeBaseURL("http://127.0.0.1:1"))
		if err := y.AddTracks(context.Background(), "PL1", []string{"v1"}); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("AddTracks inserts one item per video", func(t *testing.T) {
		var bodies []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(b))
			w.Write([]byte(`{"id":"new"}`))
		}))
		defer srv.Close()

		y := NewYouTube(newRemote("youtube"), &staticCreds{token: youtubeToken}, WithYouTubeBaseURL(srv.URL))
		if err := y.AddTracks(context.Background(), "PL1", []string{"v1", "v2"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(bodies) != 2 {
			t.Fatalf("calls = %d, want 2", len(bodies))
		}
		if !strings.Contains(bodies[0], `"videoId":"v1"`) || !strings.Contains(bodies[0], `"playlistId":"PL1"`) {
			t.Errorf("unexpected body %s", bodies[0])
		}
		if used := y.client.Quota().Used(); used != 100 {
			t.Errorf("quota used = %d, want 100", used)
		}
	})

	t.Run("RemoveTracks requires item ids", func(t *testing.T) {
		var deleted []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deleted = append(deleted, r.URL.Query().Get("id"))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		y := NewYouTube(newRemote("youtube"), &staticCreds{token: youtubeToken}, WithYouTubeBaseURL(srv.URL))
		ctx := context.Background()
		if err := y.RemoveTracks(ctx, "PL1", []models.Track{{Title: "a", EntryID: "item1"}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(deleted) != 1 || deleted[0] != "item1" {
			t.Errorf("deleted = %v", deleted)
		}
		if err := y.RemoveTracks(ctx, "PL1", []models.Track{{Title: "b"}}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("CreatePlaylist and TrackCount", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				b, _ := io.ReadAll(r.Body)
				if !strings.Contains(string(b), `"privacyStatus":"private"`) {
					t.Errorf("body = %s", b)
				}
				w.Write([]byte(`{"id":"PLnew"}`))
			default:
				if r.URL.Query().Get("id") == "missing" {
					w.Write([]byte(`{"items":[]}`))
					return
				}
				w.Write([]byte(`{"items":[{"id":"PLnew","contentDetails":{"itemCount":7}}]}`))
			}
		}))
		defer srv.Close()

		y := NewYouTube(newRemote("youtube"), &staticCreds{token: youtubeToken}, WithYouTubeBaseURL(srv.URL))
		ctx := context.Background()

		id, err := y.CreatePlaylist(ctx, "Road trip", "mirrored")
		if err != nil || id != "PLnew" {
			t.Fatalf("CreatePlaylist = %q, %v", id, err)
		}
		if n, err := y.TrackCount(ctx, id); err != nil || n != 7 {
			t.Errorf("TrackCount = %d, %v", n, err)
		}
		if _, err := y.TrackCount(ctx, "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if got := y.PlaylistURL("PLnew"); got != "https://music.youtube.com/playlist?list=PLnew" {
			t.Errorf("PlaylistURL = %q", got)
		}
	})
}
