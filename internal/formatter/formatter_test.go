package formatter

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/shared"
	"github.com/unnipv/musync/internal/tasks"
)

func sampleReport() *tasks.Report {
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	return &tasks.Report{
		PlaylistID:   "p1",
		PlaylistName: "Road Trip",
		StartedAt:    start,
		FinishedAt:   start.Add(1500 * time.Millisecond),
		PerPlatform: map[models.Platform]*tasks.PlatformReport{
			models.PlatformYouTube: {
				Platform: models.PlatformYouTube,
				Status:   tasks.OutcomePartial,
				Added:    2,
				Error:    "quota exceeded",
				Unavailable: []tasks.UnavailableTrack{
					{Title: "Unreleased Demo", Artist: "Nobody", Reason: "track unavailable"},
				},
			},
			models.PlatformSpotify: {
				Platform:    models.PlatformSpotify,
				Status:      tasks.OutcomeSynced,
				Matched:     10,
				Imported:    1,
				RemoteURL:   "https://open.spotify.com/playlist/abc",
				Unavailable: []tasks.UnavailableTrack{},
			},
		},
	}
}

func samplePlaylist() *models.Playlist {
	linked := models.Track{ID: "t1", Title: "Song One", Artist: "Artist One", Album: "Album One", DurationSeconds: 185}
	linked.Link(models.PlatformSpotify, "sp1")
	return &models.Playlist{
		ID:          "p1",
		Name:        "Road Trip",
		Description: "loud",
		Tracks:      []models.Track{linked, {ID: "t2", Title: "Song Two", Artist: "Artist Two"}},
		Connections: map[models.Platform]*models.SyncState{
			models.PlatformSpotify: {Platform: models.PlatformSpotify, PlatformPlaylistID: "abc", Status: models.SyncSynced},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"csv", FormatCSV},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[int]string{0: "-", 59: "0:59", 185: "3:05", 3725: "1:02:05"}
	for in, want := range tests {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteReport(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteReport(&buf, sampleReport(), FormatText); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"Road Trip", "synced", "partial", "quota exceeded", "Nobody - Unreleased Demo", "1.5s"} {
			if !strings.Contains(out, want) {
				t.Errorf("text report missing %q:\n%s", want, out)
			}
		}
		if strings.Index(out, "spotify") > strings.Index(out, "youtube") {
			t.Error("platforms should be listed in sync order")
		}
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteReport(&buf, sampleReport(), FormatMarkdown); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{
			"# Reconcile: Road Trip",
			"| [spotify](https://open.spotify.com/playlist/abc) | synced | 10 | 0 | 1 | 0 | 0 |",
			"| youtube | partial | 0 | 2 | 0 | 0 | 1 |",
			"## youtube",
			"- Nobody - Unreleased Demo (track unavailable)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("markdown report missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "## spotify") {
			t.Error("clean platforms should have no detail section")
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteReport(&buf, sampleReport(), FormatJSON); err != nil {
			t.Fatal(err)
		}
		var decoded struct {
			PerPlatform map[string]struct {
				Status      string `json:"status"`
				Unavailable []any  `json:"unavailableTracks"`
			} `json:"perPlatform"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if decoded.PerPlatform["youtube"].Status != "partial" || len(decoded.PerPlatform["youtube"].Unavailable) != 1 {
			t.Errorf("unexpected decoded report %+v", decoded)
		}
	})

	t.Run("csv rejected", func(t *testing.T) {
		if err := WriteReport(&bytes.Buffer{}, sampleReport(), FormatCSV); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWritePlaylist(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		data, err := PlaylistToCSV(samplePlaylist())
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d", len(lines))
		}
		if lines[0] != "ID,Title,Artist,Album,Duration,spotify_id,youtube_id" {
			t.Errorf("header = %q", lines[0])
		}
		if lines[1] != "t1,Song One,Artist One,Album One,185,sp1," {
			t.Errorf("row = %q", lines[1])
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WritePlaylist(&buf, samplePlaylist(), FormatText); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"Playlist: Road Trip (p1)", "spotify: synced abc", "1. Artist One - Song One [spotify]", "2. Artist Two - Song Two\n"} {
			if !strings.Contains(out, want) {
				t.Errorf("missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("markdown", func(t *testing.T) {
		out := string(PlaylistToMarkdown(samplePlaylist()))
		if !strings.Contains(out, "1. Artist One - Song One (Album One) [3:05]") {
			t.Errorf("unexpected markdown:\n%s", out)
		}
	})

	t.Run("list", func(t *testing.T) {
		out := string(PlaylistsToText([]models.Playlist{*samplePlaylist()}))
		if !strings.Contains(out, "p1  Road Trip  spotify:synced") {
			t.Errorf("unexpected list %q", out)
		}
		if !strings.Contains(string(PlaylistsToText(nil)), "No playlists") {
			t.Error("expected empty-state hint")
		}
	})
}
