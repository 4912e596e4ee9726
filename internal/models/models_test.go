package models

import (
	"testing"
	"time"
)

func TestParsePlatform(t *testing.T) {
	tc := []struct {
		in      string
		want    Platform
		wantErr bool
	}{
		{in: "spotify", want: PlatformSpotify},
		{in: " Spotify ", want: PlatformSpotify},
		{in: "YouTube", want: PlatformYouTube},
		{in: "yt", want: PlatformYouTube},
		{in: "deezer", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlatform(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePlatform(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePlatform(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTrack(t *testing.T) {
	t.Run("RemoteID prefers native id on own platform", func(t *testing.T) {
		tr := Track{Platform: PlatformSpotify, PlatformID: "sp1"}
		if got := tr.RemoteID(PlatformSpotify); got != "sp1" {
			t.Errorf("RemoteID = %q, want sp1", got)
		}
		if tr.Resolved(PlatformYouTube) {
			t.Error("track should be unresolved on youtube")
		}
	})

	t.Run("Link ignores empty ids", func(t *testing.T) {
		var tr Track
		tr.Link(PlatformYouTube, "")
		if tr.Links != nil {
			t.Errorf("expected nil links, got %v", tr.Links)
		}
		tr.Link(PlatformYouTube, "yt1")
		if !tr.Resolved(PlatformYouTube) {
			t.Error("expected track to be resolved on youtube")
		}
	})

	t.Run("Local keeps origin link", func(t *testing.T) {
		now := time.Now()
		remote := Track{Title: "Hello", Artist: "Adele", Platform: PlatformYouTube, PlatformID: "vid", EntryID: "item"}
		local := remote.Local("abc", now)
		if local.Platform != "" || local.PlatformID != "" || local.EntryID != "" {
			t.Errorf("local track should not carry remote identity: %+v", local)
		}
		if local.RemoteID(PlatformYouTube) != "vid" {
			t.Errorf("expected youtube link vid, got %q", local.RemoteID(PlatformYouTube))
		}
		if !local.AddedAt.Equal(now) {
			t.Errorf("AddedAt = %v, want %v", local.AddedAt, now)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		if err := (Track{Title: "Hello", Artist: "Adele"}).Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := (Track{Title: "Hello"}).Validate(); err == nil {
			t.Error("expected error for missing artist")
		}
		if err := (Track{Title: "Hello", Artist: "Adele", DurationSeconds: -1}).Validate(); err == nil {
			t.Error("expected error for negative duration")
		}
	})
}

func TestPlaylistValidate(t *testing.T) {
	p := Playlist{Name: "Road trip", Tracks: []Track{{Title: "Hello", Artist: "Adele"}, {Title: "x"}}}
	if err := p.Validate(); err == nil {
		t.Error("expected error for invalid nested track")
	}
	if p.Connection(PlatformSpotify) != nil {
		t.Error("expected nil connection")
	}
}
