package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Platform identifies a remote streaming catalog.
type Platform string

const (
	PlatformSpotify Platform = "spotify"
	PlatformYouTube Platform = "youtube"
)

// Platforms lists every platform the engine knows how to reconcile, in sync order.
var Platforms = []Platform{PlatformSpotify, PlatformYouTube}

// ParsePlatform maps user input (case-insensitive, "yt" accepted) to a [Platform].
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spotify":
		return PlatformSpotify, nil
	case "youtube", "yt", "ytmusic":
		return PlatformYouTube, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

func (p Platform) String() string { return string(p) }

// SyncStatus is the persisted outcome of the last reconciliation attempt for one platform.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncPartial SyncStatus = "partial"
	SyncFailed  SyncStatus = "failed"
)

// Track is a song as known to one side of a sync.
//
// Local tracks carry no Platform; their per-platform identifiers live in Links.
// Remote tracks carry the Platform they were fetched from and its native PlatformID.
// EntryID is the playlist-item identifier some platforms require for removals.
type Track struct {
	ID              string              `json:"id,omitempty"`
	Title           string              `json:"title" validate:"required"`
	Artist          string              `json:"artist" validate:"required"`
	Album           string              `json:"album,omitempty"`
	DurationSeconds int                 `json:"durationSeconds,omitempty" validate:"gte=0"`
	Platform        Platform            `json:"platform,omitempty"`
	PlatformID      string              `json:"platformId,omitempty"`
	EntryID         string              `json:"entryId,omitempty"`
	Links           map[Platform]string `json:"links,omitempty"`
	AddedAt         time.Time           `json:"addedAt"`
}

// Validate checks the required metadata fields.
func (t Track) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid track %q: %w", t.Title, err)
	}
	return nil
}

// RemoteID returns the track's native identifier on p, or "" if unresolved there.
func (t Track) RemoteID(p Platform) string {
	if t.Platform == p && t.PlatformID != "" {
		return t.PlatformID
	}
	return t.Links[p]
}

// Resolved reports whether the track can be written to p without a search.
func (t Track) Resolved(p Platform) bool {
	return t.RemoteID(p) != ""
}

// Link records id as the track's identifier on p.
func (t *Track) Link(p Platform, id string) {
	if id == "" {
		return
	}
	if t.Links == nil {
		t.Links = make(map[Platform]string)
	}
	t.Links[p] = id
}

// Local converts a remote track into a local record linked back to its origin platform.
func (t Track) Local(id string, addedAt time.Time) Track {
	local := Track{
		ID:              id,
		Title:           t.Title,
		Artist:          t.Artist,
		Album:           t.Album,
		DurationSeconds: t.DurationSeconds,
		AddedAt:         addedAt,
	}
	local.Link(t.Platform, t.PlatformID)
	return local
}

// SyncState is the per-platform connection record of a playlist.
type SyncState struct {
	Platform           Platform   `json:"platform"`
	PlatformPlaylistID string     `json:"platformPlaylistId"`
	LastSyncedAt       time.Time  `json:"lastSyncedAt"`
	Status             SyncStatus `json:"syncStatus"`
	Error              string     `json:"syncError,omitempty"`
}

// Playlist is the local playlist record mirrored to remote platforms.
type Playlist struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name" validate:"required"`
	Description string                  `json:"description,omitempty"`
	Tracks      []Track                 `json:"tracks"`
	Connections map[Platform]*SyncState `json:"connections,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// Validate checks the playlist and each of its tracks.
func (p Playlist) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid playlist: %w", err)
	}
	for _, t := range p.Tracks {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Connection returns the sync state for platform, or nil when the playlist is not connected there.
func (p Playlist) Connection(platform Platform) *SyncState {
	if p.Connections == nil {
		return nil
	}
	return p.Connections[platform]
}

// MatchedPair is one cross-platform pairing with its similarity score.
type MatchedPair struct {
	Source Track   `json:"source"`
	Target Track   `json:"target"`
	Score  float64 `json:"score"`
}

// MatchResult partitions two track lists: every input track lands in exactly one bucket.
type MatchResult struct {
	Matched         []MatchedPair `json:"matched"`
	UnmatchedSource []Track       `json:"unmatchedSource"`
	UnmatchedTarget []Track       `json:"unmatchedTarget"`
}
