package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unnipv/musync/internal/matching"
	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/remote"
	"github.com/unnipv/musync/internal/shared"
)

// SearchAcceptThreshold is the minimum [matching.TrackMatchScore] a search candidate needs to count as found.
const SearchAcceptThreshold = 0.5

// Catalog is one remote platform's playlist API, expressed in [models.Track].
type Catalog interface {
	// Platform identifies the catalog.
	Platform() models.Platform

	// Name returns a display name (e.g., "Spotify", "YouTube")
	Name() string

	// ListTracks fetches every track of a remote playlist, following pagination.
	ListTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// SearchTrack returns the best candidate for title and artist, or [shared.ErrTrackNotFound].
	SearchTrack(ctx context.Context, title, artist string) (*models.Track, error)

	// AddTracks appends tracks by native id in one call. len(ids) must not exceed MaxBatchSize.
	AddTracks(ctx context.Context, playlistID string, ids []string) error

	// RemoveTracks removes tracks previously returned by ListTracks in one call.
	RemoveTracks(ctx context.Context, playlistID string, tracks []models.Track) error

	// CreatePlaylist creates an empty private playlist and returns its id.
	CreatePlaylist(ctx context.Context, name, description string) (string, error)

	// TrackCount returns the live number of items in a playlist, bypassing caches.
	TrackCount(ctx context.Context, playlistID string) (int, error)

	// PlaylistURL returns a user-facing link.
	PlaylistURL(playlistID string) string

	// MaxBatchSize is the largest number of tracks one add or remove call accepts.
	MaxBatchSize() int
}

// Credentials supplies bearer tokens for one platform.
type Credentials interface {
	// Token returns the current bearer token.
	Token(ctx context.Context) (string, error)
	// Refresh forces a new token after the current one was rejected.
	Refresh(ctx context.Context) (string, error)
}

// caller pairs a remote client with a credential source.
type caller struct {
	client *remote.Client
	creds  Credentials
}

// call performs req with the current bearer and retries once with a refreshed one on auth failure.
// A Token error is kept and attached to the auth failure it leads to.
func (c caller) call(ctx context.Context, req remote.Request) (*remote.Response, error) {
	var (
		bearer string
		tokErr error
	)
	if c.creds != nil {
		bearer, tokErr = c.creds.Token(ctx)
	}

	resp, err := c.client.Call(ctx, req, bearer)
	if err == nil || !errors.Is(err, shared.ErrAuthFailed) || c.creds == nil {
		return resp, err
	}

	fresh, rerr := c.creds.Refresh(ctx)
	if rerr != nil || fresh == "" || fresh == bearer {
		if tokErr != nil {
			return nil, fmt.Errorf("%w: failed to get token: %w", err, tokErr)
		}
		return nil, err
	}
	return c.client.Call(ctx, req, fresh)
}

// decode performs req and unmarshals its body into v.
func (c caller) decode(ctx context.Context, req remote.Request, v any) error {
	resp, err := c.call(ctx, req)
	if err != nil {
		return err
	}
	if v == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.Decode(v)
}

// bestMatch picks the candidate with the highest [matching.TrackMatchScore] at or above [SearchAcceptThreshold].
func bestMatch(candidates []models.Track, title, artist string) (*models.Track, error) {
	query := models.Track{Title: title, Artist: artist}

	var best *models.Track
	var bestScore float64
	for i := range candidates {
		score := matching.TrackMatchScore(query, candidates[i])
		if score >= SearchAcceptThreshold && (best == nil || score > bestScore) {
			best, bestScore = &candidates[i], score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s - %s", shared.ErrTrackNotFound, artist, title)
	}
	found := *best
	return &found, nil
}

func joinArtists(names []string) string {
	return strings.Join(names, ", ")
}
