// Spotify Web API implementation of [Catalog]
//
// Payloads are decoded into github.com/zmb3/spotify/v2 types; see https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/quota"
	"github.com/unnipv/musync/internal/remote"
	"github.com/unnipv/musync/internal/shared"
)

const (
	spotifyBaseURL     = "https://api.spotify.com/v1"
	spotifyPlaylistURL = "https://open.spotify.com/playlist/"

	// spotifyMaxBatch is the Web API limit for adding or removing playlist items.
	spotifyMaxBatch = 100
	spotifyPageSize = 100
	spotifySearchN  = 5
)

// spotifyRemoval targets specific occurrences of a URI so duplicates elsewhere in the playlist survive.
type spotifyRemoval struct {
	URI       string `json:"uri"`
	Positions []int  `json:"positions"`
}

// SpotifyCatalog implements [Catalog] against the Spotify Web API.
type SpotifyCatalog struct {
	caller
	baseURL string
}

// SpotifyOption configures a [SpotifyCatalog].
type SpotifyOption func(*SpotifyCatalog)

// WithSpotifyBaseURL points the catalog at another API root (used by tests).
func WithSpotifyBaseURL(u string) SpotifyOption {
	return func(s *SpotifyCatalog) { s.baseURL = u }
}

// NewSpotify creates a Spotify catalog.
func NewSpotify(client *remote.Client, creds Credentials, opts ...SpotifyOption) *SpotifyCatalog {
	s := &SpotifyCatalog{caller: caller{client: client, creds: creds}, baseURL: spotifyBaseURL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SpotifyCatalog) Platform() models.Platform { return models.PlatformSpotify }
func (s *SpotifyCatalog) Name() string              { return "Spotify" }
func (s *SpotifyCatalog) MaxBatchSize() int         { return spotifyMaxBatch }

func (s *SpotifyCatalog) PlaylistURL(playlistID string) string {
	return spotifyPlaylistURL + playlistID
}

// ListTracks follows the "next" links of the playlist items endpoint. Each track's EntryID holds
// its position in the playlist snapshot read here, which [SpotifyCatalog.RemoveTracks] needs.
func (s *SpotifyCatalog) ListTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var meta spotify.SimplePlaylist
	if err := s.decode(ctx, remote.Request{
		URL:     fmt.Sprintf("%s/playlists/%s?fields=snapshot_id", s.baseURL, url.PathEscape(playlistID)),
		Op:      quota.ReadLight,
		NoCache: true,
	}, &meta); err != nil {
		return nil, fmt.Errorf("failed to read spotify playlist %s: %w", playlistID, err)
	}

	next := fmt.Sprintf("%s/playlists/%s/tracks?limit=%d&offset=0", s.baseURL, url.PathEscape(playlistID), spotifyPageSize)

	var (
		tracks   []models.Track
		position int
	)
	for next != "" {
		var page spotify.PlaylistTrackPage
		if err := s.decode(ctx, remote.Request{URL: next, Op: quota.ReadLight}, &page); err != nil {
			return nil, fmt.Errorf("failed to list spotify playlist %s: %w", playlistID, err)
		}

		for _, item := range page.Tracks {
			position++
			if item.IsLocal || item.Track.ID == "" {
				continue
			}
			t := spotifyTrack(item.Track)
			t.EntryID = spotifyEntryID(meta.SnapshotID, position-1)
			t.AddedAt, _ = time.Parse(time.RFC3339, item.AddedAt)
			tracks = append(tracks, t)
		}
		next = page.Next
	}
	return tracks, nil
}

// SearchTrack queries by track and artist field filters and scores the first few results.
func (s *SpotifyCatalog) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("track:%s artist:%s", title, artist))
	q.Set("type", "track")
	q.Set("limit", fmt.Sprint(spotifySearchN))

	var result spotify.SearchResult
	if err := s.decode(ctx, remote.Request{URL: s.baseURL + "/search?" + q.Encode(), Op: quota.Search}, &result); err != nil {
		return nil, fmt.Errorf("spotify search failed: %w", err)
	}

	var candidates []models.Track
	if result.Tracks != nil {
		for _, ft := range result.Tracks.Tracks {
			candidates = append(candidates, spotifyTrack(ft))
		}
	}
	return bestMatch(candidates, title, artist)
}

// AddTracks appends up to 100 track ids.
func (s *SpotifyCatalog) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > spotifyMaxBatch {
		return fmt.Errorf("spotify accepts at most %d tracks per call, got %d", spotifyMaxBatch, len(ids))
	}

	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = spotifyTrackURI(id)
	}

	_, err := s.call(ctx, remote.Request{
		Method:     http.MethodPost,
		URL:        s.playlistTracksURL(playlistID),
		Body:       map[string][]string{"uris": uris},
		Op:         quota.Write,
		Invalidate: s.playlistKey(playlistID),
	})
	if err != nil {
		return fmt.Errorf("failed to add %d tracks to spotify playlist %s: %w", len(ids), playlistID, err)
	}
	return nil
}

// RemoveTracks removes the listed occurrences only, addressed by position within the snapshot
// they were listed from.
func (s *SpotifyCatalog) RemoveTracks(ctx context.Context, playlistID string, tracks []models.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	if len(tracks) > spotifyMaxBatch {
		return fmt.Errorf("spotify accepts at most %d tracks per call, got %d", spotifyMaxBatch, len(tracks))
	}

	body := struct {
		Tracks     []spotifyRemoval `json:"tracks"`
		SnapshotID string           `json:"snapshot_id,omitempty"`
	}{}
	byURI := make(map[string]int)
	for i, t := range tracks {
		snapshot, position, ok := parseSpotifyEntry(t.EntryID)
		if !ok {
			return fmt.Errorf("%w: spotify track %q has no playlist position", shared.ErrInvalidInput, t.Title)
		}
		if i == 0 {
			body.SnapshotID = snapshot
		} else if snapshot != body.SnapshotID {
			return fmt.Errorf("%w: spotify tracks come from different playlist snapshots", shared.ErrInvalidInput)
		}

		uri := spotifyTrackURI(t.RemoteID(models.PlatformSpotify))
		j, seen := byURI[uri]
		if !seen {
			j = len(body.Tracks)
			byURI[uri] = j
			body.Tracks = append(body.Tracks, spotifyRemoval{URI: uri})
		}
		body.Tracks[j].Positions = append(body.Tracks[j].Positions, position)
	}

	_, err := s.call(ctx, remote.Request{
		Method:     http.MethodDelete,
		URL:        s.playlistTracksURL(playlistID),
		Body:       body,
		Op:         quota.Delete,
		Invalidate: s.playlistKey(playlistID),
	})
	if err != nil {
		return fmt.Errorf("failed to remove %d tracks from spotify playlist %s: %w", len(tracks), playlistID, err)
	}
	return nil
}

// CreatePlaylist creates a private playlist owned by the current user.
func (s *SpotifyCatalog) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	var user spotify.PrivateUser
	if err := s.decode(ctx, remote.Request{URL: s.baseURL + "/me", Op: quota.ReadLight}, &user); err != nil {
		return "", fmt.Errorf("failed to load spotify profile: %w", err)
	}

	var playlist spotify.FullPlaylist
	err := s.decode(ctx, remote.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/users/%s/playlists", s.baseURL, url.PathEscape(user.ID)),
		Body:   map[string]any{"name": name, "description": description, "public": false},
		Op:     quota.Write,
	}, &playlist)
	if err != nil {
		return "", fmt.Errorf("failed to create spotify playlist %q: %w", name, err)
	}
	return playlist.ID.String(), nil
}

// TrackCount reads the live total from a one-item page.
func (s *SpotifyCatalog) TrackCount(ctx context.Context, playlistID string) (int, error) {
	u := fmt.Sprintf("%s/playlists/%s/tracks?limit=1&fields=total", s.baseURL, url.PathEscape(playlistID))

	var page spotify.PlaylistTrackPage
	if err := s.decode(ctx, remote.Request{URL: u, Op: quota.ReadLight, NoCache: true}, &page); err != nil {
		return 0, fmt.Errorf("failed to count spotify playlist %s: %w", playlistID, err)
	}
	return int(page.Total), nil
}

func (s *SpotifyCatalog) playlistKey(playlistID string) string {
	return "/playlists/" + url.PathEscape(playlistID) + "/"
}

func (s *SpotifyCatalog) playlistTracksURL(playlistID string) string {
	return s.baseURL + s.playlistKey(playlistID) + "tracks"
}

func spotifyTrackURI(id string) string {
	return "spotify:track:" + id
}

// spotifyEntryID encodes an item's position together with the snapshot it was read from.
func spotifyEntryID(snapshot string, position int) string {
	return strconv.Itoa(position) + "@" + snapshot
}

func parseSpotifyEntry(entry string) (snapshot string, position int, ok bool) {
	pos, snapshot, found := strings.Cut(entry, "@")
	if !found {
		return "", 0, false
	}
	position, err := strconv.Atoi(pos)
	if err != nil || position < 0 {
		return "", 0, false
	}
	return snapshot, position, true
}

func spotifyTrack(ft spotify.FullTrack) models.Track {
	artists := make([]string, len(ft.Artists))
	for i, a := range ft.Artists {
		artists[i] = a.Name
	}
	return models.Track{
		Title:           ft.Name,
		Artist:          joinArtists(artists),
		Album:           ft.Album.Name,
		DurationSeconds: int(ft.Duration) / 1000,
		Platform:        models.PlatformSpotify,
		PlatformID:      ft.ID.String(),
	}
}
