// YouTube Data API v3 implementation of [Catalog]
//
// Payloads are decoded into google.golang.org/api/youtube/v3 types. Reads accept the static API key as a
// fallback credential; writes require an OAuth bearer.
package services

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"google.golang.org/api/youtube/v3"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/quota"
	"github.com/unnipv/musync/internal/remote"
	"github.com/unnipv/musync/internal/shared"
)

const (
	youtubeBaseURL     = "https://www.googleapis.com/youtube/v3"
	youtubePlaylistURL = "https://music.youtube.com/playlist?list="

	youtubePageSize = 50
	youtubeSearchN  = 5
	// musicCategory restricts searches to the Music video category.
	musicCategory = "10"
	topicSuffix   = " - Topic"
)

var videoDecoration = regexp.MustCompile(`(?i)\s*[(\[][^)\]]*\b(official|lyrics?|audio|video|visualizer|hd|hq|mv)\b[^)\]]*[)\]]`)

// YouTubeCatalog implements [Catalog] against the YouTube Data API.
type YouTubeCatalog struct {
	caller
	baseURL string
}

// YouTubeOption configures a [YouTubeCatalog].
type YouTubeOption func(*YouTubeCatalog)

// WithYouTubeBaseURL points the catalog at another API root (used by tests).
func WithYouTubeBaseURL(u string) YouTubeOption {
	return func(y *YouTubeCatalog) { y.baseURL = u }
}

// NewYouTube creates a YouTube catalog.
func NewYouTube(client *remote.Client, creds Credentials, opts ...YouTubeOption) *YouTubeCatalog {
	y := &YouTubeCatalog{caller: caller{client: client, creds: creds}, baseURL: youtubeBaseURL}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *YouTubeCatalog) Platform() models.Platform { return models.PlatformYouTube }
func (y *YouTubeCatalog) Name() string              { return "YouTube" }

// MaxBatchSize is 1: playlistItems.insert takes a single video.
func (y *YouTubeCatalog) MaxBatchSize() int { return 1 }

func (y *YouTubeCatalog) PlaylistURL(playlistID string) string {
	return youtubePlaylistURL + url.QueryEscape(playlistID)
}

// ListTracks pages through playlistItems. Deleted and private videos carry no owner channel and are skipped.
func (y *YouTubeCatalog) ListTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("part", "snippet,contentDetails")
		q.Set("playlistId", playlistID)
		q.Set("maxResults", fmt.Sprint(youtubePageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page youtube.PlaylistItemListResponse
		req := remote.Request{URL: y.baseURL + "/playlistItems?" + q.Encode(), Op: quota.ReadLight, ReadOnly: true}
		if err := y.decode(ctx, req, &page); err != nil {
			return nil, fmt.Errorf("failed to list youtube playlist %s: %w", playlistID, err)
		}

		for _, item := range page.Items {
			if t, ok := youtubeItemTrack(item); ok {
				tracks = append(tracks, t)
			}
		}

		if page.NextPageToken == "" {
			return tracks, nil
		}
		pageToken = page.NextPageToken
	}
}

// SearchTrack searches music videos for "title artist" and scores the first few results.
func (y *YouTubeCatalog) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("videoCategoryId", musicCategory)
	q.Set("maxResults", fmt.Sprint(youtubeSearchN))
	q.Set("q", strings.TrimSpace(title+" "+artist))

	var result youtube.SearchListResponse
	req := remote.Request{URL: y.baseURL + "/search?" + q.Encode(), Op: quota.Search, ReadOnly: true}
	if err := y.decode(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	var candidates []models.Track
	for _, r := range result.Items {
		if r == nil || r.Id == nil || r.Id.VideoId == "" || r.Snippet == nil {
			continue
		}
		t := youtubeVideoTrack(r.Id.VideoId, r.Snippet.Title, r.Snippet.ChannelTitle)
		candidates = append(candidates, t)
	}
	return bestMatch(candidates, title, artist)
}

// AddTracks inserts each video id with its own call.
func (y *YouTubeCatalog) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	for _, id := range ids {
		item := &youtube.PlaylistItem{
			Snippet: &youtube.PlaylistItemSnippet{
				PlaylistId: playlistID,
				ResourceId: &youtube.ResourceId{Kind: "youtube#video", VideoId: id},
			},
		}

		_, err := y.call(ctx, remote.Request{
			Method:     http.MethodPost,
			URL:        y.baseURL + "/playlistItems?part=snippet",
			Body:       item,
			Op:         quota.Write,
			Invalidate: "playlistId=" + url.QueryEscape(playlistID),
		})
		if err != nil {
			return fmt.Errorf("failed to add video %s to youtube playlist %s: %w", id, playlistID, err)
		}
	}
	return nil
}

// RemoveTracks deletes playlist items by their item id.
func (y *YouTubeCatalog) RemoveTracks(ctx context.Context, playlistID string, tracks []models.Track) error {
	for _, t := range tracks {
		if t.EntryID == "" {
			return fmt.Errorf("%w: youtube track %q has no playlist item id", shared.ErrInvalidInput, t.Title)
		}

		_, err := y.call(ctx, remote.Request{
			Method:     http.MethodDelete,
			URL:        y.baseURL + "/playlistItems?id=" + url.QueryEscape(t.EntryID),
			Op:         quota.Delete,
			Invalidate: "playlistId=" + url.QueryEscape(playlistID),
		})
		if err != nil {
			return fmt.Errorf("failed to remove %q from youtube playlist %s: %w", t.Title, playlistID, err)
		}
	}
	return nil
}

// CreatePlaylist creates a private playlist on the authorized channel.
func (y *YouTubeCatalog) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	body := &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{Title: name, Description: description},
		Status:  &youtube.PlaylistStatus{PrivacyStatus: "private"},
	}

	var created youtube.Playlist
	err := y.decode(ctx, remote.Request{
		Method: http.MethodPost,
		URL:    y.baseURL + "/playlists?part=snippet,status",
		Body:   body,
		Op:     quota.Write,
	}, &created)
	if err != nil {
		return "", fmt.Errorf("failed to create youtube playlist %q: %w", name, err)
	}
	if created.Id == "" {
		return "", fmt.Errorf("%w: youtube returned no playlist id", shared.ErrAPIRequest)
	}
	return created.Id, nil
}

// TrackCount reads contentDetails.itemCount of the playlist resource.
func (y *YouTubeCatalog) TrackCount(ctx context.Context, playlistID string) (int, error) {
	u := y.baseURL + "/playlists?part=contentDetails&id=" + url.QueryEscape(playlistID)

	var resp youtube.PlaylistListResponse
	if err := y.decode(ctx, remote.Request{URL: u, Op: quota.ReadLight, ReadOnly: true, NoCache: true}, &resp); err != nil {
		return 0, fmt.Errorf("failed to count youtube playlist %s: %w", playlistID, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil {
		return 0, fmt.Errorf("%w: youtube %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return int(resp.Items[0].ContentDetails.ItemCount), nil
}

func youtubeItemTrack(item *youtube.PlaylistItem) (models.Track, bool) {
	if item == nil || item.Snippet == nil {
		return models.Track{}, false
	}

	videoID := ""
	if item.ContentDetails != nil {
		videoID = item.ContentDetails.VideoId
	}
	if videoID == "" && item.Snippet.ResourceId != nil {
		videoID = item.Snippet.ResourceId.VideoId
	}
	if videoID == "" || item.Snippet.VideoOwnerChannelTitle == "" {
		return models.Track{}, false
	}

	t := youtubeVideoTrack(videoID, item.Snippet.Title, item.Snippet.VideoOwnerChannelTitle)
	t.EntryID = item.Id
	t.AddedAt, _ = time.Parse(time.RFC3339, item.Snippet.PublishedAt)
	return t, true
}

// youtubeVideoTrack derives title and artist from a video title and its channel.
//
// "Artist - Topic" channels are auto-generated from label metadata, so the channel name is the artist and the
// title is clean. Other channels commonly title uploads "Artist - Title (Official Video)".
func youtubeVideoTrack(videoID, title, channel string) models.Track {
	title = html.UnescapeString(title)
	channel = html.UnescapeString(channel)

	artist, topic := strings.CutSuffix(channel, topicSuffix)
	if !topic {
		if left, right, ok := strings.Cut(title, " - "); ok {
			artist, title = strings.TrimSpace(left), right
		}
	}
	title = strings.TrimSpace(videoDecoration.ReplaceAllString(title, ""))

	return models.Track{
		Title:      title,
		Artist:     artist,
		Platform:   models.PlatformYouTube,
		PlatformID: videoID,
	}
}
