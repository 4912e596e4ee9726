// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/shared"
)

// FakeCatalog is an in-memory remote platform playlist store that satisfies services.Catalog.
//
// Errors can be injected per operation through the Fail* fields. Every call is appended to Calls.
type FakeCatalog struct {
	mu        sync.Mutex
	platform  models.Platform
	playlists map[string][]models.Track
	catalog   []models.Track
	batchSize int
	nextID    int

	FailList   error
	FailSearch map[string]error
	FailAdd    error
	FailRemove error
	FailCount  error
	Calls      []string
}

// NewFakeCatalog creates an empty catalog; searchable is the set of tracks [FakeCatalog.SearchTrack] can find.
func NewFakeCatalog(p models.Platform, batchSize int, searchable ...models.Track) *FakeCatalog {
	for i := range searchable {
		searchable[i].Platform = p
	}
	return &FakeCatalog{platform: p, playlists: make(map[string][]models.Track), catalog: searchable, batchSize: batchSize}
}

func (f *FakeCatalog) Platform() models.Platform { return f.platform }
func (f *FakeCatalog) Name() string              { return "fake " + string(f.platform) }
func (f *FakeCatalog) MaxBatchSize() int         { return f.batchSize }

func (f *FakeCatalog) PlaylistURL(id string) string {
	return fmt.Sprintf("https://%s.example/playlist/%s", f.platform, id)
}

// Seed replaces the contents of playlist id.
func (f *FakeCatalog) Seed(id string, tracks ...models.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range tracks {
		tracks[i].Platform = f.platform
		if tracks[i].EntryID == "" {
			f.nextID++
			tracks[i].EntryID = fmt.Sprintf("entry-%d", f.nextID)
		}
	}
	f.playlists[id] = tracks
}

// Tracks returns a copy of playlist id.
func (f *FakeCatalog) Tracks(id string) []models.Track {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.playlists[id])
}

// CallCount counts recorded calls with the given operation name.
func (f *FakeCatalog) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *FakeCatalog) record(op string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, op)
	f.mu.Unlock()
}

func (f *FakeCatalog) ListTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	f.record("list")
	if f.FailList != nil {
		return nil, f.FailList
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tracks, ok := f.playlists[playlistID]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return slices.Clone(tracks), nil
}

func (f *FakeCatalog) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	f.record("search")
	if err, ok := f.FailSearch[title]; ok {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.catalog {
		if t.Title == title && t.Artist == artist {
			found := t
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: %s - %s", shared.ErrTrackNotFound, artist, title)
}

func (f *FakeCatalog) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	f.record("add")
	if f.FailAdd != nil {
		return f.FailAdd
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		t := models.Track{Platform: f.platform, PlatformID: id, Title: id, Artist: "unknown"}
		for _, c := range f.catalog {
			if c.PlatformID == id {
				t = c
			}
		}
		f.nextID++
		t.EntryID = fmt.Sprintf("entry-%d", f.nextID)
		f.playlists[playlistID] = append(f.playlists[playlistID], t)
	}
	return nil
}

func (f *FakeCatalog) RemoveTracks(ctx context.Context, playlistID string, tracks []models.Track) error {
	f.record("remove")
	if f.FailRemove != nil {
		return f.FailRemove
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists[playlistID] = slices.DeleteFunc(f.playlists[playlistID], func(t models.Track) bool {
		return slices.ContainsFunc(tracks, func(r models.Track) bool { return r.EntryID == t.EntryID })
	})
	return nil
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	f.record("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("%s-pl-%d", f.platform, f.nextID)
	f.playlists[id] = nil
	return id, nil
}

func (f *FakeCatalog) TrackCount(ctx context.Context, playlistID string) (int, error) {
	f.record("count")
	if f.FailCount != nil {
		return 0, f.FailCount
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.playlists[playlistID]), nil
}

// SleepRecorder records requested delays instead of sleeping.
type SleepRecorder struct {
	mu     sync.Mutex
	Delays []time.Duration
}

func (s *SleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Delays = append(s.Delays, d)
	return ctx.Err()
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	mu       sync.Mutex
	response *http.Response
	err      error
	Count    int
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Count++
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
