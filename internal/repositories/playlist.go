package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/shared"
)

// PlaylistRepository persists local playlists together with their tracks and sync states.
type PlaylistRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db, now: time.Now}
}

// Create inserts a new playlist, assigning an ID when it has none, and stores any initial tracks.
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if playlist.ID == "" {
		playlist.ID = shared.GenerateID()
	}
	now := r.now().UTC()
	playlist.CreatedAt, playlist.UpdatedAt = now, now

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO playlists (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			playlist.ID, playlist.Name, playlist.Description, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert playlist: %w", err)
		}

		if err := writeTracks(ctx, tx, playlist.ID, 0, playlist.Tracks, now); err != nil {
			return err
		}
		for _, state := range playlist.Connections {
			if err := upsertSyncState(ctx, tx, playlist.ID, state); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadPlaylist returns the playlist with its ordered tracks, their links and its connections.
func (r *PlaylistRepository) LoadPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	var p models.Playlist
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM playlists WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if p.Tracks, err = r.tracks(ctx, id); err != nil {
		return nil, err
	}
	if p.Connections, err = r.syncStates(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns every playlist with its connections but without tracks, ordered by name.
func (r *PlaylistRepository) List(ctx context.Context) ([]models.Playlist, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM playlists ORDER BY name ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i := range playlists {
		if playlists[i].Connections, err = r.syncStates(ctx, playlists[i].ID); err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

// AddTrack appends a track to the end of a playlist.
func (r *PlaylistRepository) AddTrack(ctx context.Context, playlistID string, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if track.ID == "" {
		track.ID = shared.GenerateID()
	}
	now := r.now().UTC()
	if track.AddedAt.IsZero() {
		track.AddedAt = now
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		next, err := nextPosition(ctx, tx, playlistID)
		if err != nil {
			return err
		}
		if err := insertTrack(ctx, tx, playlistID, next, *track); err != nil {
			return err
		}
		return touch(ctx, tx, playlistID, now)
	})
}

// AppendTracks adds tracks after the playlist's last position as of this write, so rows
// written since the caller loaded the playlist are kept. Tracks without an ID are assigned one.
func (r *PlaylistRepository) AppendTracks(ctx context.Context, playlistID string, tracks []models.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	now := r.now().UTC()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		next, err := nextPosition(ctx, tx, playlistID)
		if err != nil {
			return err
		}
		if err := writeTracks(ctx, tx, playlistID, next, tracks, now); err != nil {
			return err
		}
		return touch(ctx, tx, playlistID, now)
	})
}

// LinkTracks records the remote id on platform for each local track id in links. Existing
// links for the platform are replaced; tracks no longer in the playlist are skipped.
func (r *PlaylistRepository) LinkTracks(ctx context.Context, playlistID string, platform models.Platform, links map[string]string) error {
	if len(links) == 0 {
		return nil
	}
	now := r.now().UTC()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for trackID, remoteID := range links {
			if remoteID == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO track_links (track_id, platform, platform_id)
				SELECT id, ?, ? FROM tracks WHERE id = ? AND playlist_id = ?
				ON CONFLICT (track_id, platform) DO UPDATE SET platform_id = excluded.platform_id
			`, string(platform), remoteID, trackID, playlistID); err != nil {
				return fmt.Errorf("failed to link track %s: %w", trackID, err)
			}
		}
		return touch(ctx, tx, playlistID, now)
	})
}

// UpdateSyncState inserts or replaces the playlist's connection record for state.Platform.
func (r *PlaylistRepository) UpdateSyncState(ctx context.Context, playlistID string, state models.SyncState) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM playlists WHERE id = ?)`, playlistID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check playlist: %w", err)
		}
		if !exists {
			return fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
		}
		return upsertSyncState(ctx, tx, playlistID, &state)
	})
}

func (r *PlaylistRepository) tracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.artist, t.album, t.duration_seconds, t.added_at, l.platform, l.platform_id
		FROM tracks t
		LEFT JOIN track_links l ON l.track_id = t.id
		WHERE t.playlist_id = ?
		ORDER BY t.position ASC, l.platform ASC
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		var (
			t          models.Track
			platform   sql.NullString
			platformID sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist, &t.Album, &t.DurationSeconds, &t.AddedAt, &platform, &platformID); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}

		if n := len(tracks); n == 0 || tracks[n-1].ID != t.ID {
			tracks = append(tracks, t)
		}
		if platform.Valid {
			tracks[len(tracks)-1].Link(models.Platform(platform.String), platformID.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

func (r *PlaylistRepository) syncStates(ctx context.Context, playlistID string) (map[models.Platform]*models.SyncState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT platform, platform_playlist_id, last_synced_at, status, error
		FROM sync_states WHERE playlist_id = ?
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync states: %w", err)
	}
	defer rows.Close()

	states := make(map[models.Platform]*models.SyncState)
	for rows.Next() {
		var (
			s        models.SyncState
			syncedAt sql.NullTime
		)
		if err := rows.Scan(&s.Platform, &s.PlatformPlaylistID, &syncedAt, &s.Status, &s.Error); err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		if syncedAt.Valid {
			s.LastSyncedAt = syncedAt.Time
		}
		states[s.Platform] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return states, nil
}

func nextPosition(ctx context.Context, tx *sql.Tx, playlistID string) (int, error) {
	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM tracks WHERE playlist_id = ?`, playlistID,
	).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next position: %w", err)
	}
	return next, nil
}

func writeTracks(ctx context.Context, tx *sql.Tx, playlistID string, start int, tracks []models.Track, now time.Time) error {
	for i, t := range tracks {
		if t.ID == "" {
			t.ID = shared.GenerateID()
		}
		if t.AddedAt.IsZero() {
			t.AddedAt = now
		}
		if err := insertTrack(ctx, tx, playlistID, start+i, t); err != nil {
			return err
		}
	}
	return nil
}

func insertTrack(ctx context.Context, tx *sql.Tx, playlistID string, position int, t models.Track) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tracks (id, playlist_id, position, title, artist, album, duration_seconds, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, playlistID, position, t.Title, t.Artist, t.Album, t.DurationSeconds, t.AddedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert track %q: %w", t.Title, err)
	}

	links := t.Links
	if t.Platform != "" && t.PlatformID != "" {
		links = map[models.Platform]string{t.Platform: t.PlatformID}
		for p, id := range t.Links {
			links[p] = id
		}
	}
	for platform, id := range links {
		if id == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO track_links (track_id, platform, platform_id) VALUES (?, ?, ?)`,
			t.ID, string(platform), id,
		); err != nil {
			return fmt.Errorf("failed to link track %q: %w", t.Title, err)
		}
	}
	return nil
}

func upsertSyncState(ctx context.Context, tx *sql.Tx, playlistID string, s *models.SyncState) error {
	var syncedAt any
	if !s.LastSyncedAt.IsZero() {
		syncedAt = s.LastSyncedAt.UTC()
	}
	status := s.Status
	if status == "" {
		status = models.SyncPending
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_states (playlist_id, platform, platform_playlist_id, last_synced_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (playlist_id, platform) DO UPDATE SET
			platform_playlist_id = excluded.platform_playlist_id,
			last_synced_at = COALESCE(excluded.last_synced_at, sync_states.last_synced_at),
			status = excluded.status,
			error = excluded.error
	`, playlistID, string(s.Platform), s.PlatformPlaylistID, syncedAt, string(status), s.Error)
	if err != nil {
		return fmt.Errorf("failed to upsert sync state: %w", err)
	}
	return nil
}

func touch(ctx context.Context, tx *sql.Tx, playlistID string, now time.Time) error {
	result, err := tx.ExecContext(ctx, `UPDATE playlists SET updated_at = ? WHERE id = ?`, now, playlistID)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	return checkAffected(result, "playlist", playlistID)
}
