package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/unnipv/musync/internal/formatter"
	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/shared"
)

// PlaylistCreate creates an empty local playlist and prints its ID.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(ctx); err != nil {
		return err
	}

	playlist := &models.Playlist{
		Name:        strings.TrimSpace(cmd.String("name")),
		Description: cmd.String("description"),
	}
	if err := r.playlists.Create(ctx, playlist); err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	r.logger.Info("playlist created", "id", playlist.ID, "name", playlist.Name)
	r.writePlain("✓ Created %q\n", playlist.Name)
	r.writePlain("ID: %s\n", playlist.ID)
	return nil
}

// PlaylistAdd appends one track. Known platform IDs are stored as links so reconcile skips the search.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(ctx); err != nil {
		return err
	}

	track := &models.Track{
		Title:           strings.TrimSpace(cmd.String("title")),
		Artist:          strings.TrimSpace(cmd.String("artist")),
		Album:           cmd.String("album"),
		DurationSeconds: cmd.Int("duration"),
		AddedAt:         time.Now().UTC(),
	}
	track.Link(models.PlatformSpotify, cmd.String("spotify-id"))
	track.Link(models.PlatformYouTube, cmd.String("youtube-id"))

	playlistID := cmd.String("playlist")
	if err := r.playlists.AddTrack(ctx, playlistID, track); err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}

	r.logger.Debug("track added", "playlist", playlistID, "track", track.ID)
	r.writePlain("✓ Added %s - %s\n", track.Artist, track.Title)
	return nil
}

// PlaylistLink connects a local playlist to an existing remote playlist so reconcile does not create one.
func (r *Runner) PlaylistLink(ctx context.Context, cmd *cli.Command) error {
	platform, err := models.ParsePlatform(cmd.String("platform"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	remoteID := strings.TrimSpace(cmd.String("remote-id"))
	if remoteID == "" {
		return fmt.Errorf("%w: --remote-id", shared.ErrMissingArgument)
	}
	if err := r.openStore(ctx); err != nil {
		return err
	}

	playlistID := cmd.String("playlist")
	state := models.SyncState{Platform: platform, PlatformPlaylistID: remoteID, Status: models.SyncPending}
	if err := r.playlists.UpdateSyncState(ctx, playlistID, state); err != nil {
		return fmt.Errorf("failed to link playlist: %w", err)
	}

	r.writePlain("✓ Linked %s to %s playlist %s\n", playlistID, platform, remoteID)
	return nil
}

// PlaylistList prints every local playlist.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.openStore(ctx); err != nil {
		return err
	}

	playlists, err := r.playlists.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	switch format {
	case formatter.FormatJSON:
		if playlists == nil {
			playlists = []models.Playlist{}
		}
		return r.writeJSON(playlists, true)
	case formatter.FormatText:
		_, err := r.output.Write(formatter.PlaylistsToText(playlists))
		return err
	default:
		return fmt.Errorf("%w: format %q is not available for playlist list", shared.ErrInvalidArgument, format)
	}
}

// PlaylistShow prints one playlist in the requested format.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.openStore(ctx); err != nil {
		return err
	}

	playlist, err := r.playlists.LoadPlaylist(ctx, cmd.String("playlist"))
	if err != nil {
		return fmt.Errorf("failed to load playlist: %w", err)
	}
	return formatter.WritePlaylist(r.output, playlist, format)
}
