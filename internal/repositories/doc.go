// Package repositories implements SQLite persistence for local playlists.
//
// Key Implementations:
//   - [PlaylistRepository] : playlists, their ordered tracks, per-platform track links and sync states
//   - [TokenRepository] : OAuth tokens per platform, satisfying auth.TokenStore
//
// The local playlist is the source of truth for reconciliation. A reconcile run only appends
// tracks ([PlaylistRepository.AppendTracks]) and records links ([PlaylistRepository.LinkTracks]),
// so edits made while it talks to the remote platforms are never overwritten.
package repositories
