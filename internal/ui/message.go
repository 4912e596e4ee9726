package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsLoaded MsgKind = iota
	MsgProgressUpdate
	MsgReconcileComplete
)

type playlistsResult struct {
	playlists []models.Playlist
	err       error
}

type reconcileResult struct {
	report *tasks.Report
	err    error
}

// playlistsLoadedMsg is the constructor for [MsgPlaylistsLoaded]
func playlistsLoadedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsLoaded, data: playlistsResult{playlists, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// reconcileCompleteMsg is the constructor for [MsgReconcileComplete]
func reconcileCompleteMsg(report *tasks.Report, err error) Msg {
	return Msg{kind: MsgReconcileComplete, data: reconcileResult{report, err}}
}
