package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/unnipv/musync/internal/models"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }

// Description lists the connection status per platform, then the description.
func (i playlistItem) Description() string {
	desc := connectionSummary(i.playlist)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

func connectionSummary(p models.Playlist) string {
	var parts []string
	for _, platform := range models.Platforms {
		if conn := p.Connection(platform); conn != nil {
			parts = append(parts, fmt.Sprintf("%s: %s", platform, conn.Status))
		}
	}
	if len(parts) == 0 {
		return "not connected"
	}
	return strings.Join(parts, ", ")
}
