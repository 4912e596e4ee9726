// package formatter renders reconcile reports and local playlists as text, JSON, Markdown or CSV.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/shared"
	"github.com/unnipv/musync/internal/tasks"
)

// Format is an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// ParseFormat accepts "text", "json", "markdown" (or "md") and "csv".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// MarshalJSON encodes v, indented when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// FormatDuration renders seconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// WriteReport renders a reconcile report to w. CSV is not supported for reports.
func WriteReport(w io.Writer, report *tasks.Report, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = MarshalJSON(report, true)
		data = append(data, '\n')
	case FormatMarkdown:
		data = ReportToMarkdown(report)
	case FormatText:
		data = ReportToText(report)
	default:
		return fmt.Errorf("%w: format %q is not available for reports", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ReportToText renders a report for a terminal, one block per platform.
func ReportToText(report *tasks.Report) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", styles.title.Render(fmt.Sprintf("Reconciled %q", report.PlaylistName)))
	for _, p := range report.Platforms() {
		r := report.PerPlatform[p]
		fmt.Fprintf(&buf, "\n%-8s %s\n", p, styles.Status(r.Status))
		fmt.Fprintf(&buf, "  matched %d, added %d, imported %d, removed %d\n", r.Matched, r.Added, r.Imported, r.Removed)
		if r.RemoteURL != "" {
			fmt.Fprintf(&buf, "  %s\n", styles.muted.Render(r.RemoteURL))
		}
		if r.Error != "" {
			fmt.Fprintf(&buf, "  error: %s\n", r.Error)
		}
		if len(r.Unavailable) > 0 {
			fmt.Fprintf(&buf, "  unavailable (%d):\n", len(r.Unavailable))
			for _, u := range r.Unavailable {
				fmt.Fprintf(&buf, "    - %s - %s\n", u.Artist, u.Title)
			}
		}
	}
	fmt.Fprintf(&buf, "\n%s\n", styles.muted.Render("took "+report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String()))
	return buf.Bytes()
}

// ReportToMarkdown renders a report as a Markdown summary table followed by unavailable tracks.
func ReportToMarkdown(report *tasks.Report) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Reconcile: %s\n\n", report.PlaylistName)
	buf.WriteString("| Platform | Status | Matched | Added | Imported | Removed | Unavailable |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for _, p := range report.Platforms() {
		r := report.PerPlatform[p]
		name := string(p)
		if r.RemoteURL != "" {
			name = fmt.Sprintf("[%s](%s)", p, r.RemoteURL)
		}
		fmt.Fprintf(&buf, "| %s | %s | %d | %d | %d | %d | %d |\n",
			name, r.Status, r.Matched, r.Added, r.Imported, r.Removed, len(r.Unavailable))
	}

	for _, p := range report.Platforms() {
		r := report.PerPlatform[p]
		if r.Error == "" && len(r.Unavailable) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "\n## %s\n\n", p)
		if r.Error != "" {
			fmt.Fprintf(&buf, "**Error**: %s\n\n", r.Error)
		}
		for _, u := range r.Unavailable {
			fmt.Fprintf(&buf, "- %s - %s (%s)\n", u.Artist, u.Title, u.Reason)
		}
	}
	return buf.Bytes()
}

// WritePlaylist renders one local playlist with its tracks and connections.
func WritePlaylist(w io.Writer, playlist *models.Playlist, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = MarshalJSON(playlist, true)
		data = append(data, '\n')
	case FormatCSV:
		data, err = PlaylistToCSV(playlist)
	case FormatMarkdown:
		data = PlaylistToMarkdown(playlist)
	default:
		data = PlaylistToText(playlist)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// PlaylistToCSV writes one row per track with its per-platform ids.
func PlaylistToCSV(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration"}
	for _, p := range models.Platforms {
		headers = append(headers, string(p)+"_id")
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range playlist.Tracks {
		record := []string{track.ID, track.Title, track.Artist, track.Album, strconv.Itoa(track.DurationSeconds)}
		for _, p := range models.Platforms {
			record = append(record, track.RemoteID(p))
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaylistToMarkdown converts a playlist to Markdown.
func PlaylistToMarkdown(playlist *models.Playlist) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", playlist.Name)
	if playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", playlist.Description)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(playlist.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range playlist.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, albumPart, FormatDuration(track.DurationSeconds))
	}
	return buf.Bytes()
}

// PlaylistToText converts a playlist to plain text, including per-platform sync status.
func PlaylistToText(playlist *models.Playlist) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s (%s)\n", playlist.Name, playlist.ID)
	if playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", playlist.Description)
	}
	for _, p := range models.Platforms {
		if c := playlist.Connection(p); c != nil {
			fmt.Fprintf(&buf, "%s: %s %s", p, c.Status, c.PlatformPlaylistID)
			if !c.LastSyncedAt.IsZero() {
				fmt.Fprintf(&buf, " (last synced %s)", c.LastSyncedAt.Format(time.RFC3339))
			}
			buf.WriteString("\n")
		}
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(playlist.Tracks))

	for i, track := range playlist.Tracks {
		var linked []string
		for _, p := range models.Platforms {
			if track.Resolved(p) {
				linked = append(linked, string(p))
			}
		}
		fmt.Fprintf(&buf, "%d. %s - %s", i+1, track.Artist, track.Title)
		if len(linked) > 0 {
			fmt.Fprintf(&buf, " [%s]", strings.Join(linked, ","))
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// PlaylistsToText lists playlists one per line with their connection statuses.
func PlaylistsToText(playlists []models.Playlist) []byte {
	var buf bytes.Buffer
	if len(playlists) == 0 {
		buf.WriteString("No playlists yet. Create one with `musync playlist create`.\n")
		return buf.Bytes()
	}
	for _, pl := range playlists {
		fmt.Fprintf(&buf, "%s  %s", pl.ID, pl.Name)
		for _, p := range models.Platforms {
			if c := pl.Connection(p); c != nil {
				fmt.Fprintf(&buf, "  %s:%s", p, c.Status)
			}
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}
