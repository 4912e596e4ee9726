package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/ui"
)

// TUI launches the interactive terminal UI: pick a playlist, follow the reconcile, read the report.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	platforms, err := parsePlatforms(cmd.StringSlice("platform"))
	if err != nil {
		return err
	}

	// Redirect logs to a file to avoid interfering with TUI rendering
	logFile, err := os.OpenFile(cmd.String("log-file"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	r.logger.SetOutput(logFile)
	defer r.logger.SetOutput(os.Stderr)

	if err := r.openStore(ctx); err != nil {
		return err
	}
	catalogs, err := r.buildCatalogs(ctx, map[models.Platform]string{
		models.PlatformSpotify: cmd.String("spotify-token"),
		models.PlatformYouTube: cmd.String("youtube-token"),
	})
	if err != nil {
		return err
	}
	engine := r.newEngine(catalogs, cmd.Bool("remove-extra"), cmd.Bool("parallel"))

	model := ui.NewModel(ctx, r.playlists, engine, platforms)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return model.Err()
}
