package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/unnipv/musync/internal/formatter"
	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/shared"
	"github.com/unnipv/musync/internal/tasks"
)

// ErrReconcileFailed is returned after the report is written when some platform failed outright.
var ErrReconcileFailed = fmt.Errorf("reconcile finished with failures")

// Reconcile runs the engine for the selected playlists and writes one report per playlist.
//
// Progress is logged while the run is in flight so stdout only carries the report.
func (r *Runner) Reconcile(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if format == formatter.FormatCSV {
		return fmt.Errorf("%w: csv is not available for reports", shared.ErrInvalidArgument)
	}

	platforms, err := parsePlatforms(cmd.StringSlice("platform"))
	if err != nil {
		return err
	}

	ids := cmd.StringSlice("playlist")
	all := cmd.Bool("all")
	if len(ids) == 0 && !all {
		return fmt.Errorf("%w: --playlist or --all", shared.ErrMissingArgument)
	}

	catalogs, err := r.buildCatalogs(ctx, map[models.Platform]string{
		models.PlatformSpotify: cmd.String("spotify-token"),
		models.PlatformYouTube: cmd.String("youtube-token"),
	})
	if err != nil {
		return err
	}
	engine := r.newEngine(catalogs, cmd.Bool("remove-extra"), cmd.Bool("parallel"))

	if all {
		playlists, err := r.playlists.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list playlists: %w", err)
		}
		ids = ids[:0]
		for _, p := range playlists {
			ids = append(ids, p.ID)
		}
	}

	progress, wait := r.logProgress()
	defer wait()

	var reports []*tasks.Report
	var failures []tasks.BulkFailure
	if len(ids) == 1 {
		report, err := engine.Reconcile(ctx, ids[0], platforms, progress)
		close(progress)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	} else {
		result := engine.BulkReconcile(ctx, ids, tasks.BulkOpts{Platforms: platforms, NumWorkers: cmd.Int("workers")}, progress)
		close(progress)
		reports, failures = result.Reports, result.Failures
	}
	wait()

	if format == formatter.FormatJSON && len(ids) != 1 {
		if err := r.writeJSON(tasks.BulkResult{Reports: reports, Failures: failures}, true); err != nil {
			return err
		}
	} else {
		for _, report := range reports {
			if err := formatter.WriteReport(r.output, report, format); err != nil {
				return err
			}
		}
		for _, f := range failures {
			r.writePlain("✗ %s: %s\n", f.PlaylistID, f.Error)
		}
	}

	if len(failures) > 0 || anyFailed(reports) {
		return ErrReconcileFailed
	}
	return nil
}

// logProgress drains engine updates into the logger. wait blocks until the channel is closed and drained.
func (r *Runner) logProgress() (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if update.Total > 0 {
				r.logger.Info(update.Message, "platform", update.Platform, "phase", update.Phase, "step", update.Step, "total", update.Total)
				continue
			}
			r.logger.Info(update.Message, "platform", update.Platform, "phase", update.Phase)
		}
	}()
	return progress, wg.Wait
}

func parsePlatforms(values []string) ([]models.Platform, error) {
	var out []models.Platform
	for _, v := range values {
		p, err := models.ParsePlatform(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func anyFailed(reports []*tasks.Report) bool {
	for _, report := range reports {
		for _, pr := range report.PerPlatform {
			if pr.Status == tasks.OutcomeFailed {
				return true
			}
		}
	}
	return false
}
