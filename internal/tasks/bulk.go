package tasks

import (
	"context"
	"sync"

	"github.com/unnipv/musync/internal/models"
)

// BulkOpts configures [Engine.BulkReconcile].
type BulkOpts struct {
	Platforms  []models.Platform // Platforms to reconcile, empty for all configured
	NumWorkers int               // Concurrent playlists (default: 2, max: 5)
}

// BulkFailure is a playlist that could not be reconciled at all.
type BulkFailure struct {
	PlaylistID string `json:"playlistId"`
	Error      string `json:"error"`
}

// BulkResult collects one report per reconciled playlist.
type BulkResult struct {
	Reports  []*Report     `json:"reports"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

type bulkOutcome struct {
	id     string
	report *Report
	err    error
}

// BulkReconcile reconciles several playlists using a worker pool. Playlists sharing a remote account
// share its quota, so the pool is kept small.
func (e *Engine) BulkReconcile(ctx context.Context, ids []string, opts BulkOpts, progress chan<- ProgressUpdate) *BulkResult {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 5 {
		opts.NumWorkers = 5
	}

	jobs := make(chan string, len(ids))
	results := make(chan bulkOutcome, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if ctx.Err() != nil {
					results <- bulkOutcome{id: id, err: ctx.Err()}
					continue
				}
				report, err := e.Reconcile(ctx, id, opts.Platforms, progress)
				results <- bulkOutcome{id: id, report: report, err: err}
			}
		}()
	}

	for _, id := range ids {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &BulkResult{Reports: make([]*Report, 0, len(ids))}
	for res := range results {
		if res.err != nil {
			e.logger.Error("bulk reconcile failed", "playlist", res.id, "err", res.err)
			result.Failures = append(result.Failures, BulkFailure{PlaylistID: res.id, Error: res.err.Error()})
			continue
		}
		result.Reports = append(result.Reports, res.report)
	}
	return result
}
