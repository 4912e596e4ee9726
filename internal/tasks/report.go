package tasks

import (
	"errors"
	"slices"
	"time"

	"github.com/unnipv/musync/internal/models"
)

// Outcome is the result of reconciling one platform.
type Outcome string

const (
	OutcomeSynced  Outcome = "synced"
	OutcomePartial Outcome = "partial"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
)

// SyncStatus maps an outcome onto the persisted status. A warning is stored as partial.
func (o Outcome) SyncStatus() models.SyncStatus {
	switch o {
	case OutcomeSynced:
		return models.SyncSynced
	case OutcomePartial, OutcomeWarning:
		return models.SyncPartial
	default:
		return models.SyncFailed
	}
}

// UnavailableTrack is a local track that could not be placed on the remote platform.
type UnavailableTrack struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Reason string `json:"reason"`
}

// PlatformReport summarizes one platform's reconciliation.
type PlatformReport struct {
	Platform    models.Platform    `json:"platform"`
	Status      Outcome            `json:"status"`
	Matched     int                `json:"matched"`
	Added       int                `json:"added"`
	Imported    int                `json:"imported"`
	Removed     int                `json:"removed"`
	Unavailable []UnavailableTrack `json:"unavailableTracks"`
	RemoteURL   string             `json:"remoteUrl,omitempty"`
	Error       string             `json:"error,omitempty"`
	Duration    time.Duration      `json:"duration"`

	err error
}

// Err returns the error behind a non-synced outcome, for use with [errors.Is].
func (r *PlatformReport) Err() error { return r.err }

func (r *PlatformReport) setErr(err error) {
	if err == nil {
		return
	}
	r.err = errors.Join(r.err, err)
	r.Error = r.err.Error()
}

func (r *PlatformReport) unavailable(t models.Track, err error) {
	r.Unavailable = append(r.Unavailable, UnavailableTrack{Title: t.Title, Artist: t.Artist, Reason: err.Error()})
}

// Report is the result of one [Engine.Reconcile] call.
type Report struct {
	PlaylistID   string                              `json:"playlistId"`
	PlaylistName string                              `json:"playlistName"`
	PerPlatform  map[models.Platform]*PlatformReport `json:"perPlatform"`
	StartedAt    time.Time                           `json:"startedAt"`
	FinishedAt   time.Time                           `json:"finishedAt"`
}

// Platforms returns the reported platforms in [models.Platforms] order.
func (r *Report) Platforms() []models.Platform {
	var out []models.Platform
	for _, p := range models.Platforms {
		if _, ok := r.PerPlatform[p]; ok {
			out = append(out, p)
		}
	}
	for p := range r.PerPlatform {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// OK reports whether every platform synced cleanly.
func (r *Report) OK() bool {
	for _, pr := range r.PerPlatform {
		if pr.Status != OutcomeSynced {
			return false
		}
	}
	return true
}
