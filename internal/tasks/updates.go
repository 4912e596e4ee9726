package tasks

import (
	"fmt"

	"github.com/unnipv/musync/internal/models"
)

// ProgressUpdate represents a progress event during a reconcile run.
//
// Used to send real-time updates to the CLI or HTTP layer for display.
type ProgressUpdate struct {
	Platform models.Platform // Platform being reconciled, empty for run-level events
	Phase    Phase           // Engine state
	Step     int             // Current step number within phase
	Total    int             // Total steps in this phase
	Message  string          // Human-readable message for display
	Data     any             // Optional phase-specific data
}

// Phase is a reconciliation state.
type Phase int

const (
	Idle Phase = iota
	CreatingPlaylist
	FetchingBoth
	Matching
	PlanningChanges
	ApplyingChanges
	Verifying
	Persisting
	Done
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case CreatingPlaylist:
		return "creating_playlist"
	case FetchingBoth:
		return "fetching_both"
	case Matching:
		return "matching"
	case PlanningChanges:
		return "planning_changes"
	case ApplyingChanges:
		return "applying_changes"
	case Verifying:
		return "verifying"
	case Persisting:
		return "persisting"
	case Done:
		return "done"
	default:
		return ""
	}
}

func startUpdate(name string, platforms []models.Platform) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Idle,
		Total:   len(platforms),
		Message: fmt.Sprintf("Reconciling %q on %d platform(s)...", name, len(platforms)),
	}
}

func creatingPlaylistUpdate(p models.Platform, name string) ProgressUpdate {
	return ProgressUpdate{
		Platform: p,
		Phase:    CreatingPlaylist,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("Creating %q on %s...", name, p),
	}
}

func fetchingUpdate(p models.Platform, local int) ProgressUpdate {
	return ProgressUpdate{
		Platform: p,
		Phase:    FetchingBoth,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("Fetching %s playlist (%d local tracks)...", p, local),
	}
}

func matchingUpdate(p models.Platform, local, remote int) ProgressUpdate {
	return ProgressUpdate{
		Platform: p,
		Phase:    Matching,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("Matching %d local against %d remote tracks...", local, remote),
	}
}

func planUpdate(p models.Platform, plan *syncPlan) ProgressUpdate {
	return ProgressUpdate{
		Platform: p,
		Phase:    PlanningChanges,
		Step:     1,
		Total:    1,
		Message: fmt.Sprintf("%d matched, %d to add, %d to import, %d to remove",
			plan.matched, len(plan.add), len(plan.imports), len(plan.remove)),
		Data: plan.summary(),
	}
}

func searchUpdate(p models.Platform, step, total int, t models.Track) ProgressUpdate {
	return ProgressUpdate{
		Platform: p,
		Phase:    ApplyingChanges,
		Step:     step,
		Total:    total,
		Message:  fmt.Sprintf("Searching %s - %s", t.Artist, t.Title),
		Data:     t,
	}
}

func batchUpdate(p models.Platform, verb string, step, total, n int) ProgressUpdate {
	return ProgressUpdate{
		Platform: p,
		Phase:    ApplyingChanges,
		Step:     step,
		Total:    total,
		Message:  fmt.Sprintf("%s %d track(s)", verb, n),
	}
}

func verifyUpdate(p models.Platform, expected int) ProgressUpdate {
	return ProgressUpdate{
		Platform: p,
		Phase:    Verifying,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("Verifying remote count (expect %d)...", expected),
	}
}

func persistUpdate(p models.Platform) ProgressUpdate {
	return ProgressUpdate{Platform: p, Phase: Persisting, Step: 1, Total: 1, Message: "Saving sync state..."}
}

func doneUpdate(p models.Platform, r *PlatformReport) ProgressUpdate {
	return ProgressUpdate{
		Platform: p,
		Phase:    Done,
		Step:     1,
		Total:    1,
		Message:  fmt.Sprintf("%s: %s (+%d added, %d imported, -%d removed)", p, r.Status, r.Added, r.Imported, r.Removed),
		Data:     r,
	}
}
