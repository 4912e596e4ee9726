package tasks

import (
	"slices"

	"github.com/unnipv/musync/internal/matching"
	"github.com/unnipv/musync/internal/models"
)

// DefaultGuardRatio is the share of a remote playlist above which a removal step is refused.
const DefaultGuardRatio = 0.9

// PlanSummary is the size of each change set, sent with the planning progress update.
type PlanSummary struct {
	Matched int
	Add     int
	Import  int
	Remove  int
}

// syncPlan is the change set for one platform.
type syncPlan struct {
	matched    int
	links      map[string]string // local track id -> remote id learned from a fuzzy match
	add        []models.Track    // local tracks missing remotely
	imports    []models.Track    // remote tracks missing locally
	remove     []models.Track    // remote tracks to delete (mirror mode only)
	remoteIDs  map[string]bool
	remoteSize int
}

func (p *syncPlan) summary() PlanSummary {
	return PlanSummary{Matched: p.matched, Add: len(p.add), Import: len(p.imports), Remove: len(p.remove)}
}

// buildPlan pairs local and remote tracks, first by remote id and then by fuzzy match, and sorts
// the leftovers into additions and imports or removals.
func buildPlan(platform models.Platform, local, remote []models.Track, threshold float64, removeExtra bool) *syncPlan {
	plan := &syncPlan{
		links:      make(map[string]string),
		remoteIDs:  make(map[string]bool, len(remote)),
		remoteSize: len(remote),
	}

	byID := make(map[string][]int, len(remote))
	for i, t := range remote {
		if t.PlatformID == "" {
			continue
		}
		byID[t.PlatformID] = append(byID[t.PlatformID], i)
		plan.remoteIDs[t.PlatformID] = true
	}

	taken := make([]bool, len(remote))
	var restLocal []models.Track
	for _, t := range local {
		id := t.RemoteID(platform)
		if idxs := byID[id]; id != "" && len(idxs) > 0 {
			taken[idxs[0]] = true
			byID[id] = idxs[1:]
			plan.matched++
			continue
		}
		restLocal = append(restLocal, t)
	}

	var restRemote []models.Track
	for i, t := range remote {
		if !taken[i] {
			restRemote = append(restRemote, t)
		}
	}

	result := matching.Match(restLocal, restRemote, threshold)
	for _, pair := range result.Matched {
		plan.matched++
		if id := pair.Target.PlatformID; id != "" && pair.Source.RemoteID(platform) != id {
			plan.links[pair.Source.ID] = id
		}
	}

	plan.add = result.UnmatchedSource
	if removeExtra {
		plan.remove = result.UnmatchedTarget
	} else {
		plan.imports = result.UnmatchedTarget
	}
	return plan
}

// claim marks the unmatched remote item with id as matched, dropping it from imports or removals.
func (p *syncPlan) claim(id string) {
	for _, set := range []*[]models.Track{&p.imports, &p.remove} {
		if i := slices.IndexFunc(*set, func(t models.Track) bool { return t.PlatformID == id }); i >= 0 {
			*set = slices.Delete(*set, i, i+1)
			p.matched++
			return
		}
	}
}

// exceedsGuard reports whether removing n of size remote tracks is above ratio of the playlist.
func exceedsGuard(n, size int, ratio float64) bool {
	return n > 0 && float64(n) > ratio*float64(size)
}

// batches splits items into chunks of at most size.
func batches[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}
