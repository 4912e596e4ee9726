package matching

import "github.com/unnipv/musync/internal/models"

// DefaultThreshold is the minimum [TrackMatchScore] a fuzzy pair must exceed.
const DefaultThreshold = 0.8

type candidate struct {
	track models.Track
	key   string
	taken bool
}

// Match pairs source tracks with target tracks.
//
// The exact pass pairs tracks whose normalized title and artist are identical (score 1.0).
// The fuzzy pass then visits each remaining source track in order and takes the best remaining
// target scoring strictly above threshold. Pairing is greedy: a taken target is never reconsidered.
func Match(source, target []models.Track, threshold float64) models.MatchResult {
	result := models.MatchResult{
		Matched:         []models.MatchedPair{},
		UnmatchedSource: []models.Track{},
		UnmatchedTarget: []models.Track{},
	}

	targets := make([]*candidate, len(target))
	byKey := make(map[string][]*candidate, len(target))
	for i, t := range target {
		c := &candidate{track: t, key: Key(t.Title, t.Artist)}
		targets[i] = c
		byKey[c.key] = append(byKey[c.key], c)
	}

	matched := make([]bool, len(source))
	for i, s := range source {
		key := Key(s.Title, s.Artist)
		for _, c := range byKey[key] {
			if c.taken {
				continue
			}
			c.taken = true
			matched[i] = true
			result.Matched = append(result.Matched, models.MatchedPair{Source: s, Target: c.track, Score: 1})
			break
		}
	}

	for i, s := range source {
		if matched[i] {
			continue
		}

		var best *candidate
		bestScore := threshold
		for _, c := range targets {
			if c.taken {
				continue
			}
			if score := TrackMatchScore(s, c.track); score > bestScore {
				best, bestScore = c, score
			}
		}

		if best == nil {
			result.UnmatchedSource = append(result.UnmatchedSource, s)
			continue
		}
		best.taken = true
		result.Matched = append(result.Matched, models.MatchedPair{Source: s, Target: best.track, Score: bestScore})
	}

	for _, c := range targets {
		if !c.taken {
			result.UnmatchedTarget = append(result.UnmatchedTarget, c.track)
		}
	}
	return result
}
