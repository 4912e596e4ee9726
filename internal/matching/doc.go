// Package matching decides which tracks on two platforms are the same song.
//
// Identity is resolved from textual metadata only: titles and artists are canonicalized by [Normalize],
// compared with a bounded Levenshtein similarity ([StringSimilarity], [TrackMatchScore]) and paired by
// [Match], which runs an exact pass before a greedy fuzzy pass.
package matching
