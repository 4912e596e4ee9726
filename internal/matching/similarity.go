package matching

import (
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
	"github.com/unnipv/musync/internal/models"
)

const (
	titleWeight  = 0.6
	artistWeight = 0.4
)

// EditDistance is the Levenshtein distance between a and b, counted in runes.
func EditDistance(a, b string) int {
	return edlib.LevenshteinDistance(a, b)
}

// StringSimilarity returns a similarity in [0,1] between two strings after normalization.
//
// Two empty inputs are identical; exactly one empty input never matches.
func StringSimilarity(a, b string) float64 {
	switch {
	case a == "" && b == "":
		return 1
	case a == "" || b == "":
		return 0
	}

	na, nb := Normalize(a), Normalize(b)
	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	if longest == 0 {
		return 1
	}

	sim := 1 - float64(EditDistance(na, nb))/float64(longest)
	return min(max(sim, 0), 1)
}

// TrackMatchScore weighs title similarity above artist similarity,
// since artist credits vary more across platforms than titles do.
func TrackMatchScore(t1, t2 models.Track) float64 {
	return titleWeight*StringSimilarity(t1.Title, t2.Title) + artistWeight*StringSimilarity(t1.Artist, t2.Artist)
}
