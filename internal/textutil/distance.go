package textutil

import (
	"github.com/hbollon/go-edlib"
)

// EditSimilarity computes normalized edit-distance similarity between two
// already-normalized strings: (maxLen - distance) / maxLen over runes.
// Both empty scores 1.0, one empty scores 0.0.
func EditSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	la, lb := RuneLen(a), RuneLen(b)
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	dist := edlib.LevenshteinDistance(a, b)
	if dist > maxLen {
		dist = maxLen
	}
	return float64(maxLen-dist) / float64(maxLen)
}

// JaroWinklerSimilarity is the cheap title screen used by prefilters.
// An edlib error scores 0.
func JaroWinklerSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(sim)
}
