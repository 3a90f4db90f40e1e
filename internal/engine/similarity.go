package engine

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Similarity computes a normalized string similarity in [0,1] over
// lower-cased inputs: 1 - distance/max(len). Two empty strings compare as
// a perfect match by convention.
func Similarity(a, b string) float64 {
	s1 := strings.ToLower(a)
	s2 := strings.ToLower(b)

	if s1 == s2 {
		return 1.0
	}

	maxLen := len([]rune(s1))
	if l2 := len([]rune(s2)); l2 > maxLen {
		maxLen = l2
	}
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(s1, s2)
	return 1.0 - float64(distance)/float64(maxLen)
}
