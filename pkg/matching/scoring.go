package matching

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Scorer provides string similarity measures
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Distance returns the Levenshtein edit distance between two strings, counted in runes
func (s *Scorer) Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Ratio returns 1 - distance/maxLen, a similarity between 0.0 (nothing shared) and 1.0 (identical).
// Two empty strings are identical.
func (s *Scorer) Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(s.Distance(a, b))/float64(maxLen)
}
