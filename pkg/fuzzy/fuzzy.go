// Package fuzzy scores how well a typed query matches a candidate word as an
// in-order, not necessarily contiguous, subsequence.
package fuzzy

import (
	"strings"
	"unicode"

	"github.com/bastiangx/symbolserve/internal/utils"
)

// Constants for scoring
const (
	firstCharMatchBonus            = 15
	adjacentMatchBonus             = 10
	maxAdjacentMatchBonus          = 80
	separatorMatchBonus            = 12
	camelCaseMatchBonus            = 12
	unmatchedLeadingCharPenalty    = -3
	maxUnmatchedLeadingCharPenalty = -9
)

// Match represents a matched string with score
type Match struct {
	Str            string
	Score          int
	MatchedIndexes []int
}

// Find matches pattern against candidate case-insensitively. MatchedIndexes
// are rune offsets into candidate. The bool is false when pattern is not a
// subsequence of candidate.
func Find(candidate, pattern string) (Match, bool) {
	patternRunes := []rune(pattern)
	if len(patternRunes) == 0 {
		return Match{}, false
	}
	candidateRunes := []rune(candidate)
	if len(patternRunes) > len(candidateRunes) {
		return Match{}, false
	}

	match := Match{
		Str:            candidate,
		MatchedIndexes: make([]int, 0, len(patternRunes)),
	}

	var last rune
	var currAdjacentMatchBonus int
	patternIndex := 0

	for i, curr := range candidateRunes {
		if patternIndex < len(patternRunes) && utils.EqualFold(curr, patternRunes[patternIndex]) {
			score := 0

			if i == 0 {
				score += firstCharMatchBonus
			}
			if i > 0 && unicode.IsLower(last) && unicode.IsUpper(curr) {
				score += camelCaseMatchBonus
			}
			if i > 0 && utils.IsSeparator(last) {
				score += separatorMatchBonus
			}

			if n := len(match.MatchedIndexes); n > 0 && match.MatchedIndexes[n-1] == i-1 {
				currAdjacentMatchBonus = min(currAdjacentMatchBonus*2+adjacentMatchBonus, maxAdjacentMatchBonus)
				score += currAdjacentMatchBonus
			} else {
				currAdjacentMatchBonus = 0
			}

			if len(match.MatchedIndexes) == 0 {
				score += max(i*unmatchedLeadingCharPenalty, maxUnmatchedLeadingCharPenalty)
			}

			match.Score += score
			match.MatchedIndexes = append(match.MatchedIndexes, i)
			patternIndex++
		}
		last = curr
	}

	if patternIndex < len(patternRunes) {
		return Match{}, false
	}

	// unmatched characters cost one point each
	match.Score += len(match.MatchedIndexes) - len(candidateRunes)
	return match, true
}

// IsSubsequence reports whether pattern occurs in order within candidate,
// ignoring case.
func IsSubsequence(candidate, pattern string) bool {
	_, ok := Find(candidate, pattern)
	return ok
}

// Scorer maps a candidate and query to a score. Zero means no match.
type Scorer interface {
	Score(candidate, query string) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(candidate, query string) float64

func (f ScorerFunc) Score(candidate, query string) float64 { return f(candidate, query) }

// Basic rewards short candidates and contiguous matches, with a boost for
// true prefixes.
var Basic Scorer = ScorerFunc(basicScore)

// Plus uses the positional bonuses of Find (word starts, camel humps,
// adjacency) normalized by candidate length.
var Plus Scorer = ScorerFunc(plusScore)

func basicScore(candidate, query string) float64 {
	m, ok := Find(candidate, query)
	if !ok {
		return 0
	}
	runs := 1
	for i := 1; i < len(m.MatchedIndexes); i++ {
		if m.MatchedIndexes[i] != m.MatchedIndexes[i-1]+1 {
			runs++
		}
	}
	qLen := len([]rune(query))
	cLen := len([]rune(candidate))
	score := float64(qLen) / float64(cLen) / float64(runs)
	switch {
	case strings.HasPrefix(candidate, query):
		score *= 2
	case utils.HasPrefixIgnoreCase(candidate, query):
		score *= 1.5
	}
	return score
}

func plusScore(candidate, query string) float64 {
	m, ok := Find(candidate, query)
	if !ok {
		return 0
	}
	qLen := len([]rune(query))
	cLen := len([]rune(candidate))
	return float64(max(m.Score, 0)+qLen) / float64(cLen+qLen)
}
