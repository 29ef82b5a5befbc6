package rank

import (
	"slices"

	"github.com/bastiangx/symbolserve/pkg/completion"
)

// TieBreak decides the order of candidates with equal rank.
type TieBreak uint8

const (
	// InsertionOrder keeps equal-rank candidates in the order they were
	// produced. Used by the symbol index.
	InsertionOrder TieBreak = iota
	// ShortestText puts the shorter text first on equal rank. Used by the
	// subsequence engine.
	ShortestText
)

func (t TieBreak) String() string {
	switch t {
	case InsertionOrder:
		return "insertion-order"
	case ShortestText:
		return "shortest-text"
	}
	return "unknown"
}

// Sort orders candidates by rank, descending, in place. The sort is stable,
// so InsertionOrder holds for equal ranks.
func Sort(cands []completion.Candidate, tb TieBreak) {
	slices.SortStableFunc(cands, func(a, b completion.Candidate) int {
		ra, rb := a.Rank(), b.Rank()
		switch {
		case ra > rb:
			return -1
		case ra < rb:
			return 1
		}
		if tb == ShortestText {
			return textLen(a.Text()) - textLen(b.Text())
		}
		return 0
	})
}

// Truncate caps cands at limit. A non-positive limit means DefaultMaxResults.
func Truncate(cands []completion.Candidate, limit int) []completion.Candidate {
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if len(cands) > limit {
		return cands[:limit]
	}
	return cands
}

// Finalize sorts and truncates in one step.
func Finalize(cands []completion.Candidate, tb TieBreak, limit int) []completion.Candidate {
	Sort(cands, tb)
	return Truncate(cands, limit)
}
