package symbols

import (
	"github.com/bastiangx/symbolserve/internal/utils"
	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/rank"
)

// Query describes one completion request against the index.
type Query struct {
	Config completion.Config
	// Buffers limits the search; nil means every tracked buffer.
	Buffers []completion.BufferID
	Prefix  string
	// WordUnderCursor is the word currently being typed. Its first
	// CursorCount occurrences are not offered as completions.
	WordUnderCursor string
	CursorLine      int
	CursorCount     int
}

// Query returns the static suggestions matching the prefix followed by the
// matching buffer words in first-occurrence order. Results are unique by
// text and unsorted; see rank.Finalize.
func (idx *Index) Query(q Query) []completion.Candidate {
	if q.Prefix == "" {
		return nil
	}
	scorer := rank.NewScorer(idx.options.Flags.Flags(), q.Prefix)

	results, reserved := staticCandidates(scorer, q)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	key := utils.FoldRune(utils.FirstRune(q.Prefix))
	byText := make(map[string]int)
	occurrences := make(map[string]int)
	// texts that can never become candidates for this prefix
	rejected := make(map[string]bool)

	for _, id := range idx.queryBuffers(q.Buffers) {
		bl, ok := idx.buffers[id]
		if !ok {
			continue
		}
		for line, bucket := range bl.lines {
			for _, sym := range bucket[key] {
				occurrences[sym.Text]++

				if i, ok := byText[sym.Text]; ok {
					loc := scorer.Locality(q.CursorLine, line)
					if loc > results[i].LocalityScore {
						results[i].LocalityScore = loc
					}
					continue
				}
				if sym.Text == q.WordUnderCursor && occurrences[sym.Text] <= q.CursorCount {
					continue
				}
				if rejected[sym.Text] {
					continue
				}
				if reserved[sym.Text] {
					rejected[sym.Text] = true
					continue
				}

				score, loc := scorer.Score(sym.Text, q.CursorLine, line)
				if score <= 0 {
					rejected[sym.Text] = true
					continue
				}
				typ, ok := idx.options.Classifier.Classify(sym.ScopeChain, q.Config)
				if !ok {
					continue
				}

				word := completion.Word(sym.Text)
				word.Type = typ
				byText[sym.Text] = len(results)
				results = append(results, completion.Candidate{
					Suggestion:        word,
					ReplacementPrefix: q.Prefix,
					Score:             score,
					LocalityScore:     loc,
				})
			}
		}
	}
	return results
}

// Complete runs Query and applies the insertion-order ranking.
func (idx *Index) Complete(q Query, limit int) []completion.Candidate {
	return rank.Finalize(idx.Query(q), rank.InsertionOrder, limit)
}

// queryBuffers resolves the requested ids. Callers hold the read lock.
func (idx *Index) queryBuffers(ids []completion.BufferID) []completion.BufferID {
	if ids == nil {
		return idx.order
	}
	return ids
}

// staticCandidates scores the configured suggestions. They carry no line, so
// they never get a locality bonus. The returned set holds their texts.
func staticCandidates(scorer *rank.Scorer, q Query) ([]completion.Candidate, map[string]bool) {
	reserved := make(map[string]bool)
	var results []completion.Candidate

	for _, s := range q.Config.StaticSuggestions() {
		text := s.Text()
		if reserved[text] {
			continue
		}
		score, loc := scorer.Score(text, q.CursorLine, rank.NoLine)
		if score <= 0 {
			continue
		}
		reserved[text] = true
		results = append(results, completion.Candidate{
			Suggestion:        s,
			ReplacementPrefix: q.Prefix,
			Score:             score,
			LocalityScore:     loc,
		})
	}
	return results, reserved
}
