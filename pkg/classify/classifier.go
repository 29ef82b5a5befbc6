// Package classify maps a scope chain to the highest priority configured
// symbol type whose selector matches it.
package classify

import (
	"math"

	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/selector"
)

// Classifier resolves scope chains to type names. It is safe for concurrent
// use.
type Classifier struct {
	cache *MatchCache
}

// New creates a classifier with a match cache of the given size.
func New(cacheSize int) *Classifier {
	return &Classifier{cache: NewMatchCache(cacheSize)}
}

// Classify returns the name of the type with the strictly highest priority
// whose selector matches chain or one of its ancestors. On equal priority the
// type declared first wins. ok is false when no type matches.
func (c *Classifier) Classify(chain string, cfg completion.Config) (string, bool) {
	if cfg.Empty() {
		return "", false
	}

	var scopes []string
	best := math.MinInt
	bestName := ""
	found := false

	for _, tc := range cfg.Types {
		if tc.Selector == nil {
			continue
		}
		priority := tc.TypePriority
		if found && priority <= best {
			continue
		}
		if scopes == nil {
			scopes = selector.SplitChain(chain)
		}
		if c.matchesChain(tc.Selector, scopes) {
			best = priority
			bestName = tc.Name
			found = true
		}
	}
	return bestName, found
}

// matchesChain tries sel against the full chain, then against each shorter
// prefix, dropping the innermost scope every time.
func (c *Classifier) matchesChain(sel selector.Selector, scopes []string) bool {
	for n := len(scopes); n > 0; n-- {
		if c.matches(sel, scopes[:n]) {
			return true
		}
	}
	return false
}

func (c *Classifier) matches(sel selector.Selector, scopes []string) bool {
	chain := selector.ChainString(scopes)
	if matched, ok := c.cache.Get(sel, chain); ok {
		return matched
	}
	matched := sel.Matches(scopes)
	c.cache.Put(sel, chain, matched)
	return matched
}

// Reset clears cached match results.
func (c *Classifier) Reset() {
	c.cache.Reset()
}

// Stats exposes the match cache counters.
func (c *Classifier) Stats() map[string]int {
	return c.cache.Stats()
}
