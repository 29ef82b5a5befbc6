package classify

import (
	"math"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/symbolserve/pkg/selector"
)

// DefaultCacheSize bounds the number of remembered selector matches.
const DefaultCacheSize = 4096

type matchKey struct {
	sel   selector.Selector
	chain string
}

// MatchCache remembers selector match results per (selector, scope chain)
// pair. It evicts the least recently used entry when full.
type MatchCache struct {
	results     map[matchKey]bool
	accessTime  map[matchKey]int64
	accessCount int64
	hits        int64
	misses      int64
	maxEntries  int
	mu          sync.RWMutex
}

// NewMatchCache creates a cache holding at most maxEntries results.
func NewMatchCache(maxEntries int) *MatchCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	return &MatchCache{
		results:    make(map[matchKey]bool, maxEntries),
		accessTime: make(map[matchKey]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

// Get returns the cached result for sel against chain.
func (mc *MatchCache) Get(sel selector.Selector, chain string) (matched, ok bool) {
	key := matchKey{sel, chain}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	matched, ok = mc.results[key]
	if ok {
		mc.hits++
		mc.markAccessed(key)
	} else {
		mc.misses++
	}
	return matched, ok
}

// Put stores a result, evicting the least recently used entry if needed.
func (mc *MatchCache) Put(sel selector.Selector, chain string, matched bool) {
	key := matchKey{sel, chain}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.results[key]; !exists && len(mc.results) >= mc.maxEntries {
		mc.evictLRU()
	}
	mc.results[key] = matched
	mc.markAccessed(key)
}

// Reset drops every entry. Called when the configuration is rebuilt, since
// the old selectors are gone.
func (mc *MatchCache) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.results = make(map[matchKey]bool, mc.maxEntries)
	mc.accessTime = make(map[matchKey]int64, mc.maxEntries)
	mc.accessCount = 0
}

// Len returns the number of cached results.
func (mc *MatchCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.results)
}

// Stats reports cache occupancy and hit counters.
func (mc *MatchCache) Stats() map[string]int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return map[string]int{
		"matchCacheEntries": len(mc.results),
		"maxMatchEntries":   mc.maxEntries,
		"matchCacheHits":    int(mc.hits),
		"matchCacheMisses":  int(mc.misses),
	}
}

func (mc *MatchCache) markAccessed(key matchKey) {
	mc.accessCount++
	mc.accessTime[key] = mc.accessCount
}

func (mc *MatchCache) evictLRU() {
	var oldestKey matchKey
	var oldestTime int64 = math.MaxInt64
	found := false

	for key, accessTime := range mc.accessTime {
		if accessTime < oldestTime {
			oldestTime = accessTime
			oldestKey = key
			found = true
		}
	}

	if found {
		delete(mc.results, oldestKey)
		delete(mc.accessTime, oldestKey)
		log.Debugf("Evicted match %q from selector cache", oldestKey.chain)
	}
}
