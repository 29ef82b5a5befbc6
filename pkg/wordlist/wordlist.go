// Package wordlist suggests any word seen in the watched buffers, without
// scope information. Words are reference counted so an edit only has to
// remove the words of the replaced text and add those of the new text.
package wordlist

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/bastiangx/symbolserve/internal/utils"
	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/rank"
	"github.com/bastiangx/symbolserve/pkg/tokens"
)

var (
	// DefaultPattern matches runs of word characters, allowing inner dashes.
	DefaultPattern = regexp.MustCompile(`\b\w+[\w-]*\b`)
	// UnicodePattern is DefaultPattern for any Unicode letter.
	UnicodePattern = regexp.MustCompile(`[\p{L}\d_]+[\p{L}\d_-]*`)
)

// List is a reference counted word list mirrored into a patricia trie for
// prefix lookups. It is safe for concurrent use.
type List struct {
	mu            sync.RWMutex
	tokens        *tokens.Set
	trie          *patricia.Trie
	pattern       *regexp.Regexp
	minWordLength int
}

// Option configures a List.
type Option func(*List)

// WithPattern sets the word pattern.
func WithPattern(re *regexp.Regexp) Option {
	return func(l *List) {
		l.pattern = re
	}
}

// WithMinWordLength ignores shorter words when adding text.
func WithMinWordLength(n int) Option {
	return func(l *List) {
		l.minWordLength = n
	}
}

// New creates an empty list.
func New(opts ...Option) *List {
	l := &List{
		tokens:  tokens.NewSet(),
		trie:    patricia.NewTrie(),
		pattern: DefaultPattern,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddText adds every word of text.
func (l *List) AddText(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, word := range l.pattern.FindAllString(text, -1) {
		if l.minWordLength > 0 && utf8.RuneCountInString(word) < l.minWordLength {
			continue
		}
		l.tokens.Add(word)
		if l.tokens.RefCount(word) == 1 {
			l.trie.Insert(patricia.Prefix(word), struct{}{})
		}
	}
}

// RemoveText drops one reference for every word of text.
func (l *List) RemoveText(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, word := range l.pattern.FindAllString(text, -1) {
		if l.tokens.Remove(word) && l.tokens.RefCount(word) == 0 {
			l.trie.Delete(patricia.Prefix(word))
		}
	}
}

// Reset drops every word.
func (l *List) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens.Clear()
	l.trie = patricia.NewTrie()
}

// Len returns the number of distinct words.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tokens.Len()
}

// Words returns the distinct words in first-seen order.
func (l *List) Words() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.tokens.Tokens()...)
}

// RefCount returns how many occurrences of word are tracked.
func (l *List) RefCount(word string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tokens.RefCount(word)
}

// Suggest returns words matching prefix followed by matching extra
// completions, never the prefix itself. Matches must share the first
// character with the prefix, ignoring case.
func (l *List) Suggest(prefix string, flags rank.Flags, extra []string) []completion.Candidate {
	if strings.TrimSpace(prefix) == "" {
		return nil
	}
	scorer := rank.NewScorer(flags, prefix)
	filter := utils.NewSuggestionFilter(prefix, false)

	var results []completion.Candidate
	consider := func(word string) {
		if word == "" || !filter.ShouldInclude(word) {
			return
		}
		score, _ := scorer.Score(word, 0, rank.NoLine)
		if score <= 0 {
			return
		}
		results = append(results, completion.Candidate{
			Suggestion:        completion.Word(word),
			ReplacementPrefix: prefix,
			Score:             score,
			LocalityScore:     1,
		})
	}

	l.mu.RLock()
	for _, start := range l.startKeys(prefix, flags.StrictMatching) {
		err := l.trie.VisitSubtree(patricia.Prefix(start), func(p patricia.Prefix, _ patricia.Item) error {
			consider(string(p))
			return nil
		})
		if err != nil {
			log.Errorf("Error searching word list: %v", err)
		}
	}
	l.mu.RUnlock()

	for _, word := range extra {
		consider(word)
	}
	return results
}

// startKeys returns the trie prefixes to visit. Strict matching needs the
// exact prefix; fuzzy matching only pins the first character, in both cases.
func (l *List) startKeys(prefix string, strict bool) []string {
	if strict {
		return []string{prefix}
	}
	first := utils.FirstRune(prefix)
	lower, upper := string(unicode.ToLower(first)), string(unicode.ToUpper(first))
	if lower == upper {
		return []string{lower}
	}
	return []string{lower, upper}
}
