package utils

import (
	"strings"
)

// SuggestionFilter drops duplicate suggestions and the word being typed.
// It is not safe for concurrent use.
type SuggestionFilter struct {
	seenWords map[string]bool
	inputWord string
	foldCase  bool
}

// NewSuggestionFilter creates a new filter instance that will exclude the given input word.
// With foldCase, "Foo" and "foo" count as the same word.
func NewSuggestionFilter(input string, foldCase bool) *SuggestionFilter {
	f := &SuggestionFilter{
		seenWords: make(map[string]bool),
		foldCase:  foldCase,
	}
	f.inputWord = f.key(input)
	f.seenWords[f.inputWord] = true
	return f
}

func (f *SuggestionFilter) key(word string) string {
	if f.foldCase {
		return strings.ToLower(word)
	}
	return word
}

// ShouldInclude checks if a word should be included in results (not a duplicate)
// Returns true if the word should be included, false if it's a duplicate
func (f *SuggestionFilter) ShouldInclude(word string) bool {
	k := f.key(word)
	if f.seenWords[k] {
		return false
	}
	f.seenWords[k] = true
	return true
}
