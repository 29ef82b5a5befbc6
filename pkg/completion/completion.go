// Package completion holds the data model shared by the symbol index, the
// subsequence engine and the server: per-request type configuration, static
// suggestions and ranked candidates.
package completion

import (
	"strings"

	"github.com/bastiangx/symbolserve/pkg/selector"
)

// DefaultTypePriority is used when a type entry does not set a priority.
const DefaultTypePriority = 1

// Kind tags a Suggestion as a plain word or a snippet.
type Kind uint8

const (
	KindWord Kind = iota
	KindSnippet
)

func (k Kind) String() string {
	if k == KindSnippet {
		return "snippet"
	}
	return "word"
}

// Suggestion is either a Word or a Snippet. Use Text for the string that is
// matched against a prefix.
type Suggestion struct {
	Kind        Kind
	Body        string
	DisplayText string
	Type        string
	Description string
}

// Word creates a word suggestion.
func Word(text string) Suggestion {
	return Suggestion{Kind: KindWord, Body: text}
}

// Snippet creates a snippet suggestion.
func Snippet(body string) Suggestion {
	return Suggestion{Kind: KindSnippet, Body: body}
}

// Text returns the matchable string.
func (s Suggestion) Text() string {
	return s.Body
}

// Label returns what a popup should show for the suggestion.
func (s Suggestion) Label() string {
	if s.DisplayText != "" {
		return s.DisplayText
	}
	return s.Body
}

// TypeConfig is a single configured symbol type.
type TypeConfig struct {
	Name         string
	Selector     selector.Selector
	TypePriority int
	Suggestions  []Suggestion
}

// Config is the resolved, ordered type configuration for one request.
// Order matters: on equal priority the earlier type wins.
type Config struct {
	Types []TypeConfig
}

// Empty reports whether the config has no types.
func (c Config) Empty() bool {
	return len(c.Types) == 0
}

// StaticSuggestions flattens the configured suggestions in declaration order,
// filling in the owning type name where a suggestion has none.
func (c Config) StaticSuggestions() []Suggestion {
	var out []Suggestion
	for _, tc := range c.Types {
		for _, s := range tc.Suggestions {
			if s.Type == "" {
				s.Type = tc.Name
			}
			out = append(out, s)
		}
	}
	return out
}

// Position is a zero based row/column location.
type Position struct {
	Row    int `msgpack:"r" json:"row"`
	Column int `msgpack:"c" json:"column"`
}

// Candidate is a transient query result.
type Candidate struct {
	Suggestion
	ReplacementPrefix string
	Score             float64
	LocalityScore     float64
	// Positions holds matched rune offsets, set by the subsequence engine only.
	Positions []int
}

// Rank is the final ranking key.
func (c Candidate) Rank() float64 {
	return c.Score * c.LocalityScore
}

// Fragment is one tokenizer output piece: text plus its scope chain.
type Fragment struct {
	Text       string
	ScopeChain string
}

// TokenSource yields the tokenized fragments of a line. ok is false when the
// tokenizer has not produced output for that line yet.
type TokenSource interface {
	LineFragments(line int) (fragments []Fragment, ok bool)
}

// FragmentsText joins fragment texts back into the line text.
func FragmentsText(frags []Fragment) string {
	var b strings.Builder
	for _, f := range frags {
		b.WriteString(f.Text)
	}
	return b.String()
}
