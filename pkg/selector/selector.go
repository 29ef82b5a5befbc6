/*
Package selector implements the CSS-like scope selectors used to classify a
token's scope chain.

A scope chain is written as space separated scopes, each prefixed with a dot:

	.source.go .meta.function .entity.name.function

A selector is a comma separated list of alternatives. Each alternative is a
descendant sequence of compound selectors, and a compound is a set of classes
that must all appear as dot segments of a single scope:

	.class.name, .inherited-class, .source .variable

The last compound of an alternative must match the innermost scope given to
Matches; earlier compounds must match ancestors in order. The wildcard `*`
matches any scope.
*/
package selector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSelector is returned by Parse for malformed selector source.
var ErrInvalidSelector = errors.New("invalid scope selector")

// Selector matches a scope chain given innermost-last.
type Selector interface {
	Matches(scopes []string) bool
	String() string
}

// compound is one element of a descendant sequence.
type compound struct {
	wildcard bool
	classes  []string
}

// ScopeSelector is the parsed form of a selector string.
type ScopeSelector struct {
	source       string
	alternatives [][]compound
}

// Parse parses a comma separated selector list.
func Parse(source string) (*ScopeSelector, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty selector", ErrInvalidSelector)
	}

	sel := &ScopeSelector{source: trimmed}
	for _, alt := range strings.Split(trimmed, ",") {
		fields := strings.Fields(alt)
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: empty alternative in %q", ErrInvalidSelector, source)
		}
		seq := make([]compound, 0, len(fields))
		for _, field := range fields {
			c, err := parseCompound(field)
			if err != nil {
				return nil, fmt.Errorf("%w: %q in %q: %v", ErrInvalidSelector, field, source, err)
			}
			seq = append(seq, c)
		}
		sel.alternatives = append(sel.alternatives, seq)
	}
	return sel, nil
}

// MustParse is like Parse but panics on error. Intended for defaults and tests.
func MustParse(source string) *ScopeSelector {
	sel, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return sel
}

func parseCompound(field string) (compound, error) {
	if field == "*" {
		return compound{wildcard: true}, nil
	}
	segments := strings.Split(strings.TrimPrefix(field, "."), ".")
	classes := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			return compound{}, errors.New("empty class")
		}
		for _, r := range seg {
			if !isClassRune(r) {
				return compound{}, fmt.Errorf("unexpected character %q", r)
			}
		}
		classes = append(classes, seg)
	}
	return compound{classes: classes}, nil
}

func isClassRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '+':
		return true
	}
	return false
}

// String returns the normalized selector source.
func (s *ScopeSelector) String() string {
	return s.source
}

// Matches reports whether any alternative matches scopes, with the last
// element of scopes being the innermost scope.
func (s *ScopeSelector) Matches(scopes []string) bool {
	if len(scopes) == 0 {
		return false
	}
	for _, seq := range s.alternatives {
		if matchSequence(seq, scopes) {
			return true
		}
	}
	return false
}

func matchSequence(seq []compound, scopes []string) bool {
	last := len(seq) - 1
	if !seq[last].matches(scopes[len(scopes)-1]) {
		return false
	}
	// remaining compounds match ancestors right to left
	j := len(scopes) - 2
	for i := last - 1; i >= 0; i-- {
		for j >= 0 && !seq[i].matches(scopes[j]) {
			j--
		}
		if j < 0 {
			return false
		}
		j--
	}
	return true
}

func (c compound) matches(scope string) bool {
	if c.wildcard {
		return true
	}
	segments := strings.Split(scope, ".")
	for _, class := range c.classes {
		found := false
		for _, seg := range segments {
			if seg == class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
