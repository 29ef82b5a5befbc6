package selector

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseErrors(t *testing.T) {
	tests := []string{"", "  ", ".a,", ".a..b", ".a $b", ","}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			if _, err := Parse(src); !errors.Is(err, ErrInvalidSelector) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidSelector", src, err)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		selector string
		chain    string
		want     bool
	}{
		{".source", ".source.go", true},
		{".function.name", ".source.go .entity.name.function", true},
		{".function.name", ".source.go .entity.function", false},
		{".class.name, .variable", ".source.js .variable.other", true},
		{".source .variable", ".source.js .meta.block .variable.other", true},
		{".source .variable", ".text.html .variable.other", false},
		{".variable .source", ".source.js .variable.other", false},
		{"*", ".anything", true},
		{"source.go", ".source.go", true},
		{".string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.selector+"|"+tt.chain, func(t *testing.T) {
			sel := MustParse(tt.selector)
			if got := sel.Matches(SplitChain(tt.chain)); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.chain, got, tt.want)
			}
		})
	}
}

func TestInnermostMustMatch(t *testing.T) {
	sel := MustParse(".source")
	scopes := SplitChain(".source.go .string.quoted")
	if sel.Matches(scopes) {
		t.Errorf("selector matched an ancestor-only chain")
	}
	if !sel.Matches(scopes[:1]) {
		t.Errorf("selector did not match truncated chain")
	}
}

func TestChainRoundTrip(t *testing.T) {
	scopes := []string{"source.go", "meta.function", "entity.name.function"}
	chain := ChainString(scopes)
	if chain != ".source.go .meta.function .entity.name.function" {
		t.Errorf("ChainString = %q", chain)
	}
	if got := SplitChain(chain); !reflect.DeepEqual(got, scopes) {
		t.Errorf("SplitChain = %v, want %v", got, scopes)
	}
	if ChainString(nil) != "" {
		t.Errorf("ChainString(nil) should be empty")
	}
}
