package utils

import "testing"

func TestSuggestionFilter(t *testing.T) {
	f := NewSuggestionFilter("foo", false)
	steps := []struct {
		word string
		want bool
	}{
		{"foo", false},
		{"Foo", true},
		{"bar", true},
		{"bar", false},
	}
	for _, s := range steps {
		if got := f.ShouldInclude(s.word); got != s.want {
			t.Errorf("ShouldInclude(%q) = %v, want %v", s.word, got, s.want)
		}
	}

	folded := NewSuggestionFilter("foo", true)
	if folded.ShouldInclude("FOO") {
		t.Errorf("folded filter let the input word through")
	}
}
