package classify

import (
	"testing"

	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/selector"
)

func defaultConfig() completion.Config {
	return completion.Config{Types: []completion.TypeConfig{
		{Name: "class", Selector: selector.MustParse(".class.name, .inherited-class, .instance.type"), TypePriority: 4},
		{Name: "function", Selector: selector.MustParse(".function.name"), TypePriority: 3},
		{Name: "variable", Selector: selector.MustParse(".variable"), TypePriority: 2},
		{Name: "", Selector: selector.MustParse(".source"), TypePriority: 1},
	}}
}

func TestClassify(t *testing.T) {
	c := New(0)
	cfg := defaultConfig()

	tests := []struct {
		chain    string
		wantType string
		wantOK   bool
	}{
		{".source.go .entity.name.function", "function", true},
		{".source.go .meta.class .entity.name.class", "class", true},
		{".source.js .variable.other", "variable", true},
		{".source.go", "", true},
		{".source.go .string.quoted", "", true},
		{".text.plain", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := c.Classify(tt.chain, cfg)
		if got != tt.wantType || ok != tt.wantOK {
			t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tt.chain, got, ok, tt.wantType, tt.wantOK)
		}
	}
}

func TestPriorityIndependentOfOrder(t *testing.T) {
	low := completion.TypeConfig{Name: "low", Selector: selector.MustParse(".variable"), TypePriority: 1}
	high := completion.TypeConfig{Name: "high", Selector: selector.MustParse(".other"), TypePriority: 5}
	chain := ".source .variable.other"

	for _, types := range [][]completion.TypeConfig{{low, high}, {high, low}} {
		c := New(0)
		got, ok := c.Classify(chain, completion.Config{Types: types})
		if !ok || got != "high" {
			t.Errorf("Classify with order %s,%s = %q, want high", types[0].Name, types[1].Name, got)
		}
	}
}

func TestEqualPriorityKeepsFirst(t *testing.T) {
	a := completion.TypeConfig{Name: "a", Selector: selector.MustParse(".variable"), TypePriority: 2}
	b := completion.TypeConfig{Name: "b", Selector: selector.MustParse(".other"), TypePriority: 2}
	c := New(0)

	if got, _ := c.Classify(".variable.other", completion.Config{Types: []completion.TypeConfig{a, b}}); got != "a" {
		t.Errorf("Classify = %q, want a", got)
	}
	if got, _ := c.Classify(".variable.other", completion.Config{Types: []completion.TypeConfig{b, a}}); got != "b" {
		t.Errorf("Classify = %q, want b", got)
	}
}

func TestEmptyConfig(t *testing.T) {
	c := New(0)
	if _, ok := c.Classify(".source", completion.Config{}); ok {
		t.Errorf("Classify with empty config reported a match")
	}
	nilSel := completion.Config{Types: []completion.TypeConfig{{Name: "x", TypePriority: 9}}}
	if _, ok := c.Classify(".source", nilSel); ok {
		t.Errorf("type without selector must never match")
	}
}

type countingSelector struct {
	*selector.ScopeSelector
	calls int
}

func (s *countingSelector) Matches(scopes []string) bool {
	s.calls++
	return s.ScopeSelector.Matches(scopes)
}

func TestMatchResultsAreCached(t *testing.T) {
	sel := &countingSelector{ScopeSelector: selector.MustParse(".variable")}
	cfg := completion.Config{Types: []completion.TypeConfig{{Name: "v", Selector: sel, TypePriority: 1}}}
	c := New(0)

	for i := 0; i < 5; i++ {
		if _, ok := c.Classify(".source .variable", cfg); !ok {
			t.Fatalf("Classify failed")
		}
	}
	if sel.calls != 1 {
		t.Errorf("selector evaluated %d times, want 1", sel.calls)
	}

	c.Reset()
	c.Classify(".source .variable", cfg)
	if sel.calls != 2 {
		t.Errorf("selector evaluated %d times after Reset, want 2", sel.calls)
	}
}

func TestMatchCacheEviction(t *testing.T) {
	mc := NewMatchCache(2)
	sel := selector.MustParse(".a")

	mc.Put(sel, ".a", true)
	mc.Put(sel, ".b", false)
	mc.Get(sel, ".a")
	mc.Put(sel, ".c", false)

	if mc.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", mc.Len())
	}
	if _, ok := mc.Get(sel, ".b"); ok {
		t.Errorf("least recently used entry .b was not evicted")
	}
	if _, ok := mc.Get(sel, ".a"); !ok {
		t.Errorf("recently used entry .a was evicted")
	}
}
