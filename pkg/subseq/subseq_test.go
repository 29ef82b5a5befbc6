package subseq

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/rank"
	"github.com/bastiangx/symbolserve/pkg/selector"
)

type testBuffer struct {
	id    completion.BufferID
	lines []string
}

func newBuffer(lines ...string) *testBuffer {
	return &testBuffer{id: completion.NewBufferID(), lines: lines}
}

func (b *testBuffer) ID() completion.BufferID { return b.id }
func (b *testBuffer) LineCount() int           { return len(b.lines) }
func (b *testBuffer) Line(row int) string      { return b.lines[row] }

// scopedBuffer reports the same scope chain everywhere.
type scopedBuffer struct {
	*testBuffer
	chain string
}

func (b scopedBuffer) ScopeChainAt(row, col int) string { return b.chain }

func newEngine(options Options) *Engine {
	return New(options, nil, rank.StaticFlags(rank.DefaultFlags()))
}

func texts(cands []completion.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Text()
	}
	return out
}

func TestWindow(t *testing.T) {
	tests := []struct {
		cursor, lineCount, delta int
		wantStart, wantEnd       int
	}{
		{5, 10, 3, 2, 9},
		{0, 10, 3, 0, 7},
		{9, 10, 3, 3, 10},
		{2, 3, 10, 0, 3},
		{50, 10, 3, 3, 10},
		{-4, 10, 1, 0, 3},
		{0, 0, 3, 0, 0},
	}

	for _, tt := range tests {
		start, end := Window(tt.cursor, tt.lineCount, tt.delta)
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("Window(%d, %d, %d) = [%d, %d), want [%d, %d)",
				tt.cursor, tt.lineCount, tt.delta, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestSplitWords(t *testing.T) {
	isWordChar := func(r rune) bool {
		return r == '_' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9')
	}
	got := splitWords("foo_bar(baz) qux1", isWordChar)
	want := []span{{"foo_bar", 0}, {"baz", 8}, {"qux1", 13}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitWords() = %v, want %v", got, want)
	}
}

func TestSuggestRanksShorterMatchFirst(t *testing.T) {
	e := newEngine(DefaultOptions())
	e.Watch(newBuffer("quicksort quick other"))

	got, err := e.Suggest(context.Background(), Request{Prefix: "qk"})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if want := []string{"quick", "quicksort"}; !reflect.DeepEqual(texts(got), want) {
		t.Errorf("Suggest() = %v, want %v", texts(got), want)
	}
	if !reflect.DeepEqual(got[0].Positions, []int{0, 4}) {
		t.Errorf("Positions = %v, want [0 4]", got[0].Positions)
	}
}

func TestEmptyPrefix(t *testing.T) {
	e := newEngine(DefaultOptions())
	e.Watch(newBuffer("anything"))
	got, err := e.Suggest(context.Background(), Request{})
	if err != nil || got != nil {
		t.Errorf("Suggest(empty) = %v, %v, want nil, nil", got, err)
	}
}

func TestWordUnderCursorSuppression(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{"only the typed occurrence", []string{"foo", "fo"}, []string{"foo"}},
		{"another occurrence exists", []string{"foo", "fo", "fo"}, []string{"fo", "foo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(DefaultOptions())
			e.Watch(newBuffer(tt.lines...))
			got, err := e.Suggest(context.Background(), Request{
				Prefix:          "fo",
				WordUnderCursor: "fo",
				CursorCount:     1,
			})
			if err != nil {
				t.Fatalf("Suggest() error = %v", err)
			}
			if !reflect.DeepEqual(texts(got), tt.want) {
				t.Errorf("Suggest() = %v, want %v", texts(got), tt.want)
			}
		})
	}
}

func TestStaticSuggestionsWin(t *testing.T) {
	cfg := completion.Config{Types: []completion.TypeConfig{
		{
			Name:         "builtin",
			Selector:     selector.MustParse(".source"),
			TypePriority: 1,
			Suggestions:  []completion.Suggestion{completion.Word("format")},
		},
	}}
	e := newEngine(DefaultOptions())
	e.Watch(newBuffer("format forward"))

	got, err := e.Suggest(context.Background(), Request{Config: cfg, Prefix: "for"})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if want := []string{"format", "forward"}; !reflect.DeepEqual(texts(got), want) {
		t.Fatalf("Suggest() = %v, want %v", texts(got), want)
	}
	if got[0].Type != "builtin" {
		t.Errorf("format Type = %q, want builtin", got[0].Type)
	}
	if got[1].Type != "" {
		t.Errorf("forward Type = %q, want empty", got[1].Type)
	}
}

func TestStaticSnippetMatchedByLabel(t *testing.T) {
	snippet := completion.Snippet("fmt.Println(${1})")
	snippet.DisplayText = "print(value)"
	cfg := completion.Config{Types: []completion.TypeConfig{
		{Name: "snippet", Selector: selector.MustParse("*"), Suggestions: []completion.Suggestion{snippet}},
	}}
	e := newEngine(DefaultOptions())

	got, err := e.Suggest(context.Background(), Request{Config: cfg, Prefix: "pv"})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 1 || got[0].Text() != "fmt.Println(${1})" {
		t.Fatalf("Suggest() = %v, want the snippet", texts(got))
	}
}

func TestLocalityOnlyForCurrentBuffer(t *testing.T) {
	other := newBuffer("alpha")
	current := newBuffer("alphz")
	e := newEngine(DefaultOptions())
	e.Watch(other)
	e.Watch(current)

	got, err := e.Suggest(context.Background(), Request{Prefix: "al"})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if want := []string{"alpha", "alphz"}; !reflect.DeepEqual(texts(got), want) {
		t.Errorf("without a current buffer Suggest() = %v, want %v", texts(got), want)
	}

	got, err = e.Suggest(context.Background(), Request{Prefix: "al", Current: current.ID()})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if want := []string{"alphz", "alpha"}; !reflect.DeepEqual(texts(got), want) {
		t.Errorf("with current buffer Suggest() = %v, want %v", texts(got), want)
	}
	if got[0].LocalityScore != 2 || got[1].LocalityScore != 1 {
		t.Errorf("LocalityScore = %v, %v, want 2, 1", got[0].LocalityScore, got[1].LocalityScore)
	}
}

func TestStrictMatching(t *testing.T) {
	flags := rank.DefaultFlags()
	flags.StrictMatching = true
	e := New(DefaultOptions(), nil, rank.StaticFlags(flags))
	e.Watch(newBuffer("quicksort quick"))

	got, _ := e.Suggest(context.Background(), Request{Prefix: "qk"})
	if len(got) != 0 {
		t.Errorf("strict Suggest(qk) = %v, want none", texts(got))
	}
	got, _ = e.Suggest(context.Background(), Request{Prefix: "qui"})
	if want := []string{"quick", "quicksort"}; !reflect.DeepEqual(texts(got), want) {
		t.Errorf("strict Suggest(qui) = %v, want %v", texts(got), want)
	}
}

func TestSearchWindow(t *testing.T) {
	lines := make([]string, 10)
	lines[9] = "farword"
	buf := newBuffer(lines...)

	tests := []struct {
		delta int
		want  int
	}{
		{2, 0},
		{9, 1},
	}
	for _, tt := range tests {
		opts := DefaultOptions()
		opts.MaxSearchRowDelta = tt.delta
		e := newEngine(opts)
		e.Watch(buf)
		got, err := e.Suggest(context.Background(), Request{Prefix: "fw", CursorLine: 0})
		if err != nil {
			t.Fatalf("Suggest() error = %v", err)
		}
		if len(got) != tt.want {
			t.Errorf("delta %d: got %d results, want %d", tt.delta, len(got), tt.want)
		}
	}
}

func TestMaxResultsPerBufferKeepsClosest(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxResultsPerBuffer = 1
	e := newEngine(opts)
	e.Watch(newBuffer("ab1", "ab2", "ab3"))

	got, err := e.Suggest(context.Background(), Request{Prefix: "ab", CursorLine: 2})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if want := []string{"ab3"}; !reflect.DeepEqual(texts(got), want) {
		t.Errorf("Suggest() = %v, want %v", texts(got), want)
	}
}

func TestScopeResolverTypesWords(t *testing.T) {
	cfg := completion.Config{Types: []completion.TypeConfig{
		{Name: "function", Selector: selector.MustParse(".function.name"), TypePriority: 3},
		{Name: "variable", Selector: selector.MustParse(".variable"), TypePriority: 2},
	}}
	e := newEngine(DefaultOptions())
	e.Watch(scopedBuffer{newBuffer("counter"), ".source.go .variable.other"})

	got, err := e.Suggest(context.Background(), Request{Config: cfg, Prefix: "cnt"})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 1 || got[0].Type != "variable" {
		t.Errorf("Suggest() = %+v, want one variable", got)
	}
}

func TestBufferSelectionAndUnwatch(t *testing.T) {
	a := newBuffer("apple")
	b := newBuffer("apricot")
	e := newEngine(DefaultOptions())
	e.Watch(a)
	e.Watch(b)

	got, _ := e.Suggest(context.Background(), Request{Prefix: "ap", Buffers: []completion.BufferID{b.ID()}})
	if want := []string{"apricot"}; !reflect.DeepEqual(texts(got), want) {
		t.Errorf("Suggest(only b) = %v, want %v", texts(got), want)
	}

	e.Unwatch(b.ID())
	if e.Watched() != 1 {
		t.Errorf("Watched() = %d, want 1", e.Watched())
	}
	got, _ = e.Suggest(context.Background(), Request{Prefix: "ap"})
	if want := []string{"apple"}; !reflect.DeepEqual(texts(got), want) {
		t.Errorf("Suggest() after Unwatch = %v, want %v", texts(got), want)
	}
}

func TestCancelledContext(t *testing.T) {
	e := newEngine(DefaultOptions())
	e.Watch(newBuffer("anything"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Suggest(ctx, Request{Prefix: "an"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Suggest() error = %v, want context.Canceled", err)
	}
}
