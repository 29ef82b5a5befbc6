package rank

import (
	"math"
	"testing"

	"github.com/bastiangx/symbolserve/pkg/completion"
)

func TestStrictScoring(t *testing.T) {
	s := NewScorer(Flags{StrictMatching: true, LocalityBonus: true}, "foo")
	tests := []struct {
		text         string
		wantScore    float64
		wantLocality float64
	}{
		{"foobar", 1, 1},
		{"foo", 1, 1},
		{"Foobar", 0, 0},
		{"fxoxo", 0, 0},
	}
	for _, tt := range tests {
		score, loc := s.Score(tt.text, 0, 3)
		if score != tt.wantScore || loc != tt.wantLocality {
			t.Errorf("Score(%q) = (%v, %v), want (%v, %v)", tt.text, score, loc, tt.wantScore, tt.wantLocality)
		}
	}
}

func TestFuzzyRequiresFirstCharacter(t *testing.T) {
	s := NewScorer(Flags{}, "foo")
	if score, _ := s.Score("afoo", 0, 0); score != 0 {
		t.Errorf("Score(afoo) = %v, want 0 when first characters differ", score)
	}
	if score, _ := s.Score("FxOxO", 0, 0); score <= 0 {
		t.Errorf("Score(FxOxO) = %v, want > 0", score)
	}
	if score, _ := s.Score("fbar", 0, 0); score != 0 {
		t.Errorf("Score(fbar) = %v, want 0", score)
	}
}

func TestEmptyPrefixNeverMatches(t *testing.T) {
	s := NewScorer(Flags{}, "")
	if score, _ := s.Score("anything", 0, 0); score != 0 {
		t.Errorf("Score with empty prefix = %v, want 0", score)
	}
}

func TestLocalityFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(int) float64
		d    int
		want float64
	}{
		{"default at cursor", DefaultLocality, 0, 2.58},
		{"default at 15", DefaultLocality, 15, 1.5},
		{"default far away", DefaultLocality, 50, 1},
		{"alternate at cursor", AlternateLocality, 0, 2},
		{"alternate at 25", AlternateLocality, 25, 1.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.d); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("locality(%d) = %v, want %v", tt.d, got, tt.want)
			}
		})
	}
}

func TestLocalityMonotonicity(t *testing.T) {
	for _, alternate := range []bool{false, true} {
		s := NewScorer(Flags{LocalityBonus: true, AlternateScoring: alternate}, "qu")
		scoreNear, near := s.Score("quicksort", 100, 100)
		scoreFar, far := s.Score("quicksort", 100, 150)
		if scoreNear != scoreFar {
			t.Fatalf("alternate=%v: base score changed with distance", alternate)
		}
		if near < far {
			t.Errorf("alternate=%v: locality on cursor line %v < locality 50 lines away %v", alternate, near, far)
		}
		prev := math.Inf(1)
		for d := 0; d <= 200; d++ {
			l := s.Locality(0, d)
			if l > prev {
				t.Errorf("alternate=%v: locality increased at d=%d", alternate, d)
				break
			}
			if l < 1 {
				t.Errorf("alternate=%v: locality(%d) = %v < 1", alternate, d, l)
				break
			}
			prev = l
		}
	}
}

func TestLocalityDisabled(t *testing.T) {
	s := NewScorer(Flags{}, "qu")
	if _, loc := s.Score("quicksort", 0, 0); loc != 1 {
		t.Errorf("locality without bonus flag = %v, want 1", loc)
	}
	on := NewScorer(Flags{LocalityBonus: true}, "qu")
	if _, loc := on.Score("quicksort", 10, NoLine); loc != 1 {
		t.Errorf("locality for NoLine = %v, want 1", loc)
	}
}

func cand(text string, score float64) completion.Candidate {
	return completion.Candidate{Suggestion: completion.Word(text), Score: score, LocalityScore: 1}
}

func texts(cs []completion.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Text()
	}
	return out
}

func TestTieBreakPolicies(t *testing.T) {
	input := func() []completion.Candidate {
		return []completion.Candidate{cand("longer", 1), cand("best", 2), cand("ab", 1), cand("mid", 1)}
	}

	got := texts(Finalize(input(), InsertionOrder, 0))
	want := []string{"best", "longer", "ab", "mid"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("InsertionOrder = %v, want %v", got, want)
		}
	}

	got = texts(Finalize(input(), ShortestText, 0))
	want = []string{"best", "ab", "mid", "longer"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ShortestText = %v, want %v", got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	var cs []completion.Candidate
	for i := 0; i < 30; i++ {
		cs = append(cs, cand("x", 1))
	}
	if got := len(Truncate(cs, 0)); got != DefaultMaxResults {
		t.Errorf("len(Truncate(30, 0)) = %d, want %d", got, DefaultMaxResults)
	}
	if got := len(Truncate(cs, 5)); got != 5 {
		t.Errorf("len(Truncate(30, 5)) = %d, want 5", got)
	}
	if got := len(Truncate(cs[:3], 5)); got != 3 {
		t.Errorf("len(Truncate(3, 5)) = %d, want 3", got)
	}
}

func TestStaticFlags(t *testing.T) {
	var src FlagSource = StaticFlags{StrictMatching: true}
	if !src.Flags().StrictMatching {
		t.Errorf("StaticFlags lost StrictMatching")
	}
}
