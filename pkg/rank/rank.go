/*
Package rank scores completion candidates against a typed prefix and orders
them for display.

Two scoring modes are supported. Strict matching accepts only candidates that
start with the prefix and gives them all the same score. Fuzzy matching
delegates to a subsequence scorer, but only after the first characters of the
candidate and the prefix agree case-insensitively.

In fuzzy mode a locality bonus can multiply the score for candidates found
near the cursor line:

	default:   1 + max(0, -((0.2d - 3)^3)/25 + 0.5)
	alternate: 1 + (25/(25+d))^2

where d is the line distance. Static suggestions have no line and always get
a locality of 1.
*/
package rank

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/symbolserve/internal/utils"
	"github.com/bastiangx/symbolserve/pkg/fuzzy"
)

// NoLine is the symbol line used for candidates that do not come from a
// buffer. It disables the locality bonus.
const NoLine = math.MaxInt

// DefaultMaxResults caps the final candidate list.
const DefaultMaxResults = 20

// Flags are the mode switches owned by the surrounding configuration.
type Flags struct {
	AlternateScoring bool
	LocalityBonus    bool
	StrictMatching   bool
}

// DefaultFlags enables alternate scoring and the locality bonus, leaving
// strict matching off.
func DefaultFlags() Flags {
	return Flags{AlternateScoring: true, LocalityBonus: true}
}

// FlagSource returns the current flags. Implementations are read on every
// query so a config reload takes effect immediately.
type FlagSource interface {
	Flags() Flags
}

// StaticFlags is a FlagSource that never changes.
type StaticFlags Flags

func (f StaticFlags) Flags() Flags { return Flags(f) }

// Scorer scores texts against a single prefix.
type Scorer struct {
	flags    Flags
	prefix   string
	first    rune
	fuzzy    fuzzy.Scorer
	locality func(d int) float64
}

// NewScorer prepares a scorer for prefix under flags.
func NewScorer(flags Flags, prefix string) *Scorer {
	s := &Scorer{
		flags:    flags,
		prefix:   prefix,
		first:    utils.FirstRune(prefix),
		fuzzy:    fuzzy.Basic,
		locality: DefaultLocality,
	}
	if flags.AlternateScoring {
		s.fuzzy = fuzzy.Plus
		s.locality = AlternateLocality
	}
	return s
}

// Prefix returns the prefix the scorer was built for.
func (s *Scorer) Prefix() string { return s.prefix }

// Strict reports whether the scorer is in strict-prefix mode.
func (s *Scorer) Strict() bool { return s.flags.StrictMatching }

// Score returns the match score and locality multiplier of text found on
// symbolLine while the cursor is on cursorLine. A zero score means no match.
func (s *Scorer) Score(text string, cursorLine, symbolLine int) (score, locality float64) {
	if s.prefix == "" || text == "" {
		return 0, 0
	}
	if s.flags.StrictMatching {
		if strings.HasPrefix(text, s.prefix) {
			return 1, 1
		}
		return 0, 0
	}

	if !utils.EqualFold(utils.FirstRune(text), s.first) {
		return 0, 0
	}
	score = s.fuzzy.Score(text, s.prefix)
	if score <= 0 {
		return 0, 0
	}
	return score, s.Locality(cursorLine, symbolLine)
}

// Locality returns the bonus for the distance between the two lines. It is 1
// when the bonus is disabled or either line is NoLine.
func (s *Scorer) Locality(cursorLine, symbolLine int) float64 {
	if s.flags.StrictMatching || !s.flags.LocalityBonus {
		return 1
	}
	if symbolLine == NoLine || cursorLine == NoLine {
		return 1
	}
	d := symbolLine - cursorLine
	if d < 0 {
		d = -d
	}
	return s.locality(d)
}

// DefaultLocality peaks at about 2.75 on the cursor line and flattens to 1
// beyond roughly 25 lines.
func DefaultLocality(d int) float64 {
	x := 0.2*float64(d) - 3
	return 1 + math.Max(0, -(x*x*x)/25+0.5)
}

// AlternateLocality decays smoothly from 2 on the cursor line, reaching half
// its effect near 25 lines.
func AlternateLocality(d int) float64 {
	fade := 25.0 / (25.0 + float64(d))
	return 1 + fade*fade
}

// textLen is the rune length used by the shortest-text tie-break.
func textLen(s string) int {
	return utf8.RuneCountInString(s)
}
