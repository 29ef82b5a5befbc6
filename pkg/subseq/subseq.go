// Package subseq suggests words from the rows surrounding the cursor whose
// characters contain the typed prefix as a subsequence. Unlike the symbol
// index it keeps no state per line: every request rescans a bounded window
// of each watched buffer.
package subseq

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/bastiangx/symbolserve/pkg/classify"
	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/fuzzy"
	"github.com/bastiangx/symbolserve/pkg/rank"
)

// staticWordChars are added to the word characters when matching static
// suggestions, so a multi-word snippet label is matched as a whole.
const staticWordChars = "(){}[] :;,$"

// cancelCheckInterval is how many rows are scanned between ctx checks.
const cancelCheckInterval = 256

// Buffer is the read-only view the engine scans.
type Buffer interface {
	ID() completion.BufferID
	LineCount() int
	Line(row int) string
}

// ScopeResolver is implemented by buffers that know the scope chain at a
// position. Words from such buffers are typed through the classifier.
type ScopeResolver interface {
	ScopeChainAt(row, col int) string
}

// Options tune the search.
type Options struct {
	// MaxSearchRowDelta is how many rows above and below the cursor are
	// scanned.
	MaxSearchRowDelta int
	// MaxResultsPerBuffer caps distinct words taken from one buffer.
	MaxResultsPerBuffer int
	// MaxSuggestions caps the final list.
	MaxSuggestions int
	// AdditionalWordChars extends letters and digits.
	AdditionalWordChars string
	// Concurrency bounds the buffers scanned at once. Zero means no limit.
	Concurrency int
}

// DefaultOptions returns the stock search bounds.
func DefaultOptions() Options {
	return Options{
		MaxSearchRowDelta:   3000,
		MaxResultsPerBuffer: 100,
		MaxSuggestions:      rank.DefaultMaxResults,
		AdditionalWordChars: "_",
		Concurrency:         8,
	}
}

// Request describes one suggestion request.
type Request struct {
	Config completion.Config
	// Buffers limits the search; nil means every watched buffer.
	Buffers []completion.BufferID
	// Current is the buffer holding the cursor. Only its rows earn a
	// locality bonus.
	Current         completion.BufferID
	Prefix          string
	WordUnderCursor string
	CursorLine      int
	CursorCount     int
}

// Engine holds the watched buffers.
type Engine struct {
	mu         sync.RWMutex
	buffers    map[completion.BufferID]Buffer
	order      []completion.BufferID
	options    Options
	classifier *classify.Classifier
	flags      rank.FlagSource
}

// New creates an engine. A nil classifier gets a private one and nil flags
// mean rank.DefaultFlags.
func New(options Options, classifier *classify.Classifier, flags rank.FlagSource) *Engine {
	defaults := DefaultOptions()
	if options.MaxSearchRowDelta <= 0 {
		options.MaxSearchRowDelta = defaults.MaxSearchRowDelta
	}
	if options.MaxResultsPerBuffer <= 0 {
		options.MaxResultsPerBuffer = defaults.MaxResultsPerBuffer
	}
	if options.MaxSuggestions <= 0 {
		options.MaxSuggestions = defaults.MaxSuggestions
	}
	if classifier == nil {
		classifier = classify.New(classify.DefaultCacheSize)
	}
	if flags == nil {
		flags = rank.StaticFlags(rank.DefaultFlags())
	}
	return &Engine{
		buffers:    make(map[completion.BufferID]Buffer),
		options:    options,
		classifier: classifier,
		flags:      flags,
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.options }

// Watch starts including buf in searches. Watching an id twice replaces the
// buffer but keeps its position in the search order.
func (e *Engine) Watch(buf Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := buf.ID()
	if _, ok := e.buffers[id]; !ok {
		e.order = append(e.order, id)
	}
	e.buffers[id] = buf
}

// Unwatch stops including id in searches.
func (e *Engine) Unwatch(id completion.BufferID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.buffers[id]; !ok {
		return
	}
	delete(e.buffers, id)
	for i, o := range e.order {
		if o == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Watched returns the number of watched buffers.
func (e *Engine) Watched() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.buffers)
}

// match is one distinct word found in a buffer or the static scratch text.
type match struct {
	word      string
	row       int
	col       int
	positions []int
	score     float64
	count     int
}

// Suggest scans the watched buffers and the configured static suggestions
// and returns the ranked, capped list.
func (e *Engine) Suggest(ctx context.Context, req Request) ([]completion.Candidate, error) {
	if req.Prefix == "" {
		return nil, nil
	}
	flags := e.flags.Flags()
	scorer := rank.NewScorer(flags, req.Prefix)
	m := matcher{
		prefix: req.Prefix,
		strict: flags.StrictMatching,
		fuzzy:  fuzzy.Plus,
	}
	if !flags.AlternateScoring {
		m.fuzzy = fuzzy.Basic
	}

	buffers := e.snapshot(req.Buffers)
	perBuffer := make([][]match, len(buffers))

	g, gctx := errgroup.WithContext(ctx)
	if e.options.Concurrency > 0 {
		g.SetLimit(e.options.Concurrency)
	}
	wordChars := e.options.AdditionalWordChars
	for i, buf := range buffers {
		g.Go(func() error {
			start, end := Window(req.CursorLine, buf.LineCount(), e.options.MaxSearchRowDelta)
			found, err := m.scan(gctx, buf, wordChars, req.CursorLine, start, end, e.options.MaxResultsPerBuffer)
			if err != nil {
				return err
			}
			perBuffer[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results, reserved := e.staticCandidates(ctx, m, req)

	// total occurrences decide word-under-cursor suppression
	occurrences := 0
	for _, found := range perBuffer {
		for _, f := range found {
			if f.word == req.WordUnderCursor {
				occurrences += f.count
			}
		}
	}
	suppress := req.WordUnderCursor != "" && occurrences <= req.CursorCount

	byWord := make(map[string]int)
	for i, found := range perBuffer {
		buf := buffers[i]
		current := buf.ID() == req.Current
		for _, f := range found {
			if reserved[f.word] {
				continue
			}
			if suppress && f.word == req.WordUnderCursor {
				continue
			}
			loc := 1.0
			if current {
				loc = scorer.Locality(req.CursorLine, f.row)
			}
			if j, ok := byWord[f.word]; ok {
				if f.score*loc > results[j].Rank() {
					results[j].Score = f.score
					results[j].LocalityScore = loc
					results[j].Positions = f.positions
				}
				continue
			}
			word := completion.Word(f.word)
			word.Type = e.typeOf(buf, f, req.Config)
			byWord[f.word] = len(results)
			results = append(results, completion.Candidate{
				Suggestion:        word,
				ReplacementPrefix: req.Prefix,
				Score:             f.score,
				LocalityScore:     loc,
				Positions:         f.positions,
			})
		}
	}

	log.Debugf("subsequence: prefix %q, %d buffers, %d candidates", req.Prefix, len(buffers), len(results))
	return rank.Finalize(results, rank.ShortestText, e.options.MaxSuggestions), nil
}

// snapshot copies the requested buffers so the scan runs without the lock.
func (e *Engine) snapshot(ids []completion.BufferID) []Buffer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if ids == nil {
		ids = e.order
	}
	out := make([]Buffer, 0, len(ids))
	for _, id := range ids {
		if buf, ok := e.buffers[id]; ok {
			out = append(out, buf)
		}
	}
	return out
}

func (e *Engine) typeOf(buf Buffer, f match, cfg completion.Config) string {
	sr, ok := buf.(ScopeResolver)
	if !ok {
		return ""
	}
	typ, _ := e.classifier.Classify(sr.ScopeChainAt(f.row, f.col), cfg)
	return typ
}

// staticCandidates matches the configured suggestions. Each suggestion label
// becomes one row of a scratch buffer and a matched row maps back to its
// suggestion. Static words never get a locality bonus.
func (e *Engine) staticCandidates(ctx context.Context, m matcher, req Request) ([]completion.Candidate, map[string]bool) {
	reserved := make(map[string]bool)
	suggestions := req.Config.StaticSuggestions()
	if len(suggestions) == 0 {
		return nil, reserved
	}
	rows := make([]string, len(suggestions))
	for i, s := range suggestions {
		rows[i] = s.Label()
	}
	scratch := lines(rows)
	found, err := m.scan(ctx, scratch, e.options.AdditionalWordChars+staticWordChars, 0, 0, len(rows), 0)
	if err != nil {
		return nil, reserved
	}

	var results []completion.Candidate
	for _, f := range found {
		s := suggestions[f.row]
		if reserved[s.Text()] {
			continue
		}
		reserved[s.Text()] = true
		reserved[f.word] = true
		results = append(results, completion.Candidate{
			Suggestion:        s,
			ReplacementPrefix: req.Prefix,
			Score:             f.score,
			LocalityScore:     1,
			Positions:         f.positions,
		})
	}
	return results, reserved
}

// matcher scores words against one prefix.
type matcher struct {
	prefix string
	strict bool
	fuzzy  fuzzy.Scorer
}

// score returns the match quality of word and the matched rune offsets.
func (m matcher) score(word string) (float64, []int, bool) {
	if m.strict && !strings.HasPrefix(word, m.prefix) {
		return 0, nil, false
	}
	fm, ok := fuzzy.Find(word, m.prefix)
	if !ok {
		return 0, nil, false
	}
	score := m.fuzzy.Score(word, m.prefix)
	if score <= 0 {
		return 0, nil, false
	}
	return score, fm.MatchedIndexes, true
}

// scan collects the distinct matching words in rows [start, end), visiting
// rows nearest center first so the closest occurrences survive the limit.
// Each word keeps its closest occurrence. A non-positive limit is unbounded.
func (m matcher) scan(ctx context.Context, buf Buffer, wordChars string, center, start, end, limit int) ([]match, error) {
	if start >= end {
		return nil, nil
	}
	isWordChar := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(wordChars, r)
	}

	byWord := make(map[string]int)
	var found []match
	center = min(max(center, start), end-1)
	for i, row := range outward(center, start, end) {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for _, w := range splitWords(buf.Line(row), isWordChar) {
			if j, ok := byWord[w.text]; ok {
				found[j].count++
				continue
			}
			if limit > 0 && len(found) >= limit {
				continue
			}
			score, positions, ok := m.score(w.text)
			if !ok {
				continue
			}
			byWord[w.text] = len(found)
			found = append(found, match{
				word:      w.text,
				row:       row,
				col:       w.col,
				positions: positions,
				score:     score,
				count:     1,
			})
		}
	}
	return found, nil
}

// Window returns the half-open row range [start, end) of at most
// 2*delta+1 rows around cursor. Rows cut off at one end of the buffer are
// given to the other end.
func Window(cursor, lineCount, delta int) (start, end int) {
	if lineCount <= 0 {
		return 0, 0
	}
	cursor = min(max(cursor, 0), lineCount-1)
	start = cursor - delta
	end = cursor + delta + 1
	if start < 0 {
		end -= start
		start = 0
	}
	if end > lineCount {
		start -= end - lineCount
		end = lineCount
	}
	return max(start, 0), end
}

// outward lists rows [start, end) ordered by distance from center, upper
// row first on ties.
func outward(center, start, end int) []int {
	rows := make([]int, 0, end-start)
	if center >= start && center < end {
		rows = append(rows, center)
	}
	for d := 1; len(rows) < end-start; d++ {
		if r := center - d; r >= start && r < end {
			rows = append(rows, r)
		}
		if r := center + d; r >= start && r < end {
			rows = append(rows, r)
		}
	}
	return rows
}

type span struct {
	text string
	col  int
}

// splitWords returns the maximal runs of word characters in line. Columns
// are rune offsets.
func splitWords(line string, isWordChar func(rune) bool) []span {
	var out []span
	begin, col := -1, 0
	var startCol int
	for i, r := range line {
		if isWordChar(r) {
			if begin < 0 {
				begin, startCol = i, col
			}
		} else if begin >= 0 {
			out = append(out, span{text: line[begin:i], col: startCol})
			begin = -1
		}
		col++
	}
	if begin >= 0 {
		out = append(out, span{text: line[begin:], col: startCol})
	}
	return out
}

// lines adapts a slice of rows to Buffer.
type lines []string

func (l lines) ID() completion.BufferID { return completion.NilBufferID }
func (l lines) LineCount() int           { return len(l) }
func (l lines) Line(row int) string      { return l[row] }
