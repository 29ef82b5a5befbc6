/*
Package symbols maintains a per-buffer, per-line index of the words found in
tokenized text and answers prefix queries against it.

Each line of a buffer owns a bucket that maps the lowercased first letter of a
word to the words on that line starting with it. A query therefore only looks
at one bucket per line instead of every word in the buffer.

The index is updated by splicing line ranges: the tokenizer reports that
oldLineCount lines at lineStart were replaced by newLineCount freshly
tokenized lines, and RecomputeRange rebuilds exactly those buckets.

	idx := symbols.NewIndex()
	idx.Open(id)
	err := idx.RecomputeRange(id, 0, 0, buf.LineCount(), buf)
	cands := idx.Query(symbols.Query{Config: cfg, Prefix: "ba"})
*/
package symbols

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/symbolserve/internal/utils"
	"github.com/bastiangx/symbolserve/pkg/classify"
	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/rank"
)

var (
	// ErrBufferNotTracked is returned for operations on a buffer that was
	// never opened or has been closed.
	ErrBufferNotTracked = errors.New("buffer not tracked")
	// ErrRangeOutOfBounds is returned when a recompute range does not fit the
	// indexed line count, usually because updates arrived out of order.
	ErrRangeOutOfBounds = errors.New("recompute range out of bounds")
)

// DefaultWordPattern extracts identifier-like words: at least one letter,
// underscore or dash, optionally surrounded by digits and word characters.
var DefaultWordPattern = regexp.MustCompile(`\b\w*[a-zA-Z_-]+\w*\b`)

// UnicodeWordPattern is DefaultWordPattern extended to any Unicode letter.
var UnicodeWordPattern = regexp.MustCompile(`[\p{L}\d_]*[\p{L}_-]+[\p{L}\d_]*`)

// Symbol is a word found on a line together with the scope chain of the
// fragment it came from.
type Symbol struct {
	Text       string
	ScopeChain string
}

// lineBucket maps a lowercased first letter to the symbols of one line.
type lineBucket map[rune][]Symbol

// bufferLines is the index of one buffer. len(lines) equals the buffer's line
// count after every successful recompute.
type bufferLines struct {
	lines []lineBucket
}

// IndexOptions configures an Index.
type IndexOptions struct {
	WordPattern *regexp.Regexp
	Classifier  *classify.Classifier
	Flags       rank.FlagSource
}

// DefaultIndexOptions returns the default options.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		WordPattern: DefaultWordPattern,
		Flags:       rank.StaticFlags(rank.DefaultFlags()),
	}
}

// IndexOption is a functional option for configuring an Index.
type IndexOption func(*IndexOptions)

// WithWordPattern sets the pattern used to split fragments into words.
func WithWordPattern(re *regexp.Regexp) IndexOption {
	return func(o *IndexOptions) {
		o.WordPattern = re
	}
}

// WithClassifier shares a classifier (and its match cache) with the index.
func WithClassifier(c *classify.Classifier) IndexOption {
	return func(o *IndexOptions) {
		o.Classifier = c
	}
}

// WithFlags sets where scoring flags are read from on every query.
func WithFlags(src rank.FlagSource) IndexOption {
	return func(o *IndexOptions) {
		o.Flags = src
	}
}

// IndexStats summarizes the index contents.
type IndexStats struct {
	Buffers int
	Lines   int
	Symbols int
}

// Index is the registry of per-buffer symbol indexes.
//
// Index is safe for concurrent use: a splice is applied under the write lock
// so queries never see a half-updated buffer. Recomputes for the same buffer
// must still be issued in edit order by the caller.
type Index struct {
	mu      sync.RWMutex
	buffers map[completion.BufferID]*bufferLines
	// order keeps iteration over all buffers deterministic
	order []completion.BufferID

	options IndexOptions
}

// NewIndex creates an empty index.
func NewIndex(opts ...IndexOption) *Index {
	options := DefaultIndexOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.WordPattern == nil {
		options.WordPattern = DefaultWordPattern
	}
	if options.Classifier == nil {
		options.Classifier = classify.New(classify.DefaultCacheSize)
	}
	if options.Flags == nil {
		options.Flags = rank.StaticFlags(rank.DefaultFlags())
	}

	return &Index{
		buffers: make(map[completion.BufferID]*bufferLines),
		options: options,
	}
}

// Classifier returns the classifier used by queries.
func (idx *Index) Classifier() *classify.Classifier {
	return idx.options.Classifier
}

// Open starts tracking a buffer with zero lines. Opening a tracked buffer is
// a no-op.
func (idx *Index) Open(id completion.BufferID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.buffers[id]; ok {
		return
	}
	idx.buffers[id] = &bufferLines{}
	idx.order = append(idx.order, id)
	log.Debugf("symbols: tracking buffer %s", id)
}

// Close stops tracking a buffer and drops its symbols.
func (idx *Index) Close(id completion.BufferID) {
	idx.Clear(id)
}

// Clear drops the given buffers, or every buffer when called without ids.
func (idx *Index) Clear(ids ...completion.BufferID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(ids) == 0 {
		idx.buffers = make(map[completion.BufferID]*bufferLines)
		idx.order = nil
		return
	}
	for _, id := range ids {
		if _, ok := idx.buffers[id]; !ok {
			continue
		}
		delete(idx.buffers, id)
		idx.order = slices.DeleteFunc(idx.order, func(o completion.BufferID) bool { return o == id })
		log.Debugf("symbols: dropped buffer %s", id)
	}
}

// Tracked reports whether id is open.
func (idx *Index) Tracked(id completion.BufferID) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.buffers[id]
	return ok
}

// LineCount returns the number of indexed lines of a buffer.
func (idx *Index) LineCount(id completion.BufferID) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	bl, ok := idx.buffers[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrBufferNotTracked, id)
	}
	return len(bl.lines), nil
}

// Stats counts tracked buffers, lines and symbols.
func (idx *Index) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := IndexStats{Buffers: len(idx.buffers)}
	for _, bl := range idx.buffers {
		stats.Lines += len(bl.lines)
		for _, bucket := range bl.lines {
			for _, syms := range bucket {
				stats.Symbols += len(syms)
			}
		}
	}
	return stats
}

// RecomputeRange replaces the oldLineCount buckets at lineStart with
// newLineCount buckets built from src. Lines src has no output for yet get an
// empty bucket so line numbers stay aligned; a later recompute fills them.
//
// The range must fit the currently indexed lines. On error the index is left
// unchanged.
func (idx *Index) RecomputeRange(id completion.BufferID, lineStart, oldLineCount, newLineCount int, src completion.TokenSource) error {
	if lineStart < 0 || oldLineCount < 0 || newLineCount < 0 {
		log.Errorf("symbols: negative recompute range start=%d old=%d new=%d", lineStart, oldLineCount, newLineCount)
		return fmt.Errorf("%w: start=%d old=%d new=%d", ErrRangeOutOfBounds, lineStart, oldLineCount, newLineCount)
	}

	fresh := make([]lineBucket, newLineCount)
	pending := 0
	for i := range newLineCount {
		frags, ok := src.LineFragments(lineStart + i)
		if !ok {
			pending++
			fresh[i] = lineBucket{}
			continue
		}
		fresh[i] = idx.buildBucket(frags)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	bl, ok := idx.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBufferNotTracked, id)
	}
	if lineStart+oldLineCount > len(bl.lines) {
		log.Errorf("symbols: recompute range [%d,%d) exceeds %d indexed lines of %s",
			lineStart, lineStart+oldLineCount, len(bl.lines), id)
		return fmt.Errorf("%w: [%d,%d) with %d lines", ErrRangeOutOfBounds, lineStart, lineStart+oldLineCount, len(bl.lines))
	}

	bl.lines = slices.Replace(bl.lines, lineStart, lineStart+oldLineCount, fresh...)
	if pending > 0 {
		log.Debugf("symbols: %d of %d lines not tokenized yet in %s", pending, newLineCount, id)
	}
	return nil
}

// buildBucket scans the fragments of one line for words.
func (idx *Index) buildBucket(frags []completion.Fragment) lineBucket {
	bucket := lineBucket{}
	for _, frag := range frags {
		for _, word := range idx.options.WordPattern.FindAllString(frag.Text, -1) {
			key := utils.FoldRune(utils.FirstRune(word))
			bucket[key] = append(bucket[key], Symbol{Text: word, ScopeChain: frag.ScopeChain})
		}
	}
	return bucket
}
