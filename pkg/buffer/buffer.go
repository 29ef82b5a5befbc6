// Package buffer holds the text of an open document together with the
// tokenizer output for each line.
package buffer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/bastiangx/symbolserve/pkg/completion"
)

// ErrOutOfRange is returned for edits or positions outside the buffer.
var ErrOutOfRange = errors.New("position out of range")

// WordPatterns find the word around a cursor.
type WordPatterns struct {
	// LineEnd matches a word ending at the end of the text left of the cursor.
	LineEnd *regexp.Regexp
	// LineStart matches a word starting at the beginning of the text right of
	// the cursor.
	LineStart *regexp.Regexp
}

var (
	ASCIIPatterns = WordPatterns{
		LineEnd:   regexp.MustCompile(`\b\w*[a-zA-Z_-]+\w*$`),
		LineStart: regexp.MustCompile(`^\w*[a-zA-Z_-]+\w*\b`),
	}
	UnicodePatterns = WordPatterns{
		LineEnd:   regexp.MustCompile(`[\p{L}\d_]*[\p{L}_-]+[\p{L}\d_]*$`),
		LineStart: regexp.MustCompile(`^[\p{L}\d_]*[\p{L}_-]+[\p{L}\d_]*`),
	}
)

// Edit describes a completed line replacement.
type Edit struct {
	Start    int
	OldCount int
	NewCount int
	Removed  []string
}

// Buffer is a line based text document. It implements
// completion.TokenSource over the fragments set by the tokenizer.
type Buffer struct {
	mu        sync.RWMutex
	id        completion.BufferID
	path      string
	lines     []string
	fragments [][]completion.Fragment
	tokenized []bool
}

// New creates a buffer with a fresh id. Empty text still has one line.
func New(path, text string) *Buffer {
	lines := SplitLines(text)
	return &Buffer{
		id:        completion.NewBufferID(),
		path:      path,
		lines:     lines,
		fragments: make([][]completion.Fragment, len(lines)),
		tokenized: make([]bool, len(lines)),
	}
}

// SplitLines splits text on \n, dropping a trailing \r from each line.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func (b *Buffer) ID() completion.BufferID { return b.id }

func (b *Buffer) Path() string { return b.path }

func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Line returns the text of row, or "" when row is out of range.
func (b *Buffer) Line(row int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if row < 0 || row >= len(b.lines) {
		return ""
	}
	return b.lines[row]
}

// Lines returns a copy of rows [start, start+count).
func (b *Buffer) Lines(start, count int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	start = max(start, 0)
	end := min(start+count, len(b.lines))
	if start >= end {
		return nil
	}
	out := make([]string, end-start)
	copy(out, b.lines[start:end])
	return out
}

// Text joins all lines with \n.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return strings.Join(b.lines, "\n")
}

// Replace swaps oldCount lines at start for newLines. The replaced lines lose
// their tokenizer output until SetFragments is called for them.
func (b *Buffer) Replace(start, oldCount int, newLines []string) (Edit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if start < 0 || oldCount < 0 || start+oldCount > len(b.lines) {
		return Edit{}, fmt.Errorf("%w: replace [%d,%d) in %d lines", ErrOutOfRange, start, start+oldCount, len(b.lines))
	}

	removed := make([]string, oldCount)
	copy(removed, b.lines[start:start+oldCount])

	lines := make([]string, 0, len(b.lines)-oldCount+len(newLines))
	lines = append(lines, b.lines[:start]...)
	lines = append(lines, newLines...)
	lines = append(lines, b.lines[start+oldCount:]...)

	frags := make([][]completion.Fragment, 0, len(lines))
	frags = append(frags, b.fragments[:start]...)
	frags = append(frags, make([][]completion.Fragment, len(newLines))...)
	frags = append(frags, b.fragments[start+oldCount:]...)

	tok := make([]bool, 0, len(lines))
	tok = append(tok, b.tokenized[:start]...)
	tok = append(tok, make([]bool, len(newLines))...)
	tok = append(tok, b.tokenized[start+oldCount:]...)

	// a buffer always has at least one line
	if len(lines) == 0 {
		lines, frags, tok = []string{""}, make([][]completion.Fragment, 1), make([]bool, 1)
	}
	newCount := len(lines) - (len(b.lines) - oldCount)
	b.lines, b.fragments, b.tokenized = lines, frags, tok

	return Edit{Start: start, OldCount: oldCount, NewCount: newCount, Removed: removed}, nil
}

// SetFragments stores tokenizer output for rows starting at start.
func (b *Buffer) SetFragments(start int, frags [][]completion.Fragment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if start < 0 || start+len(frags) > len(b.lines) {
		return fmt.Errorf("%w: fragments [%d,%d) in %d lines", ErrOutOfRange, start, start+len(frags), len(b.lines))
	}
	for i, f := range frags {
		b.fragments[start+i] = f
		b.tokenized[start+i] = true
	}
	return nil
}

// LineFragments implements completion.TokenSource.
func (b *Buffer) LineFragments(line int) ([]completion.Fragment, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if line < 0 || line >= len(b.lines) || !b.tokenized[line] {
		return nil, false
	}
	return b.fragments[line], true
}

// ScopeChainAt returns the scope chain of the fragment covering the rune
// column col of row. Past the last fragment the last chain is used.
func (b *Buffer) ScopeChainAt(row, col int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if row < 0 || row >= len(b.lines) || !b.tokenized[row] {
		return ""
	}
	frags := b.fragments[row]
	offset := 0
	for _, f := range frags {
		offset += len([]rune(f.Text))
		if col < offset {
			return f.ScopeChain
		}
	}
	if len(frags) > 0 {
		return frags[len(frags)-1].ScopeChain
	}
	return ""
}

// PrefixAt returns the part of the word that ends at the cursor.
func (b *Buffer) PrefixAt(pos completion.Position, p WordPatterns) string {
	left, _ := b.split(pos)
	return p.LineEnd.FindString(left)
}

// WordAt returns the whole word the cursor is in, joining the word part left
// of the cursor with the word part right of it.
func (b *Buffer) WordAt(pos completion.Position, p WordPatterns) string {
	left, right := b.split(pos)
	return p.LineEnd.FindString(left) + p.LineStart.FindString(right)
}

// CursorCount returns how many of the cursors sit in word. The primary
// cursor counts once on its own; others count when their word equals it.
func (b *Buffer) CursorCount(word string, primary completion.Position, others []completion.Position, p WordPatterns) int {
	count := 1
	for _, c := range others {
		if c == primary {
			continue
		}
		if b.WordAt(c, p) == word {
			count++
		}
	}
	return count
}

func (b *Buffer) split(pos completion.Position) (left, right string) {
	line := []rune(b.Line(pos.Row))
	col := min(max(pos.Column, 0), len(line))
	return string(line[:col]), string(line[col:])
}
