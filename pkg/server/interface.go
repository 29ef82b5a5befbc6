/*
Package server implements msgpack IPC for symbol completion.

The client writes a stream of msgpack encoded Request values to stdin and
reads exactly one response per request from stdout. Every request carries an
id, echoed back in the response, and an op naming the operation.

# Buffers

A buffer is opened with its path and full text. The path only picks the
tokenizer; the server never reads files.

	{"id": "1", "op": "open", "path": "main.go", "text": "package main\n..."}
	{"id": "1", "b": "5d1c...", "n": 12, "tok": "tree-sitter:go"}

Edits replace whole lines. start and old describe the replaced range of the
current text; lines is the new content.

	{"id": "2", "op": "change", "b": "5d1c...", "start": 3, "old": 1, "lines": ["func foo() {"]}

# Completion

A completion request names the buffer and the cursor. The prefix is taken
from the text left of the cursor unless p is given. Extra cursors are used to
suppress the word being typed.

	{"id": "3", "op": "complete", "b": "5d1c...", "row": 3, "col": 7, "l": 10}

Suggestions come back ordered, ranked from 1, with the match score and the
symbol type:

	{"id": "3", "p": "fo", "s": [{"w": "foo", "type": "function", "r": 1, "score": 7.2}], "c": 1, "t": 145}

t is the handling time in microseconds. The engine field selects symbols
(default), subsequence or words.

# Other operations

close, stats, reload and health complete the protocol. Failures are returned
as CompletionError with a 400, 404 or 500 code.
*/
package server

import "github.com/bastiangx/symbolserve/pkg/completion"

// Ops understood by the server.
const (
	OpOpen     = "open"
	OpChange   = "change"
	OpComplete = "complete"
	OpClose    = "close"
	OpStats    = "stats"
	OpReload   = "reload"
	OpHealth   = "health"
)

// Request is the envelope for every operation. Fields not used by an op are
// left empty.
type Request struct {
	ID string `msgpack:"id"`
	Op string `msgpack:"op"`

	// open
	Path string `msgpack:"path,omitempty"`
	Text string `msgpack:"text,omitempty"`

	// change, complete, close
	Buffer string `msgpack:"b,omitempty"`

	// change
	Start int      `msgpack:"start,omitempty"`
	Old   int      `msgpack:"old,omitempty"`
	Lines []string `msgpack:"lines,omitempty"`

	// complete
	Row     int                   `msgpack:"row,omitempty"`
	Col     int                   `msgpack:"col,omitempty"`
	Prefix  string                `msgpack:"p,omitempty"`
	Cursors []completion.Position `msgpack:"cursors,omitempty"`
	Engine  string                `msgpack:"engine,omitempty"`
	Limit   int                   `msgpack:"l,omitempty"`
	All     *bool                 `msgpack:"all,omitempty"`
}

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word      string  `msgpack:"w"`
	Display   string  `msgpack:"d,omitempty"`
	Type      string  `msgpack:"type,omitempty"`
	Snippet   bool    `msgpack:"snip,omitempty"`
	Rank      uint16  `msgpack:"r"`
	Score     float64 `msgpack:"score"`
	Positions []int   `msgpack:"m,omitempty"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Prefix      string                 `msgpack:"p"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
	TimeTaken   int64                  `msgpack:"t"`
}

// OpenResponse returns the handle of a newly opened buffer.
type OpenResponse struct {
	ID        string `msgpack:"id"`
	Buffer    string `msgpack:"b"`
	Lines     int    `msgpack:"n"`
	Tokenizer string `msgpack:"tok"`
}

// StatusResponse acknowledges change, close, reload and health.
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
	Lines  int    `msgpack:"n,omitempty"`
}

// StatsResponse reports index sizes and request counters.
type StatsResponse struct {
	ID         string             `msgpack:"id"`
	Buffers    int                `msgpack:"buffers"`
	Lines      int                `msgpack:"lines"`
	Symbols    int                `msgpack:"symbols"`
	Words      int                `msgpack:"words"`
	Requests   map[string]float64 `msgpack:"requests"`
	MatchCache map[string]int     `msgpack:"match_cache"`
	Uptime     int64              `msgpack:"uptime"`
}

// CompletionError holds basic error information for any failed request
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
