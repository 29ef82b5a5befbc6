package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/symbolserve/internal/logger"
	"github.com/bastiangx/symbolserve/internal/utils"
	"github.com/bastiangx/symbolserve/pkg/buffer"
	"github.com/bastiangx/symbolserve/pkg/classify"
	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/config"
	"github.com/bastiangx/symbolserve/pkg/rank"
	"github.com/bastiangx/symbolserve/pkg/subseq"
	"github.com/bastiangx/symbolserve/pkg/symbols"
	"github.com/bastiangx/symbolserve/pkg/tokenize"
	"github.com/bastiangx/symbolserve/pkg/wordlist"
)

// ErrUnknownBuffer is returned for a buffer id the server has not opened.
var ErrUnknownBuffer = errors.New("unknown buffer")

// requestError carries the status code for a client mistake.
type requestError struct {
	code int
	msg  string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{code: 400, msg: fmt.Sprintf(format, args...)}
}

// Options tune a Server.
type Options struct {
	// TreeSitter parses buffers with tree-sitter when the language is
	// supported. Other buffers use the keyword tokenizer.
	TreeSitter bool
}

// document is an open buffer with its tokenizer.
type document struct {
	buf *buffer.Buffer
	tok tokenize.Tokenizer
}

// Server handles the IPC for symbol completions. Requests are handled one
// at a time.
type Server struct {
	mu sync.Mutex

	config     *config.Watcher
	classifier *classify.Classifier
	index      *symbols.Index
	subseq     *subseq.Engine
	words      *wordlist.List
	patterns   buffer.WordPatterns
	docs       map[completion.BufferID]*document

	options Options
	metrics *metrics
	started time.Time
	logger  *log.Logger

	reader io.Reader
	writer *bufio.Writer
}

// NewServer creates a completion server reading requests from r and writing
// responses to w. Word patterns follow the config at creation time.
func NewServer(cfg *config.Watcher, r io.Reader, w io.Writer, opts Options) *Server {
	c := cfg.Config()
	classifier := classify.New(classify.DefaultCacheSize)

	symbolPattern, listPattern, patterns := symbols.DefaultWordPattern, wordlist.DefaultPattern, buffer.ASCIIPatterns
	if c.Matching.ExtendedUnicode {
		symbolPattern, listPattern, patterns = symbols.UnicodeWordPattern, wordlist.UnicodePattern, buffer.UnicodePatterns
	}

	s := &Server{
		config:     cfg,
		classifier: classifier,
		index: symbols.NewIndex(
			symbols.WithWordPattern(symbolPattern),
			symbols.WithClassifier(classifier),
			symbols.WithFlags(cfg),
		),
		subseq: subseq.New(subseq.Options{
			MaxSearchRowDelta:   c.Matching.MaxSearchRowDelta,
			MaxResultsPerBuffer: c.Matching.MaxResultsPerBuffer,
			MaxSuggestions:      c.Server.MaxLimit,
			AdditionalWordChars: "_",
			Concurrency:         runtime.GOMAXPROCS(0),
		}, classifier, cfg),
		words: wordlist.New(
			wordlist.WithPattern(listPattern),
			wordlist.WithMinWordLength(c.Matching.MinWordLength),
		),
		patterns: patterns,
		docs:     make(map[completion.BufferID]*document),
		options:  opts,
		metrics:  newMetrics(),
		started:  time.Now(),
		logger:   logger.New("server"),
		reader:   r,
		writer:   bufio.NewWriter(w),
	}
	// selectors are rebuilt on reload, so old match results are useless
	cfg.OnReload(func(*config.Config) { classifier.Reset() })
	return s
}

// Start reads requests until the input ends or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting Server.")
	dec := msgpack.NewDecoder(bufio.NewReader(s.reader))

	for {
		if ctx.Err() != nil {
			return nil
		}
		// decode the raw value first so a request with bad field types does
		// not desync the stream
		var raw msgpack.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.logger.Errorf("Reading from stdin: %v", err)
			return fmt.Errorf("reading request: %w", err)
		}

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.logger.Errorf("Unmarshaling request: %v", err)
			s.metrics.observe("invalid", "error", 0)
			if err := s.send(CompletionError{Error: "Invalid msgpack request", Code: 400}); err != nil {
				return err
			}
			continue
		}
		if err := s.send(s.Handle(ctx, req)); err != nil {
			return err
		}
	}
}

func (s *Server) send(response any) error {
	if err := msgpack.NewEncoder(s.writer).Encode(response); err != nil {
		s.logger.Errorf("Marshaling response: %v", err)
		return err
	}
	return s.writer.Flush()
}

// Handle runs one request and returns its response value.
func (s *Server) Handle(ctx context.Context, req Request) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	resp, err := s.dispatch(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
		resp = s.errorResponse(req, err)
	}
	s.metrics.observe(opLabel(req.Op), status, time.Since(start).Seconds())
	return resp
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Op {
	case OpOpen:
		return s.open(ctx, req)
	case OpChange:
		return s.change(ctx, req)
	case OpComplete:
		return s.complete(ctx, req)
	case OpClose:
		return s.close(req)
	case OpStats:
		return s.stats(req), nil
	case OpReload:
		if err := s.config.Reload(); err != nil {
			return nil, fmt.Errorf("reloading config: %w", err)
		}
		return StatusResponse{ID: req.ID, Status: "ok"}, nil
	case OpHealth:
		return StatusResponse{ID: req.ID, Status: "ok"}, nil
	}
	return nil, badRequest("Unknown op: %s", req.Op)
}

func (s *Server) errorResponse(req Request, err error) CompletionError {
	code := 500
	var re *requestError
	switch {
	case errors.As(err, &re):
		code = re.code
	case errors.Is(err, ErrUnknownBuffer), errors.Is(err, symbols.ErrBufferNotTracked):
		code = 404
	case errors.Is(err, buffer.ErrOutOfRange), errors.Is(err, symbols.ErrRangeOutOfBounds):
		code = 400
	}
	if code == 500 {
		s.logger.Errorf("%s %s: %v", req.Op, req.ID, err)
	} else {
		s.logger.Debugf("%s %s: %v", req.Op, req.ID, err)
	}
	return CompletionError{ID: req.ID, Error: err.Error(), Code: code}
}

func opLabel(op string) string {
	switch op {
	case OpOpen, OpChange, OpComplete, OpClose, OpStats, OpReload, OpHealth:
		return op
	}
	return "unknown"
}

func (s *Server) doc(raw string) (*document, error) {
	if raw == "" {
		return nil, badRequest("Missing 'b' parameter")
	}
	id, err := completion.ParseBufferID(raw)
	if err != nil {
		return nil, badRequest("Invalid buffer id %q", raw)
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuffer, id)
	}
	return doc, nil
}

func (s *Server) tokenizerFor(path string) tokenize.Tokenizer {
	if s.options.TreeSitter {
		tok, err := tokenize.NewTreeSitter(path)
		if err == nil {
			return tok
		}
		s.logger.Debugf("No tree-sitter grammar for %q (%v), using keyword tokenizer", path, err)
	}
	return tokenize.NewPlain(path)
}

// retokenize refreshes the fragments of count lines at start.
func (s *Server) retokenize(ctx context.Context, doc *document, start, count int) error {
	if count == 0 {
		return nil
	}
	lines := doc.buf.Lines(0, doc.buf.LineCount())
	frags, err := doc.tok.Tokenize(ctx, lines, start, count)
	if err != nil {
		return fmt.Errorf("tokenizing %s: %w", doc.buf.ID(), err)
	}
	return doc.buf.SetFragments(start, frags)
}

func (s *Server) open(ctx context.Context, req Request) (any, error) {
	buf := buffer.New(req.Path, req.Text)
	doc := &document{buf: buf, tok: s.tokenizerFor(req.Path)}
	if err := s.retokenize(ctx, doc, 0, buf.LineCount()); err != nil {
		return nil, err
	}

	id := buf.ID()
	s.index.Open(id)
	if err := s.index.RecomputeRange(id, 0, 0, buf.LineCount(), buf); err != nil {
		s.index.Close(id)
		return nil, err
	}
	s.subseq.Watch(buf)
	s.words.AddText(req.Text)
	s.docs[id] = doc

	s.logger.Debugf("Opened %s (%s, %d lines) as %s", req.Path, doc.tok.Name(), buf.LineCount(), id)
	return OpenResponse{ID: req.ID, Buffer: id.String(), Lines: buf.LineCount(), Tokenizer: doc.tok.Name()}, nil
}

func (s *Server) change(ctx context.Context, req Request) (any, error) {
	doc, err := s.doc(req.Buffer)
	if err != nil {
		return nil, err
	}
	edit, err := doc.buf.Replace(req.Start, req.Old, req.Lines)
	if err != nil {
		return nil, err
	}
	if err := s.retokenize(ctx, doc, edit.Start, edit.NewCount); err != nil {
		return nil, err
	}
	if err := s.index.RecomputeRange(doc.buf.ID(), edit.Start, edit.OldCount, edit.NewCount, doc.buf); err != nil {
		return nil, err
	}
	s.words.RemoveText(strings.Join(edit.Removed, "\n"))
	s.words.AddText(strings.Join(req.Lines, "\n"))
	return StatusResponse{ID: req.ID, Status: "ok", Lines: doc.buf.LineCount()}, nil
}

func (s *Server) close(req Request) (any, error) {
	doc, err := s.doc(req.Buffer)
	if err != nil {
		return nil, err
	}
	id := doc.buf.ID()
	s.index.Close(id)
	s.subseq.Unwatch(id)
	s.words.RemoveText(doc.buf.Text())
	delete(s.docs, id)
	return StatusResponse{ID: req.ID, Status: "ok"}, nil
}

func (s *Server) stats(req Request) StatsResponse {
	st := s.index.Stats()
	return StatsResponse{
		ID:         req.ID,
		Buffers:    st.Buffers,
		Lines:      st.Lines,
		Symbols:    st.Symbols,
		Words:      s.words.Len(),
		Requests:   s.metrics.requestCounts(),
		MatchCache: s.classifier.Stats(),
		Uptime:     int64(time.Since(s.started).Seconds()),
	}
}

// complete validates the prefix, runs the selected engine and normalizes
// the result into ranked suggestions.
func (s *Server) complete(ctx context.Context, req Request) (any, error) {
	start := time.Now()
	doc, err := s.doc(req.Buffer)
	if err != nil {
		return nil, err
	}
	cfg := s.config.Config()

	pos := completion.Position{Row: req.Row, Column: req.Col}
	if pos.Row < 0 || pos.Row >= doc.buf.LineCount() {
		return nil, badRequest("Row %d outside buffer of %d lines", pos.Row, doc.buf.LineCount())
	}
	prefix := req.Prefix
	if prefix == "" {
		prefix = doc.buf.PrefixAt(pos, s.patterns)
	}
	resp := CompletionResponse{ID: req.ID, Prefix: prefix, Suggestions: []CompletionSuggestion{}}

	n := utf8.RuneCountInString(prefix)
	if n == 0 {
		return resp, nil
	}
	if n < cfg.Server.MinPrefix {
		return nil, badRequest("Prefix must be at least %d characters", cfg.Server.MinPrefix)
	}
	if n > cfg.Server.MaxPrefix {
		return nil, badRequest("Prefix exceeds maximum length of %d characters", cfg.Server.MaxPrefix)
	}
	if utf8.RuneCountInString(strings.TrimSpace(prefix)) < cfg.Matching.MinWordLength {
		return resp, nil
	}
	if cfg.Server.EnableFilter && !utils.IsValidInput(prefix) {
		log.Debugf("Filtered prefix %q", prefix)
		return resp, nil
	}

	limit := req.Limit
	if limit < 1 {
		limit = rank.DefaultMaxResults
	}
	limit = min(limit, cfg.Server.MaxLimit)

	all := cfg.Server.IncludeAllBuffers
	if req.All != nil {
		all = *req.All
	}
	var ids []completion.BufferID
	if !all {
		ids = []completion.BufferID{doc.buf.ID()}
	}

	word := doc.buf.WordAt(pos, s.patterns)
	cursorCount := doc.buf.CursorCount(word, pos, req.Cursors, s.patterns)
	types := s.config.Types()

	engine := req.Engine
	if engine == "" {
		engine = cfg.Server.Engine
	}
	var cands []completion.Candidate
	switch engine {
	case config.EngineSymbols:
		cands = s.index.Complete(symbols.Query{
			Config:          types,
			Buffers:         ids,
			Prefix:          prefix,
			WordUnderCursor: word,
			CursorLine:      pos.Row,
			CursorCount:     cursorCount,
		}, limit)
	case config.EngineSubsequence:
		cands, err = s.subseq.Suggest(ctx, subseq.Request{
			Config:          types,
			Buffers:         ids,
			Current:         doc.buf.ID(),
			Prefix:          prefix,
			WordUnderCursor: word,
			CursorLine:      pos.Row,
			CursorCount:     cursorCount,
		})
		if err != nil {
			return nil, err
		}
		cands = rank.Truncate(cands, limit)
	case config.EngineWords:
		var extra []string
		for _, sg := range types.StaticSuggestions() {
			extra = append(extra, sg.Text())
		}
		cands = rank.Finalize(s.words.Suggest(prefix, s.config.Flags(), extra), rank.InsertionOrder, limit)
	default:
		return nil, badRequest("Unknown engine: %s", engine)
	}

	ranks := utils.CreateRankList(len(cands))
	for i, c := range cands {
		resp.Suggestions = append(resp.Suggestions, CompletionSuggestion{
			Word:      c.Text(),
			Display:   c.DisplayText,
			Type:      c.Type,
			Snippet:   c.Kind == completion.KindSnippet,
			Rank:      ranks[i],
			Score:     c.Rank(),
			Positions: c.Positions,
		})
	}
	resp.Count = len(resp.Suggestions)
	resp.TimeTaken = time.Since(start).Microseconds()
	s.metrics.suggestions.WithLabelValues(engine).Observe(float64(resp.Count))
	return resp, nil
}
