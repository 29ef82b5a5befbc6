// Package cli runs an interactive completion session over one file, for
// debugging rankings and tokenizers without an editor.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/symbolserve/internal/logger"
	"github.com/bastiangx/symbolserve/internal/utils"
	"github.com/bastiangx/symbolserve/pkg/server"
)

// InputHandler reads prefixes from the input and prints the suggestions the
// server returns for them. Lines starting with ':' are commands:
//
//	:engine subsequence   switch engine (symbols, subsequence, words)
//	:row 42               move the cursor, which drives the locality bonus
//	:limit 5              number of suggestions
//	:all                  toggle searching every open buffer
//	:stats                index and request counters
type InputHandler struct {
	srv    *server.Server
	in     io.Reader
	out    *log.Logger
	buffer string

	engine string
	row    int
	limit  int
	all    bool

	requestCount int
}

// NewInputHandler opens path in srv and prepares a session reading from in.
func NewInputHandler(ctx context.Context, srv *server.Server, path string, in io.Reader, out io.Writer, limit int) (*InputHandler, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	resp := srv.Handle(ctx, server.Request{ID: "open", Op: server.OpOpen, Path: path, Text: string(text)})
	open, ok := resp.(server.OpenResponse)
	if !ok {
		return nil, responseError(resp)
	}

	h := &InputHandler{
		srv:    srv,
		in:     in,
		out:    logger.NewWithWriter(out, ""),
		buffer: open.Buffer,
		limit:  limit,
	}
	h.out.Printf("Opened %s: %d lines, tokenizer %s", path, open.Lines, open.Tokenizer)
	return h, nil
}

// Start begins the interface loop. It returns nil when the input ends.
func (h *InputHandler) Start(ctx context.Context) error {
	h.out.Print("symbolserve try [BETA]")
	h.out.Print("type a prefix and press Enter to see the suggestions, :help for commands (Ctrl+C to exit):")
	reader := bufio.NewReader(h.in)

	for {
		h.out.Print("> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			h.handleInput(ctx, line)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (h *InputHandler) handleInput(ctx context.Context, line string) {
	if strings.HasPrefix(line, ":") {
		h.handleCommand(ctx, strings.Fields(line[1:]))
		return
	}
	h.requestCount++

	req := server.Request{
		ID:     strconv.Itoa(h.requestCount),
		Op:     server.OpComplete,
		Buffer: h.buffer,
		Row:    h.row,
		Prefix: line,
		Engine: h.engine,
		Limit:  h.limit,
		All:    &h.all,
	}
	start := time.Now()
	resp := h.srv.Handle(ctx, req)
	log.Debugf("Took [ %v ] for prefix '%s'", time.Since(start), line)

	cr, ok := resp.(server.CompletionResponse)
	if !ok {
		h.out.Errorf("%v", responseError(resp))
		return
	}
	if cr.Count == 0 {
		h.out.Warnf("No suggestions found for prefix: '%s'", line)
		return
	}

	h.out.Printf("Found %d suggestions for prefix '%s' in %sµs:", cr.Count, line, utils.FormatWithCommas(int(cr.TimeTaken)))
	for _, s := range cr.Suggestions {
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", s.Word)
		h.out.Printf("%2d. %-40s %-10s (score: %6.3f)", s.Rank, clWord, s.Type, s.Score)
	}
}

func (h *InputHandler) handleCommand(ctx context.Context, args []string) {
	if len(args) == 0 {
		return
	}
	switch args[0] {
	case "engine":
		if len(args) < 2 {
			h.out.Errorf("usage: :engine symbols|subsequence|words")
			return
		}
		h.engine = args[1]
	case "row":
		if n, err := intArg(args); err == nil {
			h.row = n
		} else {
			h.out.Errorf("usage: :row N")
		}
	case "limit":
		if n, err := intArg(args); err == nil {
			h.limit = n
		} else {
			h.out.Errorf("usage: :limit N")
		}
	case "all":
		h.all = !h.all
		h.out.Printf("search all buffers: %v", h.all)
	case "stats":
		st, ok := h.srv.Handle(ctx, server.Request{ID: "stats", Op: server.OpStats}).(server.StatsResponse)
		if !ok {
			return
		}
		h.out.Print("index", "buffers", st.Buffers, "lines", utils.FormatWithCommas(st.Lines),
			"symbols", utils.FormatWithCommas(st.Symbols), "words", utils.FormatWithCommas(st.Words))
		for k, v := range st.Requests {
			h.out.Print("requests", "op", k, "count", int(v))
		}
	case "help":
		h.out.Print(":engine NAME, :row N, :limit N, :all, :stats")
	default:
		h.out.Errorf("unknown command :%s", args[0])
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("missing argument")
	}
	return strconv.Atoi(args[1])
}

func responseError(resp any) error {
	if ce, ok := resp.(server.CompletionError); ok {
		return fmt.Errorf("%s (code %d)", ce.Error, ce.Code)
	}
	return fmt.Errorf("unexpected response %T", resp)
}
