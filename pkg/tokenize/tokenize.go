/*
Package tokenize turns buffer lines into scope tagged fragments.

Two tokenizers are provided. Plain works everywhere and recognizes
declarations with a keyword heuristic. TreeSitter parses the whole buffer
with a real grammar and is only available in cgo builds.

Scopes follow the TextMate naming used by the default type configuration:

	source.go                 root scope of a Go file
	entity.name.function      name in a function declaration
	entity.name.class         name in a class, struct or type declaration
	variable.other            name in a variable declaration
	string.quoted             string literal
	comment.line              comment
*/
package tokenize

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/bastiangx/symbolserve/pkg/completion"
	"github.com/bastiangx/symbolserve/pkg/selector"
)

var (
	// ErrUnsupportedLanguage is returned when a tokenizer has no grammar for a file.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrTreeSitterUnavailable is returned by NewTreeSitter in builds without cgo.
	ErrTreeSitterUnavailable = errors.New("tree-sitter requires cgo")
)

// Tokenizer produces fragments for lines [start, start+count) of a buffer.
// lines holds the whole buffer so grammars that need context can parse it.
type Tokenizer interface {
	Tokenize(ctx context.Context, lines []string, start, count int) ([][]completion.Fragment, error)
	Name() string
}

// Language identifies the grammar used for a file.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangRust       Language = "rust"
	LangC          Language = "c"
	LangJava       Language = "java"
	LangRuby       Language = "ruby"
	LangShell      Language = "shell"
	LangPlain      Language = "plain"
)

var extensions = map[string]Language{
	".go":   LangGo,
	".py":   LangPython,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".rs":   LangRust,
	".c":    LangC,
	".h":    LangC,
	".cpp":  LangC,
	".java": LangJava,
	".rb":   LangRuby,
	".sh":   LangShell,
	".bash": LangShell,
}

// LanguageFromPath picks the language by file extension.
func LanguageFromPath(path string) Language {
	if lang, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return LangPlain
}

// RootScope returns the outermost scope for a language.
func RootScope(lang Language) string {
	switch lang {
	case LangPlain:
		return "text.plain"
	case LangJavaScript:
		return "source.js"
	case LangTypeScript:
		return "source.ts"
	case LangPython:
		return "source.python"
	case LangShell:
		return "source.shell"
	}
	return "source." + string(lang)
}

// chain builds a scope chain string from the root and inner scopes.
func chain(root string, inner ...string) string {
	scopes := make([]string, 0, len(inner)+1)
	scopes = append(scopes, root)
	for _, s := range inner {
		if s != "" {
			scopes = append(scopes, s)
		}
	}
	return selector.ChainString(scopes)
}

// clampRange bounds [start, start+count) to the line slice.
func clampRange(lines []string, start, count int) (int, int) {
	start = max(start, 0)
	end := min(start+count, len(lines))
	return start, max(end, start)
}
