package tokenize

import (
	"context"
	"strings"
	"unicode"

	"github.com/bastiangx/symbolserve/pkg/completion"
)

// declaration scopes assigned to the identifier following a keyword
const (
	scopeFunction = "entity.name.function"
	scopeClass    = "entity.name.class"
	scopeVariable = "variable.other"
	scopeKeyword  = "keyword.other"
	scopeString   = "string.quoted"
	scopeComment  = "comment.line"
)

var declarationKeywords = map[string]string{
	"func":      scopeFunction,
	"function":  scopeFunction,
	"def":       scopeFunction,
	"fn":        scopeFunction,
	"class":     scopeClass,
	"struct":    scopeClass,
	"interface": scopeClass,
	"type":      scopeClass,
	"trait":     scopeClass,
	"enum":      scopeClass,
	"var":       scopeVariable,
	"let":       scopeVariable,
	"const":     scopeVariable,
}

var otherKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "return": true,
	"import": true, "package": true, "from": true, "in": true, "range": true,
	"switch": true, "case": true, "break": true, "continue": true, "new": true,
	"pub": true, "mut": true, "impl": true, "use": true, "export": true,
}

func lineComments(lang Language) []string {
	switch lang {
	case LangPython, LangRuby, LangShell:
		return []string{"#"}
	case LangPlain:
		return nil
	}
	return []string{"//"}
}

// Plain is a line based tokenizer. Each line is tokenized on its own, so
// strings and comments spanning lines are not recognized.
type Plain struct {
	lang     Language
	root     string
	comments []string
}

// NewPlain creates a plain tokenizer for the language of path.
func NewPlain(path string) *Plain {
	lang := LanguageFromPath(path)
	return &Plain{lang: lang, root: RootScope(lang), comments: lineComments(lang)}
}

func (p *Plain) Name() string { return "plain:" + string(p.lang) }

// Tokenize implements Tokenizer.
func (p *Plain) Tokenize(ctx context.Context, lines []string, start, count int) ([][]completion.Fragment, error) {
	start, end := clampRange(lines, start, count)
	out := make([][]completion.Fragment, 0, end-start)
	for i := start; i < end; i++ {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out = append(out, p.TokenizeLine(lines[i]))
	}
	return out, nil
}

// TokenizeLine splits one line into identifier, string, comment and
// punctuation fragments.
func (p *Plain) TokenizeLine(line string) []completion.Fragment {
	runes := []rune(line)
	var frags []completion.Fragment
	emit := func(text string, inner string) {
		frags = append(frags, completion.Fragment{Text: text, ScopeChain: chain(p.root, inner)})
	}

	pending := ""
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case p.commentAt(runes, i):
			emit(string(runes[i:]), scopeComment)
			return frags

		case r == '"' || r == '\'' || r == '`':
			j := closingQuote(runes, i)
			emit(string(runes[i:j]), scopeString)
			pending = ""
			i = j

		case isIdentStart(r):
			j := i + 1
			for j < len(runes) && isIdentPart(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			switch {
			case declarationKeywords[word] != "":
				emit(word, scopeKeyword)
				pending = declarationKeywords[word]
			case otherKeywords[word]:
				emit(word, scopeKeyword)
				pending = ""
			default:
				emit(word, pending)
				pending = ""
			}
			i = j

		default:
			j := i + 1
			for j < len(runes) && !isIdentStart(runes[j]) && !isQuote(runes[j]) && !p.commentAt(runes, j) {
				j++
			}
			text := string(runes[i:j])
			if strings.TrimSpace(text) != "" {
				pending = ""
			}
			emit(text, "")
			i = j
		}
	}
	return frags
}

func (p *Plain) commentAt(runes []rune, i int) bool {
	for _, c := range p.comments {
		cr := []rune(c)
		if i+len(cr) <= len(runes) && string(runes[i:i+len(cr)]) == c {
			return true
		}
	}
	return false
}

// closingQuote returns the index just past the quote closing the one at i,
// or the end of the line.
func closingQuote(runes []rune, i int) int {
	q := runes[i]
	for j := i + 1; j < len(runes); j++ {
		switch runes[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return len(runes)
}

func isQuote(r rune) bool {
	return r == '"' || r == '\'' || r == '`'
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
