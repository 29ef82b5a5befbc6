//go:build cgo

package tokenize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/bastiangx/symbolserve/pkg/completion"
)

// grammar describes which node types declare names for one language.
type grammar struct {
	language  *sitter.Language
	functions map[string]bool
	classes   map[string]bool
	variables map[string]bool
}

func set(types ...string) map[string]bool {
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

func getGrammar(lang Language) (*grammar, error) {
	switch lang {
	case LangGo:
		return &grammar{
			language:  golang.GetLanguage(),
			functions: set("function_declaration", "method_declaration", "method_spec"),
			classes:   set("type_spec", "type_alias"),
			variables: set("var_spec", "const_spec", "short_var_declaration", "parameter_declaration", "range_clause"),
		}, nil
	case LangJavaScript:
		return &grammar{
			language:  javascript.GetLanguage(),
			functions: set("function_declaration", "generator_function_declaration", "method_definition"),
			classes:   set("class_declaration"),
			variables: set("variable_declarator", "assignment_expression"),
		}, nil
	case LangTypeScript:
		return &grammar{
			language:  typescript.GetLanguage(),
			functions: set("function_declaration", "generator_function_declaration", "method_definition", "method_signature"),
			classes:   set("class_declaration", "interface_declaration", "type_alias_declaration", "enum_declaration"),
			variables: set("variable_declarator", "required_parameter", "optional_parameter"),
		}, nil
	case LangPython:
		return &grammar{
			language:  python.GetLanguage(),
			functions: set("function_definition"),
			classes:   set("class_definition"),
			variables: set("assignment", "parameters", "for_statement"),
		}, nil
	case LangRust:
		return &grammar{
			language:  rust.GetLanguage(),
			functions: set("function_item", "function_signature_item"),
			classes:   set("struct_item", "enum_item", "trait_item", "type_item"),
			variables: set("let_declaration", "parameter", "const_item", "static_item"),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
}

// IsTreeSitterAvailable reports whether this build can parse with tree-sitter.
func IsTreeSitterAvailable() bool { return true }

// TreeSitter tokenizes a buffer by parsing it with a tree-sitter grammar.
// Every leaf becomes a fragment; strings and comments are kept whole.
type TreeSitter struct {
	mu      sync.Mutex
	parser  *sitter.Parser
	grammar *grammar
	lang    Language
	root    string
}

// NewTreeSitter creates a tree-sitter tokenizer for the language of path.
func NewTreeSitter(path string) (Tokenizer, error) {
	lang := LanguageFromPath(path)
	g, err := getGrammar(lang)
	if err != nil {
		return nil, err
	}
	parser := sitter.NewParser()
	parser.SetLanguage(g.language)
	return &TreeSitter{parser: parser, grammar: g, lang: lang, root: RootScope(lang)}, nil
}

func (t *TreeSitter) Name() string { return "tree-sitter:" + string(t.lang) }

// leaf is a node slice confined to one row, byte columns.
type leaf struct {
	start, end int
	scope      string
}

// Tokenize implements Tokenizer. The whole buffer is parsed on every call.
func (t *TreeSitter) Tokenize(ctx context.Context, lines []string, start, count int) ([][]completion.Fragment, error) {
	start, end := clampRange(lines, start, count)
	source := []byte(strings.Join(lines, "\n"))

	t.mu.Lock()
	tree, err := t.parser.ParseCtx(ctx, nil, source)
	t.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	rows := make(map[int][]leaf, end-start)
	t.collect(tree.RootNode(), nil, start, end, lines, rows)

	out := make([][]completion.Fragment, 0, end-start)
	for row := start; row < end; row++ {
		out = append(out, t.fragments(lines[row], rows[row]))
	}
	return out, nil
}

// collect walks the tree and records leaves overlapping rows [start, end).
// meta holds the enclosing declaration scopes, outermost first.
func (t *TreeSitter) collect(n *sitter.Node, meta []string, start, end int, lines []string, rows map[int][]leaf) {
	sp, ep := n.StartPoint(), n.EndPoint()
	if int(ep.Row) < start || int(sp.Row) >= end {
		return
	}

	typ := n.Type()
	switch {
	case strings.Contains(typ, "comment"):
		t.addSpan(n, chainScopes(meta, scopeComment), start, end, lines, rows)
		return
	case isStringNode(typ):
		t.addSpan(n, chainScopes(meta, scopeString), start, end, lines, rows)
		return
	case n.ChildCount() == 0:
		t.addSpan(n, chainScopes(meta, t.scopeFor(n)), start, end, lines, rows)
		return
	}

	switch {
	case t.grammar.functions[typ]:
		meta = append(meta[:len(meta):len(meta)], "meta.function")
	case t.grammar.classes[typ]:
		meta = append(meta[:len(meta):len(meta)], "meta.class")
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil {
			t.collect(child, meta, start, end, lines, rows)
		}
	}
}

// addSpan splits a node over the rows it covers.
func (t *TreeSitter) addSpan(n *sitter.Node, scope string, start, end int, lines []string, rows map[int][]leaf) {
	sp, ep := n.StartPoint(), n.EndPoint()
	for row := max(int(sp.Row), start); row <= int(ep.Row) && row < end; row++ {
		from, to := 0, len(lines[row])
		if row == int(sp.Row) {
			from = int(sp.Column)
		}
		if row == int(ep.Row) {
			to = int(ep.Column)
		}
		to = min(to, len(lines[row]))
		if from >= to {
			continue
		}
		rows[row] = append(rows[row], leaf{start: from, end: to, scope: scope})
	}
}

// fragments fills the gaps between leaves with root scoped text.
func (t *TreeSitter) fragments(line string, leaves []leaf) []completion.Fragment {
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].start < leaves[j].start })

	var frags []completion.Fragment
	pos := 0
	for _, l := range leaves {
		if l.start < pos {
			continue
		}
		if l.start > pos {
			frags = append(frags, completion.Fragment{Text: line[pos:l.start], ScopeChain: chain(t.root)})
		}
		frags = append(frags, completion.Fragment{Text: line[l.start:l.end], ScopeChain: chain(t.root, strings.Fields(l.scope)...)})
		pos = l.end
	}
	if pos < len(line) {
		frags = append(frags, completion.Fragment{Text: line[pos:], ScopeChain: chain(t.root)})
	}
	return frags
}

// scopeFor classifies an identifier leaf by the declaration it names.
func (t *TreeSitter) scopeFor(n *sitter.Node) string {
	if !strings.HasSuffix(n.Type(), "identifier") {
		if n.IsNamed() {
			return ""
		}
		return scopeKeywordFor(n.Type())
	}
	parent := n.Parent()
	if parent == nil {
		return ""
	}
	field := fieldOf(parent, n)
	ptype := parent.Type()
	switch {
	case field == "name" && t.grammar.functions[ptype]:
		return scopeFunction
	case field == "name" && t.grammar.classes[ptype]:
		return scopeClass
	case t.grammar.variables[ptype] && field != "value" && field != "type" && field != "right":
		return scopeVariable
	}
	// identifiers in a declaration's name list, e.g. a, b := ...
	if gp := parent.Parent(); gp != nil && ptype == "expression_list" && t.grammar.variables[gp.Type()] && fieldOf(gp, parent) == "left" {
		return scopeVariable
	}
	return ""
}

// fieldOf returns the field name under which child hangs off parent.
func fieldOf(parent, child *sitter.Node) string {
	for i := 0; i < int(parent.ChildCount()); i++ {
		c := parent.Child(i)
		if c != nil && c.StartByte() == child.StartByte() && c.EndByte() == child.EndByte() {
			return parent.FieldNameForChild(i)
		}
	}
	return ""
}

func scopeKeywordFor(typ string) string {
	if typ == "" {
		return ""
	}
	for _, r := range typ {
		if !(r >= 'a' && r <= 'z') && r != '_' {
			return ""
		}
	}
	return scopeKeyword
}

func isStringNode(typ string) bool {
	switch typ {
	case "interpreted_string_literal", "raw_string_literal", "string", "template_string",
		"string_literal", "raw_string", "rune_literal", "char_literal":
		return true
	}
	return false
}

func chainScopes(meta []string, scope string) string {
	if scope == "" {
		return strings.Join(meta, " ")
	}
	return strings.Join(append(meta[:len(meta):len(meta)], scope), " ")
}
