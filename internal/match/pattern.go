// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match decides whether a paper qualifies for a query. A keyword
// setting is either a list of plain phrases or one boolean
// expression such as "(cancer or tumo*r) and not mouse".
package match

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ErrInvalidExpression is returned when a boolean keyword expression cannot
// be compiled or evaluated.
var ErrInvalidExpression = errors.New("invalid expression")

type tokenKind int

const (
	tokLeaf tokenKind = iota
	tokOpen
	tokClose
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind tokenKind
	text string
	leaf int
}

// Pattern matches text against one keyword setting.
type Pattern struct {
	terms   []string
	regexes []*regexp.Regexp
	tokens  []token
	program *vm.Program
}

// IsExpression reports whether keywords holds a boolean expression rather than
// a plain phrase list: a single value that starts with "(" and contains an
// and, or or not standing between spaces or parentheses.
func IsExpression(keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	s := strings.TrimSpace(keywords[0])
	if !strings.HasPrefix(s, "(") {
		return false
	}
	for _, tok := range tokenize(s) {
		if tok.kind != tokLeaf && tok.kind != tokOpen && tok.kind != tokClose {
			return true
		}
	}
	return false
}

// tokenize splits an expression into parentheses, operators and leaf terms.
// Operators are recognized only as separate words, so "rock-and-roll" stays
// one term. Consecutive words of a term are joined by one space.
func tokenize(s string) []token {
	s = strings.NewReplacer("(", " ( ", ")", " ) ").Replace(s)
	var (
		out  []token
		leaf []string
	)
	flush := func() {
		if len(leaf) > 0 {
			out = append(out, token{kind: tokLeaf, text: strings.Join(leaf, " ")})
			leaf = nil
		}
	}
	for _, field := range strings.Fields(s) {
		kind := tokLeaf
		switch strings.ToLower(field) {
		case "(":
			kind = tokOpen
		case ")":
			kind = tokClose
		case "and":
			kind = tokAnd
		case "or":
			kind = tokOr
		case "not":
			kind = tokNot
		}
		if kind == tokLeaf {
			leaf = append(leaf, field)
			continue
		}
		flush()
		out = append(out, token{kind: kind, text: field})
	}
	flush()
	return out
}

// ParseSetting splits a user-entered keyword value. A boolean expression is
// kept whole; anything else is split on commas.
func ParseSetting(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if IsExpression([]string{value}) {
		return []string{value}
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Compile builds a Pattern from keywords. An empty list yields a pattern that
// matches nothing.
func Compile(keywords []string) (*Pattern, error) {
	if IsExpression(keywords) {
		return compileExpression(strings.TrimSpace(keywords[0]))
	}

	p := &Pattern{}
	for _, phrase := range keywords {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		re, err := phraseRegexp(phrase, false)
		if err != nil {
			return nil, fmt.Errorf("compiling keyword %q: %w", phrase, err)
		}
		p.terms = append(p.terms, phrase)
		p.regexes = append(p.regexes, re)
	}
	return p, nil
}

func compileExpression(s string) (*Pattern, error) {
	p := &Pattern{}
	var code []string

	for _, tok := range tokenize(s) {
		switch tok.kind {
		case tokLeaf:
			re, err := phraseRegexp(tok.text, true)
			if err != nil {
				return nil, fmt.Errorf("%w: term %q: %v", ErrInvalidExpression, tok.text, err)
			}
			tok.leaf = len(p.terms)
			p.terms = append(p.terms, tok.text)
			p.regexes = append(p.regexes, re)
			code = append(code, placeholder(tok.leaf))
		case tokOpen:
			code = append(code, "(")
		case tokClose:
			code = append(code, ")")
		case tokAnd:
			code = append(code, "&&")
		case tokOr:
			code = append(code, "||")
		case tokNot:
			code = append(code, "!")
		}
		p.tokens = append(p.tokens, tok)
	}

	program, err := expr.Compile(strings.Join(code, " "), expr.Env(p.env("")), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, s, err)
	}
	p.program = program
	return p, nil
}

func placeholder(i int) string {
	return fmt.Sprintf("word%d", i)
}

// phraseRegexp compiles a whole-word, case-insensitive regexp for one term.
// Dots separate segments that may be written with a dot, hyphen, space or
// nothing in between ("ST3GAL.2" also finds "ST3GAL2"). With wildcard set,
// "*" stands for any run of word characters. A term that starts or ends with
// punctuation, such as "C++", is bounded by a non-word character or the
// text edge on that side instead of \b.
func phraseRegexp(term string, wildcard bool) (*regexp.Regexp, error) {
	segments := strings.Split(term, ".")
	quoted := make([]string, 0, len(segments))
	for _, seg := range segments {
		q := regexp.QuoteMeta(seg)
		if wildcard {
			q = strings.ReplaceAll(q, `\*`, `\w*`)
		}
		quoted = append(quoted, q)
	}

	head, tail := `\b`, `\b`
	if r, _ := utf8.DecodeRuneInString(term); !isWordRune(r, wildcard) {
		head = `(?:^|\W)`
	}
	if r, _ := utf8.DecodeLastRuneInString(term); !isWordRune(r, wildcard) {
		tail = `(?:\W|$)`
	}
	return regexp.Compile(`(?i)` + head + strings.Join(quoted, `[.\-\s]?`) + tail)
}

func isWordRune(r rune, wildcard bool) bool {
	switch {
	case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return true
	}
	return wildcard && r == '*'
}

func (p *Pattern) env(text string) map[string]interface{} {
	env := make(map[string]interface{}, len(p.regexes))
	for i, re := range p.regexes {
		env[placeholder(i)] = text != "" && re.MatchString(text)
	}
	return env
}

// IsExpression reports whether p was compiled from a boolean expression.
func (p *Pattern) IsExpression() bool {
	return p.program != nil
}

// Terms returns the phrases or expression leaf terms in order.
func (p *Pattern) Terms() []string {
	return append([]string(nil), p.terms...)
}

// Eval matches text. Plain lists match when any phrase occurs; expressions
// are evaluated with each leaf bound to its own match result.
func (p *Pattern) Eval(text string) (bool, error) {
	if p.program == nil {
		for _, re := range p.regexes {
			if re.MatchString(text) {
				return true, nil
			}
		}
		return false, nil
	}

	out, err := expr.Run(p.program, p.env(text))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: result %v is not boolean", ErrInvalidExpression, out)
	}
	return b, nil
}

// Match is Eval with evaluation failures reported as no match.
func (p *Pattern) Match(text string) bool {
	ok, err := p.Eval(text)
	return err == nil && ok
}

// Validate compiles keywords and evaluates them against the empty string.
func Validate(keywords []string) error {
	p, err := Compile(keywords)
	if err != nil {
		if errors.Is(err, ErrInvalidExpression) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	if _, err := p.Eval(""); err != nil {
		return err
	}
	return nil
}
