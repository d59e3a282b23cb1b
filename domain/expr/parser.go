package expr

import (
	"context"
	"sort"
	"strings"
)

// ProxyInfo is the view of a proxy the parser needs for text resolution.
type ProxyInfo struct {
	ID           int64
	Term         string
	VariableID   int64
	VariableName string
}

// ProxyResolver finds proxies whose search term matches a quoted fragment.
// Implementations do substring/fuzzy matching against all known proxy terms;
// the parser applies the deterministic tie-break when several match.
type ProxyResolver interface {
	FindByText(ctx context.Context, fragment string) ([]ProxyInfo, error)
}

// ResolvedProxy reports which proxy a quoted fragment resolved to, so the
// caller can show the resolution to the user for confirmation.
type ResolvedProxy struct {
	ProxyID      int64  `json:"proxy_id"`
	Fragment     string `json:"fragment"`
	Term         string `json:"term"`
	VariableName string `json:"variable"`
	// Ambiguous reports that more than one proxy matched the fragment and
	// the tie-break (shortest term, then lowest id) was applied.
	Ambiguous bool `json:"ambiguous"`
}

// ParseResult is the outcome of parsing a textual expression.
type ParseResult struct {
	Tree    *Node
	Matched []ResolvedProxy
}

// Parser converts strings such as `"A" OR "B" OR ("C" AND "D")` into
// expression trees, resolving quoted fragments through the injected resolver.
type Parser struct {
	resolver ProxyResolver
	maxDepth int
}

// NewParser creates a parser. maxDepth <= 0 selects DefaultMaxDepth.
func NewParser(resolver ProxyResolver, maxDepth int) *Parser {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Parser{resolver: resolver, maxDepth: maxDepth}
}

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenAnd
	tokenOr
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Parse tokenizes and parses the input. The whole parse fails atomically:
// either a validated tree plus the resolved proxy list comes back, or an
// error and nothing else.
func (p *Parser) Parse(ctx context.Context, input string) (*ParseResult, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, syntaxErrorf(0, "empty expression")
	}

	st := &parseState{parser: p, ctx: ctx, tokens: tokens}
	tree, pos, err := st.parseOr(0)
	if err != nil {
		return nil, err
	}
	if pos < len(tokens) {
		return nil, syntaxErrorf(tokens[pos].pos, "unexpected token %q after complete expression", tokens[pos].text)
	}
	if err := tree.Validate(p.maxDepth); err != nil {
		return nil, err
	}
	return &ParseResult{Tree: tree, Matched: st.matched}, nil
}

// tokenize scans left to right: double-quoted spans are TEXT tokens, bare
// AND/OR (case-insensitive) are operators, parentheses group. Anything else
// is a syntax error naming the offending position.
func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '"':
			j := i + 1
			for j < len(input) && input[j] != '"' {
				j++
			}
			if j >= len(input) {
				return nil, syntaxErrorf(i, "unterminated quote")
			}
			tokens = append(tokens, token{kind: tokenText, text: input[i+1 : j], pos: i})
			i = j + 1
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")", pos: i})
			i++
		default:
			j := i
			for j < len(input) && !isDelimiter(input[j]) {
				j++
			}
			word := input[i:j]
			switch strings.ToUpper(word) {
			case "AND":
				tokens = append(tokens, token{kind: tokenAnd, text: word, pos: i})
			case "OR":
				tokens = append(tokens, token{kind: tokenOr, text: word, pos: i})
			default:
				return nil, syntaxErrorf(i, "unexpected token %q", word)
			}
			i = j
		}
	}
	return tokens, nil
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '"', '(', ')':
		return true
	}
	return false
}

// parseState threads the token slice, the resolver context and the
// matched-proxies side channel through the recursive descent.
type parseState struct {
	parser  *Parser
	ctx     context.Context
	tokens  []token
	matched []ResolvedProxy
}

// Grammar:
//
//	Expr := OrExpr
//	OrExpr := AndExpr ("OR" AndExpr)*
//	AndExpr := Atom ("AND" Atom)*
//	Atom := TEXT | "(" Expr ")"
//
// Runs of one operand collapse to the operand itself, so no single-child
// wrapper nodes are ever built.
func (st *parseState) parseOr(pos int) (*Node, int, error) {
	left, pos, err := st.parseAnd(pos)
	if err != nil {
		return nil, pos, err
	}
	children := []*Node{left}
	for pos < len(st.tokens) && st.tokens[pos].kind == tokenOr {
		pos++
		right, next, err := st.parseAnd(pos)
		if err != nil {
			return nil, next, err
		}
		children = append(children, right)
		pos = next
	}
	if len(children) == 1 {
		return children[0], pos, nil
	}
	return Or(children...), pos, nil
}

func (st *parseState) parseAnd(pos int) (*Node, int, error) {
	left, pos, err := st.parseAtom(pos)
	if err != nil {
		return nil, pos, err
	}
	children := []*Node{left}
	for pos < len(st.tokens) && st.tokens[pos].kind == tokenAnd {
		pos++
		right, next, err := st.parseAtom(pos)
		if err != nil {
			return nil, next, err
		}
		children = append(children, right)
		pos = next
	}
	if len(children) == 1 {
		return children[0], pos, nil
	}
	return And(children...), pos, nil
}

func (st *parseState) parseAtom(pos int) (*Node, int, error) {
	if pos >= len(st.tokens) {
		return nil, pos, syntaxErrorf(endPos(st.tokens), "unexpected end of expression")
	}
	tok := st.tokens[pos]
	switch tok.kind {
	case tokenText:
		leaf, err := st.resolve(tok)
		if err != nil {
			return nil, pos, err
		}
		return leaf, pos + 1, nil
	case tokenLParen:
		inner, next, err := st.parseOr(pos + 1)
		if err != nil {
			return nil, next, err
		}
		if next >= len(st.tokens) || st.tokens[next].kind != tokenRParen {
			return nil, next, syntaxErrorf(tok.pos, "unmatched '('")
		}
		return inner, next + 1, nil
	default:
		return nil, pos, syntaxErrorf(tok.pos, "unexpected token %q", tok.text)
	}
}

// resolve maps a TEXT token to a proxy leaf. Zero candidates fail the whole
// parse; several candidates pick deterministically by shortest search term,
// then lowest id, and report the ambiguity through the side channel.
func (st *parseState) resolve(tok token) (*Node, error) {
	fragment := strings.TrimSpace(tok.text)
	if fragment == "" {
		return nil, syntaxErrorf(tok.pos, "empty text fragment")
	}

	candidates, err := st.parser.resolver.FindByText(st.ctx, fragment)
	if err != nil {
		return nil, &Error{Code: ErrUnknownProxy, Message: "proxy lookup failed", Pos: tok.pos, Fragment: fragment, Cause: err}
	}
	if len(candidates) == 0 {
		return nil, &Error{Code: ErrUnknownProxy, Message: "no proxy matches " + strconvQuote(fragment), Pos: tok.pos, Fragment: fragment}
	}

	ambiguous := len(candidates) > 1
	if ambiguous {
		sort.Slice(candidates, func(i, j int) bool {
			if len(candidates[i].Term) != len(candidates[j].Term) {
				return len(candidates[i].Term) < len(candidates[j].Term)
			}
			return candidates[i].ID < candidates[j].ID
		})
	}
	chosen := candidates[0]

	st.matched = append(st.matched, ResolvedProxy{
		ProxyID:      chosen.ID,
		Fragment:     fragment,
		Term:         chosen.Term,
		VariableName: chosen.VariableName,
		Ambiguous:    ambiguous,
	})
	return Proxy(chosen.ID), nil
}

func endPos(tokens []token) int {
	if len(tokens) == 0 {
		return 0
	}
	last := tokens[len(tokens)-1]
	return last.pos + len(last.text)
}

func strconvQuote(s string) string {
	return `"` + s + `"`
}
