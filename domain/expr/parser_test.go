package expr

import (
	"context"
	"strings"
	"testing"
)

// memResolver does case-insensitive substring matching over a fixed proxy
// list, the same probe the production proxy store runs.
type memResolver struct {
	proxies []ProxyInfo
}

func (r *memResolver) FindByText(_ context.Context, fragment string) ([]ProxyInfo, error) {
	needle := strings.ToLower(fragment)
	var out []ProxyInfo
	for _, p := range r.proxies {
		term := strings.ToLower(p.Term)
		if strings.Contains(term, needle) || strings.Contains(needle, term) {
			out = append(out, p)
		}
	}
	return out, nil
}

func testResolver() *memResolver {
	return &memResolver{proxies: []ProxyInfo{
		{ID: 1, Term: "X", VariableID: 10, VariableName: "VarX"},
		{ID: 2, Term: "Y", VariableID: 10, VariableName: "VarX"},
		{ID: 3, Term: "Z", VariableID: 11, VariableName: "VarZ"},
		{ID: 4, Term: "W", VariableID: 11, VariableName: "VarZ"},
		{ID: 5, Term: "mercados campesinos", VariableID: 12, VariableName: "Mercados"},
		{ID: 6, Term: "mercados", VariableID: 12, VariableName: "Mercados"},
	}}
}

func mustParse(t *testing.T, input string) *ParseResult {
	t.Helper()
	res, err := NewParser(testResolver(), 0).Parse(context.Background(), input)
	if err != nil {
		t.Fatalf("parse %q failed: %v", input, err)
	}
	return res
}

func TestParsePrecedenceAndBindsTighter(t *testing.T) {
	res := mustParse(t, `"X" OR "Y" AND "Z"`)
	want := Or(Proxy(1), And(Proxy(2), Proxy(3)))
	if !res.Tree.Equal(want) {
		t.Errorf("precedence wrong: AND must bind tighter than OR")
	}
}

func TestParseGrouping(t *testing.T) {
	tests := []struct {
		input string
		want  *Node
	}{
		{`("X" AND "Y") OR "Z"`, Or(And(Proxy(1), Proxy(2)), Proxy(3))},
		{`"X" AND ("Y" OR "Z")`, And(Proxy(1), Or(Proxy(2), Proxy(3)))},
		{`(("X" OR "Y") AND ("Z" OR "W"))`, And(Or(Proxy(1), Proxy(2)), Or(Proxy(3), Proxy(4)))},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := mustParse(t, tt.input)
			if !res.Tree.Equal(tt.want) {
				got, _ := res.Tree.Encode()
				t.Errorf("parse %q = %s", tt.input, got)
			}
		})
	}
}

func TestParseWireFormatScenario(t *testing.T) {
	res := mustParse(t, `"X" OR "Y" OR ("Z" AND "W")`)
	data, err := res.Tree.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	want := `{"type":"OR","children":[{"type":"proxy","id":1},{"type":"proxy","id":2},{"type":"AND","children":[{"type":"proxy","id":3},{"type":"proxy","id":4}]}]}`
	if string(data) != want {
		t.Errorf("serialized tree mismatch:\n got %s\nwant %s", data, want)
	}
}

func TestParseNoSingleChildWrappers(t *testing.T) {
	res := mustParse(t, `((("X")))`)
	if !res.Tree.Equal(Proxy(1)) {
		t.Error("redundant parens must not produce wrapper nodes")
	}
	if !res.Tree.Normalize().Equal(res.Tree) {
		t.Error("parser output must already be normalized")
	}
}

func TestParseOperatorsCaseInsensitive(t *testing.T) {
	res := mustParse(t, `"X" or "Y" And "Z"`)
	want := Or(Proxy(1), And(Proxy(2), Proxy(3)))
	if !res.Tree.Equal(want) {
		t.Error("operators must be case-insensitive")
	}
}

func TestParseMatchedProxiesSideChannel(t *testing.T) {
	res := mustParse(t, `"X" AND "Z"`)
	if len(res.Matched) != 2 {
		t.Fatalf("matched = %d, want 2", len(res.Matched))
	}
	if res.Matched[0].ProxyID != 1 || res.Matched[0].VariableName != "VarX" {
		t.Errorf("first match = %+v", res.Matched[0])
	}
	if res.Matched[1].ProxyID != 3 || res.Matched[1].VariableName != "VarZ" {
		t.Errorf("second match = %+v", res.Matched[1])
	}
}

func TestParseAmbiguityTieBreak(t *testing.T) {
	// "mercados" matches both proxy 5 ("mercados campesinos") and proxy 6
	// ("mercados"); the shorter term wins and the pick is reported.
	res := mustParse(t, `"mercados"`)
	if !res.Tree.Equal(Proxy(6)) {
		t.Errorf("tie-break should pick shortest term, got %+v", res.Tree)
	}
	if len(res.Matched) != 1 || !res.Matched[0].Ambiguous {
		t.Errorf("ambiguous pick must be flagged: %+v", res.Matched)
	}
}

func TestParseUnknownProxyFailsAtomically(t *testing.T) {
	_, err := NewParser(testResolver(), 0).Parse(context.Background(), `"X" AND "no such term"`)
	if err == nil {
		t.Fatal("expected unknown proxy error")
	}
	if !IsUnknownProxy(err) {
		t.Fatalf("expected unknown-proxy error, got %v", err)
	}
	if e := err.(*Error); e.Fragment != "no such term" {
		t.Errorf("fragment = %q", e.Fragment)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ``},
		{"blank", `   `},
		{"unterminated quote", `"X" AND "Y`},
		{"unmatched open paren", `("X" AND "Y"`},
		{"unmatched close paren", `"X" AND "Y")`},
		{"trailing operand", `"X" "Y"`},
		{"leading operator", `AND "X"`},
		{"trailing operator", `"X" AND`},
		{"bare word", `"X" AND foo`},
		{"glued operator", `"X" ANDNOT "Y"`},
		{"empty parens", `()`},
		{"empty fragment", `""`},
	}
	parser := NewParser(testResolver(), 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(context.Background(), tt.input)
			if err == nil {
				t.Fatalf("expected syntax error for %q", tt.input)
			}
			if !IsSyntaxError(err) {
				t.Errorf("expected syntax error for %q, got %v", tt.input, err)
			}
		})
	}
}

func TestParseSyntaxErrorPosition(t *testing.T) {
	_, err := NewParser(testResolver(), 0).Parse(context.Background(), `"X" AND "Y") OR "Z"`)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	e, ok := err.(*Error)
	if !ok || e.Pos != 11 {
		t.Errorf("error should name the offending position 11, got %v", err)
	}
}

func TestParseDepthCap(t *testing.T) {
	input := strings.Repeat("(", 25) + `"X"` + strings.Repeat(")", 25)
	// Redundant parens collapse during parsing, so this stays within cap.
	if _, err := NewParser(testResolver(), 0).Parse(context.Background(), input); err != nil {
		t.Errorf("collapsed parens should not trip the cap: %v", err)
	}

	// Real alternating nesting beyond the cap is rejected.
	deep := `"X"`
	for i := 0; i < 25; i++ {
		op := "AND"
		if i%2 == 1 {
			op = "OR"
		}
		deep = `("Y" ` + op + ` ` + deep + `)`
	}
	_, err := NewParser(testResolver(), 20).Parse(context.Background(), deep)
	if err == nil {
		t.Fatal("expected depth cap rejection")
	}
	if !IsInvalidExpression(err) {
		t.Errorf("expected invalid-expression error, got %v", err)
	}
}
