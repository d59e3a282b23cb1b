package expr

import (
	"context"
	"sync/atomic"
	"testing"
)

// vectorLookup serves match facts from a map; absent pairs report no data.
type vectorLookup map[int64]bool

func (v vectorLookup) Effective(_ context.Context, _ int64, proxyID int64) (bool, bool, error) {
	value, ok := v[proxyID]
	return value, ok, nil
}

func TestEvaluateAnd(t *testing.T) {
	tree := And(Proxy(1), Proxy(2), Proxy(3))
	tests := []struct {
		name   string
		vector vectorLookup
		want   bool
	}{
		{"all true", vectorLookup{1: true, 2: true, 3: true}, true},
		{"one false", vectorLookup{1: true, 2: false, 3: true}, false},
		{"all false", vectorLookup{1: false, 2: false, 3: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewEvaluator(tt.vector, 0).Evaluate(context.Background(), tree, 1)
			if err != nil {
				t.Fatalf("evaluate failed: %v", err)
			}
			if out.Value != tt.want {
				t.Errorf("value = %v, want %v", out.Value, tt.want)
			}
		})
	}
}

func TestEvaluateOr(t *testing.T) {
	tree := Or(Proxy(1), Proxy(2), Proxy(3))
	tests := []struct {
		name   string
		vector vectorLookup
		want   bool
	}{
		{"all false", vectorLookup{1: false, 2: false, 3: false}, false},
		{"one true", vectorLookup{1: false, 2: true, 3: false}, true},
		{"all true", vectorLookup{1: true, 2: true, 3: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewEvaluator(tt.vector, 0).Evaluate(context.Background(), tree, 1)
			if err != nil {
				t.Fatalf("evaluate failed: %v", err)
			}
			if out.Value != tt.want {
				t.Errorf("value = %v, want %v", out.Value, tt.want)
			}
		})
	}
}

func TestEvaluateScenarioContributingLeaves(t *testing.T) {
	// A=true, B=false, C=true, D=false; `A OR B OR (C AND D)` is true with
	// only A contributing: the false AND group reports no leaves.
	vector := vectorLookup{1: true, 2: false, 3: true, 4: false}
	tree := Or(Proxy(1), Proxy(2), And(Proxy(3), Proxy(4)))

	out, err := NewEvaluator(vector, 0).Evaluate(context.Background(), tree, 1)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !out.Value {
		t.Fatal("expected true")
	}
	if len(out.Contributing) != 1 || out.Contributing[0] != 1 {
		t.Errorf("contributing = %v, want [1]", out.Contributing)
	}
}

func TestEvaluateFalseNodeContributesNothing(t *testing.T) {
	vector := vectorLookup{1: true, 2: false}
	tree := And(Proxy(1), Proxy(2))

	out, err := NewEvaluator(vector, 0).Evaluate(context.Background(), tree, 1)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if out.Value {
		t.Fatal("expected false")
	}
	if len(out.Contributing) != 0 {
		t.Errorf("false result must report no contributing leaves, got %v", out.Contributing)
	}
}

func TestEvaluateMissingDataCoercesToFalse(t *testing.T) {
	// Proxy 9 has no match fact at all: the leaf coerces to false and the
	// outcome records that no data was found anywhere under it.
	out, err := NewEvaluator(vectorLookup{}, 0).Evaluate(context.Background(), Proxy(9), 1)
	if err != nil {
		t.Fatalf("missing data must not error: %v", err)
	}
	if out.Value {
		t.Error("missing data must evaluate false")
	}
	if out.DataFound {
		t.Error("outcome must flag that no match fact existed")
	}
}

func TestEvaluateDanglingReferenceMixedWithData(t *testing.T) {
	// Proxy 2 was deleted; the surviving leaf still drives the OR, and the
	// outcome counts as data-backed because one leaf had a fact.
	vector := vectorLookup{1: true}
	tree := Or(Proxy(1), Proxy(2))

	out, err := NewEvaluator(vector, 0).Evaluate(context.Background(), tree, 1)
	if err != nil {
		t.Fatalf("dangling reference must not error: %v", err)
	}
	if !out.Value || !out.DataFound {
		t.Errorf("outcome = %+v, want true with data found", out)
	}
}

func TestEvaluateRejectsMalformedTree(t *testing.T) {
	trees := map[string]*Node{
		"nil":       nil,
		"empty and": {Type: NodeAnd},
		"empty or":  {Type: NodeOr},
		"bad tag":   {Type: NodeType("XOR"), Children: []*Node{Proxy(1)}},
		"leaf kids": {Type: NodeProxy, ProxyID: 1, Children: []*Node{Proxy(2)}},
	}
	ev := NewEvaluator(vectorLookup{1: true}, 0)
	for name, tree := range trees {
		t.Run(name, func(t *testing.T) {
			_, err := ev.Evaluate(context.Background(), tree, 1)
			if err == nil {
				t.Fatal("malformed tree must error, never coerce to a boolean")
			}
			if !IsInvalidExpression(err) {
				t.Errorf("expected invalid-expression error, got %v", err)
			}
		})
	}
}

func TestBatchMemoizesPerTreeAndOrganization(t *testing.T) {
	var calls int64
	lookup := MatchLookupFunc(func(_ context.Context, _ int64, proxyID int64) (bool, bool, error) {
		atomic.AddInt64(&calls, 1)
		return proxyID%2 == 1, true, nil
	})

	tree := Or(Proxy(1), And(Proxy(2), Proxy(3)))
	batch := NewEvaluator(lookup, 0).NewBatch()
	ctx := context.Background()

	first, err := batch.Evaluate(ctx, tree, 42)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	callsAfterFirst := atomic.LoadInt64(&calls)

	// Same tree content, same organization: served from the memo.
	same := Or(Proxy(1), And(Proxy(2), Proxy(3)))
	second, err := batch.Evaluate(ctx, same, 42)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if atomic.LoadInt64(&calls) != callsAfterFirst {
		t.Error("memoized evaluation must not re-fetch matches within a batch")
	}
	if second.Value != first.Value {
		t.Error("memoized outcome differs")
	}

	// Different organization: matches fetched again.
	if _, err := batch.Evaluate(ctx, tree, 43); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if atomic.LoadInt64(&calls) == callsAfterFirst {
		t.Error("different organization must re-fetch matches")
	}

	// A fresh batch starts cold.
	fresh := NewEvaluator(lookup, 0).NewBatch()
	before := atomic.LoadInt64(&calls)
	if _, err := fresh.Evaluate(ctx, tree, 42); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if atomic.LoadInt64(&calls) == before {
		t.Error("nothing may be cached across batches")
	}
}

func TestRenderDisplay(t *testing.T) {
	terms := map[int64]string{
		1: "mercados campesinos",
		2: "procesos civiles con una descripcion larguisima de verdad",
	}
	lookup := func(id int64) (string, bool) {
		term, ok := terms[id]
		return term, ok
	}

	tree := Or(Proxy(1), And(Proxy(2), Proxy(3)))
	got := Render(tree, lookup)
	want := `"mercados campesinos" OR ("procesos civiles con una descr..." AND [Proxy 3])`
	if got != want {
		t.Errorf("render:\n got %s\nwant %s", got, want)
	}
}
