package expr

import (
	"context"
	"sync"

	"vennqca/domain/core"
)

// MatchLookup returns the effective match outcome for an (organization,
// proxy) pair: the human-corrected value when a verified correction exists,
// otherwise the raw matched value. ok reports whether any match fact exists;
// missing facts and dangling proxy references both come back ok=false and
// evaluate as not-found, never as an error.
type MatchLookup interface {
	Effective(ctx context.Context, orgID, proxyID int64) (value bool, ok bool, err error)
}

// MatchLookupFunc adapts a function to the MatchLookup interface.
type MatchLookupFunc func(ctx context.Context, orgID, proxyID int64) (bool, bool, error)

func (f MatchLookupFunc) Effective(ctx context.Context, orgID, proxyID int64) (bool, bool, error) {
	return f(ctx, orgID, proxyID)
}

// Outcome carries the boolean result plus the audit side channels.
type Outcome struct {
	// Value is the boolean evaluation result.
	Value bool
	// Contributing lists the proxy leaves that evaluated true and made the
	// result true. Empty when Value is false: a false node contributes nothing.
	Contributing []int64
	// DataFound reports whether at least one leaf had a match fact at all.
	// False means the result is a coercion of missing data, which the
	// truth-table presentation renders as unknown rather than 0.
	DataFound bool
}

// Evaluator reduces expression trees to per-organization outcomes.
// Evaluation is read-only and safe for concurrent use.
type Evaluator struct {
	lookup   MatchLookup
	maxDepth int
}

// NewEvaluator creates an evaluator. maxDepth <= 0 selects DefaultMaxDepth.
func NewEvaluator(lookup MatchLookup, maxDepth int) *Evaluator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Evaluator{lookup: lookup, maxDepth: maxDepth}
}

// Evaluate reduces the tree for one organization. Malformed trees return an
// invalid-expression error, never a silent boolean.
func (e *Evaluator) Evaluate(ctx context.Context, tree *Node, orgID int64) (*Outcome, error) {
	if tree == nil {
		return nil, invalidExpr("nil expression tree")
	}
	if err := tree.Validate(e.maxDepth); err != nil {
		return nil, err
	}
	return e.evalNode(ctx, tree, orgID)
}

func (e *Evaluator) evalNode(ctx context.Context, n *Node, orgID int64) (*Outcome, error) {
	switch n.Type {
	case NodeProxy:
		value, ok, err := e.lookup.Effective(ctx, orgID, n.ProxyID)
		if err != nil {
			return nil, err
		}
		out := &Outcome{Value: ok && value, DataFound: ok}
		if out.Value {
			out.Contributing = []int64{n.ProxyID}
		}
		return out, nil

	case NodeAnd:
		out := &Outcome{Value: true}
		var contributing []int64
		for _, child := range n.Children {
			co, err := e.evalNode(ctx, child, orgID)
			if err != nil {
				return nil, err
			}
			if !co.Value {
				out.Value = false
			}
			contributing = appendUnique(contributing, co.Contributing...)
			out.DataFound = out.DataFound || co.DataFound
		}
		// Only a true conjunction reports its leaves as contributing.
		if out.Value {
			out.Contributing = contributing
		}
		return out, nil

	case NodeOr:
		out := &Outcome{}
		for _, child := range n.Children {
			co, err := e.evalNode(ctx, child, orgID)
			if err != nil {
				return nil, err
			}
			if co.Value {
				out.Value = true
				out.Contributing = appendUnique(out.Contributing, co.Contributing...)
			}
			out.DataFound = out.DataFound || co.DataFound
		}
		return out, nil

	default:
		return nil, invalidExpr("unrecognized node type %q", n.Type)
	}
}

func appendUnique(ids []int64, more ...int64) []int64 {
	for _, id := range more {
		seen := false
		for _, existing := range ids {
			if existing == id {
				seen = true
				break
			}
		}
		if !seen {
			ids = append(ids, id)
		}
	}
	return ids
}

// Batch memoizes outcomes per (tree fingerprint, organization) for the
// duration of one export or bulk evaluation. Matches are re-fetched on the
// first evaluation of each pair within the batch; nothing is cached across
// batches, so corrections between runs always take effect.
type Batch struct {
	ID   core.BatchID
	eval *Evaluator

	mu       sync.Mutex
	memo     map[memoKey]*Outcome
	fpCache  map[*Node]core.TreeFingerprint
	lookups  int
	memoHits int
}

type memoKey struct {
	fp    core.TreeFingerprint
	orgID int64
}

// NewBatch starts a fresh memoization scope.
func (e *Evaluator) NewBatch() *Batch {
	return &Batch{
		ID:      core.NewBatchID(),
		eval:    e,
		memo:    make(map[memoKey]*Outcome),
		fpCache: make(map[*Node]core.TreeFingerprint),
	}
}

// Evaluate reduces the tree for one organization, reusing any outcome already
// computed for the same tree content and organization within this batch.
// Safe for concurrent use across organizations.
func (b *Batch) Evaluate(ctx context.Context, tree *Node, orgID int64) (*Outcome, error) {
	fp, err := b.fingerprint(tree)
	if err != nil {
		return nil, err
	}
	key := memoKey{fp: fp, orgID: orgID}

	b.mu.Lock()
	if out, ok := b.memo[key]; ok {
		b.memoHits++
		b.mu.Unlock()
		return out, nil
	}
	b.mu.Unlock()

	out, err := b.eval.Evaluate(ctx, tree, orgID)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.memo[key] = out
	b.lookups++
	b.mu.Unlock()
	return out, nil
}

func (b *Batch) fingerprint(tree *Node) (core.TreeFingerprint, error) {
	if tree == nil {
		return "", invalidExpr("nil expression tree")
	}
	b.mu.Lock()
	if fp, ok := b.fpCache[tree]; ok {
		b.mu.Unlock()
		return fp, nil
	}
	b.mu.Unlock()

	fp, err := tree.Fingerprint()
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.fpCache[tree] = fp
	b.mu.Unlock()
	return fp, nil
}

// Evaluations returns how many evaluations ran and how many were served from
// the memo, for logging at the end of an export.
func (b *Batch) Evaluations() (computed, memoized int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookups, b.memoHits
}
