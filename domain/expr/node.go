// Package expr implements the boolean intersection engine: the AND/OR/proxy
// expression tree, the textual expression parser that produces it, and the
// per-organization evaluator that reduces it against proxy match facts.
package expr

import (
	"encoding/json"
	"fmt"

	"vennqca/domain/core"
)

// NodeType tags the three expression tree variants.
type NodeType string

const (
	NodeProxy NodeType = "proxy"
	NodeAnd   NodeType = "AND"
	NodeOr    NodeType = "OR"
)

// DefaultMaxDepth bounds expression nesting. Deeper trees are rejected at
// parse and validation time to keep evaluation stack depth and persisted
// size bounded.
const DefaultMaxDepth = 20

// Node is one node of an expression tree. Proxy leaves carry ProxyID;
// AND/OR nodes carry an ordered, non-empty Children list.
type Node struct {
	Type     NodeType
	ProxyID  int64
	Children []*Node
}

// Proxy creates a leaf node referencing a proxy.
func Proxy(id int64) *Node {
	return &Node{Type: NodeProxy, ProxyID: id}
}

// And creates a conjunction node.
func And(children ...*Node) *Node {
	return &Node{Type: NodeAnd, Children: children}
}

// Or creates a disjunction node.
func Or(children ...*Node) *Node {
	return &Node{Type: NodeOr, Children: children}
}

// nodeJSON is the persisted wire form:
//
//	{"type":"proxy","id":7}
//	{"type":"AND","children":[...]}
//	{"type":"OR","children":[...]}
type nodeJSON struct {
	Type     string          `json:"type"`
	ID       *int64          `json:"id,omitempty"`
	Children json.RawMessage `json:"children,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Type {
	case NodeProxy:
		return json.Marshal(struct {
			Type string `json:"type"`
			ID   int64  `json:"id"`
		}{Type: string(NodeProxy), ID: n.ProxyID})
	case NodeAnd, NodeOr:
		return json.Marshal(struct {
			Type     string  `json:"type"`
			Children []*Node `json:"children"`
		}{Type: string(n.Type), Children: n.Children})
	default:
		return nil, invalidExpr("unrecognized node type %q", n.Type)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Unknown tags fail with an
// invalid-expression error rather than decoding into a half-formed node.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return &Error{Code: ErrInvalidExpression, Message: "malformed expression document", Pos: -1, Cause: err}
	}

	switch NodeType(raw.Type) {
	case NodeProxy:
		if raw.ID == nil {
			return invalidExpr("proxy node missing id")
		}
		n.Type = NodeProxy
		n.ProxyID = *raw.ID
		n.Children = nil
		return nil
	case NodeAnd, NodeOr:
		var children []*Node
		if len(raw.Children) > 0 {
			if err := json.Unmarshal(raw.Children, &children); err != nil {
				return &Error{Code: ErrInvalidExpression, Message: "malformed children list", Pos: -1, Cause: err}
			}
		}
		n.Type = NodeType(raw.Type)
		n.ProxyID = 0
		n.Children = children
		return nil
	default:
		return invalidExpr("unrecognized node type %q", raw.Type)
	}
}

// Decode parses a persisted expression document and validates it against the
// given depth cap (0 means DefaultMaxDepth).
func Decode(data []byte, maxDepth int) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	if err := n.Validate(maxDepth); err != nil {
		return nil, err
	}
	return &n, nil
}

// Encode serializes the tree to its persisted wire form.
func (n *Node) Encode() ([]byte, error) {
	return json.Marshal(n)
}

// Validate checks the structural invariants: known tags, non-empty children
// on operator nodes, leaf-only proxy nodes, and depth within the cap.
func (n *Node) Validate(maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return n.validate(1, maxDepth)
}

func (n *Node) validate(depth, maxDepth int) error {
	if n == nil {
		return invalidExpr("nil node")
	}
	if depth > maxDepth {
		return &Error{Code: ErrDepthExceeded, Message: fmt.Sprintf("expression deeper than %d levels", maxDepth), Pos: -1}
	}
	switch n.Type {
	case NodeProxy:
		if len(n.Children) > 0 {
			return invalidExpr("proxy node cannot have children")
		}
		return nil
	case NodeAnd, NodeOr:
		if len(n.Children) == 0 {
			return invalidExpr("%s node has no children", n.Type)
		}
		for _, child := range n.Children {
			if err := child.validate(depth+1, maxDepth); err != nil {
				return err
			}
		}
		return nil
	default:
		return invalidExpr("unrecognized node type %q", n.Type)
	}
}

// Depth returns the number of levels in the tree.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	max := 0
	for _, child := range n.Children {
		if d := child.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}

// Normalize collapses redundant single-child AND/OR wrappers so repeated
// wrapping cannot grow depth without bound. Idempotent; child order preserved.
func (n *Node) Normalize() *Node {
	if n == nil {
		return nil
	}
	if n.Type == NodeProxy {
		return n
	}
	children := make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		children = append(children, child.Normalize())
	}
	if len(children) == 1 {
		return children[0]
	}
	return &Node{Type: n.Type, Children: children}
}

// Equal reports structural equality, child order included.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Type != other.Type || n.ProxyID != other.ProxyID || len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// Leaves returns the proxy ids referenced by the tree, in expression order,
// duplicates included.
func (n *Node) Leaves() []int64 {
	var ids []int64
	n.walkLeaves(&ids)
	return ids
}

func (n *Node) walkLeaves(ids *[]int64) {
	if n == nil {
		return
	}
	if n.Type == NodeProxy {
		*ids = append(*ids, n.ProxyID)
		return
	}
	for _, child := range n.Children {
		child.walkLeaves(ids)
	}
}

// Fingerprint returns a content hash of the canonical serialized form.
// Structurally equal trees share a fingerprint, which is what batch
// memoization keys on.
func (n *Node) Fingerprint() (core.TreeFingerprint, error) {
	data, err := n.Encode()
	if err != nil {
		return "", err
	}
	return core.NewTreeFingerprint(data), nil
}
