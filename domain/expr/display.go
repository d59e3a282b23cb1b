package expr

import (
	"fmt"
	"strings"
)

// TermLookup resolves a proxy id to its search term for display rendering.
// ok=false marks a dangling reference, rendered as a placeholder.
type TermLookup func(proxyID int64) (term string, ok bool)

const displayTermLimit = 30

// Render builds the human-readable form of a tree, e.g.
// `"mercados" OR ("procesos" AND "planes")`. Long terms are truncated;
// nested groups are parenthesized; dangling references render as [Proxy N].
func Render(n *Node, lookup TermLookup) string {
	return renderNode(n, lookup, 0)
}

func renderNode(n *Node, lookup TermLookup, depth int) string {
	if n == nil {
		return "[?]"
	}
	switch n.Type {
	case NodeProxy:
		term, ok := lookup(n.ProxyID)
		if !ok {
			return fmt.Sprintf("[Proxy %d]", n.ProxyID)
		}
		if len(term) > displayTermLimit {
			term = term[:displayTermLimit] + "..."
		}
		return `"` + term + `"`
	case NodeAnd, NodeOr:
		parts := make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			parts = append(parts, renderNode(child, lookup, depth+1))
		}
		joined := strings.Join(parts, " "+string(n.Type)+" ")
		if depth > 0 {
			return "(" + joined + ")"
		}
		return joined
	default:
		return "[?]"
	}
}
