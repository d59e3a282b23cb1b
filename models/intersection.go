package models

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"vennqca/domain/core"
	"vennqca/domain/expr"
)

// IntersectionMode discriminates the three historical representations of an
// intersection's logic. Exactly one mode's data is authoritative per record;
// all three normalize to an expression tree before evaluation.
type IntersectionMode string

const (
	ModeVariable    IntersectionMode = "variable-based"
	ModeProxySimple IntersectionMode = "proxy-simple"
	ModeExpression  IntersectionMode = "expression"
)

// Operator is the single combinator of the flat legacy modes.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// ValidOperator reports whether op is AND or OR.
func ValidOperator(op Operator) bool {
	return op == OperatorAnd || op == OperatorOr
}

func (op Operator) nodeType() expr.NodeType {
	if op == OperatorAnd {
		return expr.NodeAnd
	}
	return expr.NodeOr
}

// Intersection is a named, persisted boolean query over proxies/variables.
// The mode discriminator says which group of fields is authoritative; the
// legacy flags mirror it on the wire for older consumers.
type Intersection struct {
	ID          int64            `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Description string           `db:"description" json:"description,omitempty"`
	Mode        IntersectionMode `db:"mode" json:"mode"`

	// Legacy compatibility booleans derived from Mode.
	UseProxies         bool `db:"use_proxies" json:"use_proxies"`
	UseLogicExpression bool `db:"use_logic_expression" json:"use_logic_expression"`

	// variable-based: variables combined with Operator; each variable
	// expands to its proxies per the configured policy.
	IncludeVariableIDs []int64 `json:"include_ids,omitempty"`

	// proxy-simple: flat proxy list combined with Operator.
	IncludeProxyIDs []int64 `json:"include_proxy_ids,omitempty"`

	// Operator applies to both legacy modes.
	Operator Operator `db:"operator" json:"operator,omitempty"`

	// expression: the persisted JSON tree document.
	LogicExpression json.RawMessage `db:"logic_expression" json:"logic_expression,omitempty"`

	// ExpressionDisplay is the human-readable rendering of whichever mode is
	// active, regenerated whenever the logic changes.
	ExpressionDisplay string `db:"expression_display" json:"expression_display,omitempty"`

	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// SyncModeFlags derives the legacy booleans and clears the fields of the
// modes that are not authoritative, so a mode change never leaves stale data
// behind.
func (in *Intersection) SyncModeFlags() {
	in.UseLogicExpression = in.Mode == ModeExpression
	in.UseProxies = in.Mode == ModeProxySimple
	switch in.Mode {
	case ModeExpression:
		in.IncludeVariableIDs = nil
		in.IncludeProxyIDs = nil
		in.Operator = ""
	case ModeProxySimple:
		in.IncludeVariableIDs = nil
		in.LogicExpression = nil
	case ModeVariable:
		in.IncludeProxyIDs = nil
		in.LogicExpression = nil
	}
}

// Spec materializes the authoritative mode as its explicit variant,
// validating that the mode's data is actually populated.
func (in *Intersection) Spec() (IntersectionSpec, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, core.ErrNameRequired
	}
	switch in.Mode {
	case ModeExpression:
		if len(in.LogicExpression) == 0 {
			return nil, core.ErrInvalidMode
		}
		return ExpressionSpec{Document: in.LogicExpression}, nil
	case ModeProxySimple:
		if len(in.IncludeProxyIDs) == 0 {
			return nil, core.ErrEmptyProxyList
		}
		if !ValidOperator(in.Operator) {
			return nil, core.ErrInvalidOperator
		}
		return ProxyListSpec{ProxyIDs: in.IncludeProxyIDs, Operator: in.Operator}, nil
	case ModeVariable:
		if len(in.IncludeVariableIDs) == 0 {
			return nil, core.ErrInvalidMode
		}
		if !ValidOperator(in.Operator) {
			return nil, core.ErrInvalidOperator
		}
		return VariableSpec{VariableIDs: in.IncludeVariableIDs, Operator: in.Operator}, nil
	default:
		return nil, core.ErrInvalidMode
	}
}

// NormalizeDeps carries what normalization needs from the surrounding
// system, so the variants stay testable without a database.
type NormalizeDeps struct {
	// ProxiesForVariable lists a variable's proxy ids in creation order.
	ProxiesForVariable func(ctx context.Context, variableID int64) ([]int64, error)
	// VariableOperator combines one variable's proxies (policy default OR:
	// proxies are alternative indicators of the same concept).
	VariableOperator Operator
	// MaxDepth caps the normalized tree; 0 selects the engine default.
	MaxDepth int
}

// IntersectionSpec is the explicit sum type over the three modes. Each
// variant carries only its relevant data and knows how to normalize itself
// into an expression tree.
type IntersectionSpec interface {
	Mode() IntersectionMode
	Normalize(ctx context.Context, deps NormalizeDeps) (*expr.Node, error)
}

// ExpressionSpec is full expression-tree mode.
type ExpressionSpec struct {
	Document []byte
}

func (ExpressionSpec) Mode() IntersectionMode { return ModeExpression }

func (s ExpressionSpec) Normalize(_ context.Context, deps NormalizeDeps) (*expr.Node, error) {
	tree, err := expr.Decode(s.Document, deps.MaxDepth)
	if err != nil {
		return nil, err
	}
	return tree.Normalize(), nil
}

// ProxyListSpec is flat proxy-list mode: a single AND/OR over proxy leaves.
type ProxyListSpec struct {
	ProxyIDs []int64
	Operator Operator
}

func (ProxyListSpec) Mode() IntersectionMode { return ModeProxySimple }

func (s ProxyListSpec) Normalize(_ context.Context, _ NormalizeDeps) (*expr.Node, error) {
	if len(s.ProxyIDs) == 0 {
		return nil, core.ErrEmptyProxyList
	}
	if !ValidOperator(s.Operator) {
		return nil, core.ErrInvalidOperator
	}
	children := make([]*expr.Node, 0, len(s.ProxyIDs))
	for _, id := range s.ProxyIDs {
		children = append(children, expr.Proxy(id))
	}
	node := &expr.Node{Type: s.Operator.nodeType(), Children: children}
	return node.Normalize(), nil
}

// VariableSpec is legacy variable-list mode: variables combined with the
// record's operator, each variable expanding to its proxies per policy.
type VariableSpec struct {
	VariableIDs []int64
	Operator    Operator
}

func (VariableSpec) Mode() IntersectionMode { return ModeVariable }

func (s VariableSpec) Normalize(ctx context.Context, deps NormalizeDeps) (*expr.Node, error) {
	if deps.ProxiesForVariable == nil {
		return nil, core.NewValidationError("normalize", "proxy lookup is required for variable mode")
	}
	perVariable := deps.VariableOperator
	if !ValidOperator(perVariable) {
		perVariable = OperatorOr
	}

	groups := make([]*expr.Node, 0, len(s.VariableIDs))
	for _, varID := range s.VariableIDs {
		proxyIDs, err := deps.ProxiesForVariable(ctx, varID)
		if err != nil {
			return nil, err
		}
		if len(proxyIDs) == 0 {
			return nil, core.NewValidationError("variable", "variable has no proxies to evaluate")
		}
		leaves := make([]*expr.Node, 0, len(proxyIDs))
		for _, id := range proxyIDs {
			leaves = append(leaves, expr.Proxy(id))
		}
		groups = append(groups, &expr.Node{Type: perVariable.nodeType(), Children: leaves})
	}
	node := &expr.Node{Type: s.Operator.nodeType(), Children: groups}
	return node.Normalize(), nil
}
