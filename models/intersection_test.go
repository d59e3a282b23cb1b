package models

import (
	"context"
	"errors"
	"testing"

	"vennqca/domain/core"
	"vennqca/domain/expr"
)

func TestSpecSelectsAuthoritativeMode(t *testing.T) {
	in := &Intersection{
		Name:            "Prueba",
		Mode:            ModeProxySimple,
		IncludeProxyIDs: []int64{1, 2},
		Operator:        OperatorAnd,
	}
	spec, err := in.Spec()
	if err != nil {
		t.Fatalf("spec failed: %v", err)
	}
	if spec.Mode() != ModeProxySimple {
		t.Errorf("mode = %s", spec.Mode())
	}
}

func TestSpecRejectsInconsistentRecords(t *testing.T) {
	tests := []struct {
		name string
		in   Intersection
		want error
	}{
		{"no name", Intersection{Mode: ModeExpression, LogicExpression: []byte(`{}`)}, core.ErrNameRequired},
		{"expression without tree", Intersection{Name: "x", Mode: ModeExpression}, core.ErrInvalidMode},
		{"proxy mode without proxies", Intersection{Name: "x", Mode: ModeProxySimple, Operator: OperatorAnd}, core.ErrEmptyProxyList},
		{"proxy mode bad operator", Intersection{Name: "x", Mode: ModeProxySimple, IncludeProxyIDs: []int64{1}, Operator: "XOR"}, core.ErrInvalidOperator},
		{"variable mode without variables", Intersection{Name: "x", Mode: ModeVariable, Operator: OperatorOr}, core.ErrInvalidMode},
		{"unknown mode", Intersection{Name: "x", Mode: "legacy"}, core.ErrInvalidMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Spec()
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSyncModeFlagsClearsStaleFields(t *testing.T) {
	in := &Intersection{
		Name:               "Prueba",
		Mode:               ModeExpression,
		LogicExpression:    []byte(`{"type":"proxy","id":1}`),
		IncludeProxyIDs:    []int64{1, 2},
		IncludeVariableIDs: []int64{3},
		Operator:           OperatorAnd,
	}
	in.SyncModeFlags()

	if !in.UseLogicExpression || in.UseProxies {
		t.Errorf("flags = use_logic=%v use_proxies=%v", in.UseLogicExpression, in.UseProxies)
	}
	if in.IncludeProxyIDs != nil || in.IncludeVariableIDs != nil || in.Operator != "" {
		t.Error("mode change must clear the other modes' fields")
	}
}

func TestProxyListSpecNormalize(t *testing.T) {
	spec := ProxyListSpec{ProxyIDs: []int64{4, 5, 6}, Operator: OperatorOr}
	tree, err := spec.Normalize(context.Background(), NormalizeDeps{})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	want := expr.Or(expr.Proxy(4), expr.Proxy(5), expr.Proxy(6))
	if !tree.Equal(want) {
		t.Errorf("tree mismatch")
	}
}

func TestProxyListSpecSingleProxyCollapses(t *testing.T) {
	spec := ProxyListSpec{ProxyIDs: []int64{9}, Operator: OperatorAnd}
	tree, err := spec.Normalize(context.Background(), NormalizeDeps{})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if !tree.Equal(expr.Proxy(9)) {
		t.Error("single proxy must normalize to a bare leaf, not a one-child wrapper")
	}
}

func TestVariableSpecNormalizeDefaultsToOrWithinVariable(t *testing.T) {
	proxies := map[int64][]int64{
		10: {1, 2},
		11: {3},
	}
	deps := NormalizeDeps{
		ProxiesForVariable: func(_ context.Context, varID int64) ([]int64, error) {
			return proxies[varID], nil
		},
	}
	spec := VariableSpec{VariableIDs: []int64{10, 11}, Operator: OperatorAnd}
	tree, err := spec.Normalize(context.Background(), deps)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	// Variables combine with AND; within a variable proxies OR together; the
	// single-proxy variable collapses to its leaf.
	want := expr.And(expr.Or(expr.Proxy(1), expr.Proxy(2)), expr.Proxy(3))
	if !tree.Equal(want) {
		got, _ := tree.Encode()
		t.Errorf("tree = %s", got)
	}
}

func TestExpressionSpecNormalizeRejectsMalformedDocument(t *testing.T) {
	spec := ExpressionSpec{Document: []byte(`{"type":"AND","children":[]}`)}
	_, err := spec.Normalize(context.Background(), NormalizeDeps{})
	if !expr.IsInvalidExpression(err) {
		t.Errorf("expected invalid-expression error, got %v", err)
	}
}

func TestProxyMatchEffectiveValue(t *testing.T) {
	correctedTrue := true
	correctedFalse := false
	tests := []struct {
		name  string
		match ProxyMatch
		want  bool
	}{
		{"raw found", ProxyMatch{Found: true, Status: VerificationPending}, true},
		{"raw not found", ProxyMatch{Found: false, Status: VerificationPending}, false},
		{"rejected negates", ProxyMatch{Found: true, Status: VerificationRejected}, false},
		{"verified without correction keeps raw", ProxyMatch{Found: true, Status: VerificationVerified}, true},
		{"verified with correction overrides", ProxyMatch{Found: true, Status: VerificationVerified, CorrectedValue: &correctedFalse}, false},
		{"modified overrides", ProxyMatch{Found: false, Status: VerificationModified, CorrectedValue: &correctedTrue}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.match.EffectiveValue(); got != tt.want {
				t.Errorf("effective = %v, want %v", got, tt.want)
			}
		})
	}
}
