package app

import (
	"context"
	"testing"
	"time"

	"vennqca/domain/expr"
	"vennqca/internal/testkit"
	"vennqca/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntersectionService(t *testing.T) (*IntersectionService, *testkit.Fixture) {
	t.Helper()
	f, err := testkit.Seed(context.Background())
	require.NoError(t, err)
	s := NewIntersectionService(
		f.Store.Intersections, f.Store.Variables, f.Store.Proxies, f.Store.Matches,
		models.OperatorOr, 0, time.Minute,
	)
	return s, f
}

func TestParsePreview(t *testing.T) {
	s, f := newIntersectionService(t)
	ctx := context.Background()

	preview, err := s.Parse(ctx, `"campesinos" AND "talleres"`)
	require.NoError(t, err)
	require.NotNil(t, preview.Tree)
	assert.Equal(t, expr.NodeAnd, preview.Tree.Type)
	assert.Equal(t, `"mercados campesinos" AND "talleres"`, preview.Display)

	require.Len(t, preview.Matched, 2)
	assert.Equal(t, f.Proxies[0].ID, preview.Matched[0].ProxyID)
	assert.Equal(t, f.VarMercados.Name, preview.Matched[0].VariableName)
	assert.False(t, preview.Matched[0].Ambiguous)
}

func TestParsePreviewReportsAmbiguity(t *testing.T) {
	s, _ := newIntersectionService(t)

	// "mercados" matches both fixture terms; the shorter term wins.
	preview, err := s.Parse(context.Background(), `"mercados"`)
	require.NoError(t, err)
	require.Len(t, preview.Matched, 1)
	assert.True(t, preview.Matched[0].Ambiguous)
	assert.Equal(t, "mercados", preview.Matched[0].Term)
}

func TestCreateFromExpressionText(t *testing.T) {
	s, _ := newIntersectionService(t)
	ctx := context.Background()

	in := &models.Intersection{Name: "Mercados y formación", IsActive: true}
	err := s.Create(ctx, in, `"campesinos" OR "formación"`)
	require.NoError(t, err)
	require.NotZero(t, in.ID)

	assert.Equal(t, models.ModeExpression, in.Mode)
	assert.True(t, in.UseLogicExpression)
	assert.False(t, in.UseProxies)
	assert.NotEmpty(t, in.LogicExpression)
	assert.Equal(t, `"mercados campesinos" OR "formación"`, in.ExpressionDisplay)
}

func TestCreateProxySimpleMode(t *testing.T) {
	s, f := newIntersectionService(t)
	ctx := context.Background()

	in := &models.Intersection{
		Name:            "Flat AND",
		Mode:            models.ModeProxySimple,
		IncludeProxyIDs: []int64{f.Proxies[0].ID, f.Proxies[2].ID},
		Operator:        models.OperatorAnd,
		IsActive:        true,
	}
	require.NoError(t, s.Create(ctx, in, ""))
	assert.True(t, in.UseProxies)
	assert.Equal(t, `"mercados campesinos" AND "formación"`, in.ExpressionDisplay)

	tree, err := s.NormalizedTree(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, expr.NodeAnd, tree.Type)
	assert.Len(t, tree.Children, 2)
}

func TestCreateVariableMode(t *testing.T) {
	s, f := newIntersectionService(t)
	ctx := context.Background()

	in := &models.Intersection{
		Name:               "Ambos conceptos",
		Mode:               models.ModeVariable,
		IncludeVariableIDs: []int64{f.VarMercados.ID, f.VarFormacion.ID},
		Operator:           models.OperatorAnd,
		IsActive:           true,
	}
	require.NoError(t, s.Create(ctx, in, ""))

	tree, err := s.NormalizedTree(ctx, in)
	require.NoError(t, err)
	require.Equal(t, expr.NodeAnd, tree.Type)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, expr.NodeOr, tree.Children[0].Type)
}

func TestCreateRejectsInvalidModeData(t *testing.T) {
	s, _ := newIntersectionService(t)
	ctx := context.Background()

	in := &models.Intersection{
		Name:     "Empty proxy list",
		Mode:     models.ModeProxySimple,
		Operator: models.OperatorAnd,
	}
	assert.Error(t, s.Create(ctx, in, ""))
}

func TestEvaluatePersistsResult(t *testing.T) {
	s, f := newIntersectionService(t)
	ctx := context.Background()
	org := f.Orgs[0]

	require.NoError(t, f.SetMatch(ctx, org.ID, f.Proxies[0].ID, true))
	require.NoError(t, f.SetMatch(ctx, org.ID, f.Proxies[2].ID, false))

	in := &models.Intersection{Name: "Mercados o formación", IsActive: true}
	require.NoError(t, s.Create(ctx, in, `"campesinos" OR "formación"`))

	result, err := s.Evaluate(ctx, in.ID, org.ID)
	require.NoError(t, err)
	assert.True(t, result.Value)
	assert.True(t, result.DataFound)
	assert.Equal(t, []int64{f.Proxies[0].ID}, result.MatchedProxyIDs)

	stored, err := s.Results(ctx, in.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Value)
	assert.False(t, stored[0].Stale)
}

func TestEvaluateMissingDataCoercesFalse(t *testing.T) {
	s, f := newIntersectionService(t)
	ctx := context.Background()

	in := &models.Intersection{Name: "Sin datos", IsActive: true}
	require.NoError(t, s.Create(ctx, in, `"campesinos"`))

	result, err := s.Evaluate(ctx, in.ID, f.Orgs[1].ID)
	require.NoError(t, err)
	assert.False(t, result.Value)
	assert.False(t, result.DataFound)
	assert.Empty(t, result.MatchedProxyIDs)
}

func TestEvaluateSurvivesDeletedProxy(t *testing.T) {
	s, f := newIntersectionService(t)
	ctx := context.Background()
	org := f.Orgs[0]

	require.NoError(t, f.SetMatch(ctx, org.ID, f.Proxies[2].ID, true))

	in := &models.Intersection{Name: "Con proxy borrado", IsActive: true}
	require.NoError(t, s.Create(ctx, in, `"campesinos" OR "formación"`))

	require.NoError(t, f.Store.Proxies.Delete(ctx, f.Proxies[0].ID))

	result, err := s.Evaluate(ctx, in.ID, org.ID)
	require.NoError(t, err)
	assert.True(t, result.Value, "remaining leaf still satisfies the OR")
	assert.Equal(t, []int64{f.Proxies[2].ID}, result.MatchedProxyIDs)
}

func TestUpdateFlagsResultsStale(t *testing.T) {
	s, f := newIntersectionService(t)
	ctx := context.Background()
	org := f.Orgs[0]

	require.NoError(t, f.SetMatch(ctx, org.ID, f.Proxies[0].ID, true))

	in := &models.Intersection{Name: "Cambiante", IsActive: true}
	require.NoError(t, s.Create(ctx, in, `"campesinos"`))
	_, err := s.Evaluate(ctx, in.ID, org.ID)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, in, `"formación"`))

	stored, err := s.Results(ctx, in.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Stale)
}

func TestModeChangeClearsStaleFields(t *testing.T) {
	s, f := newIntersectionService(t)
	ctx := context.Background()

	in := &models.Intersection{
		Name:            "Cambia de modo",
		Mode:            models.ModeProxySimple,
		IncludeProxyIDs: []int64{f.Proxies[0].ID},
		Operator:        models.OperatorOr,
		IsActive:        true,
	}
	require.NoError(t, s.Create(ctx, in, ""))

	require.NoError(t, s.Update(ctx, in, `"formación"`))
	assert.Equal(t, models.ModeExpression, in.Mode)
	assert.Nil(t, in.IncludeProxyIDs)
	assert.Empty(t, in.Operator)
	assert.Equal(t, `"formación"`, in.ExpressionDisplay)
}
