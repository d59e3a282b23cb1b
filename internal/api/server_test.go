package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"vennqca/app"
	"vennqca/internal/testkit"
	"vennqca/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *testkit.Fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f, err := testkit.Seed(context.Background())
	require.NoError(t, err)

	intersections := app.NewIntersectionService(
		f.Store.Intersections, f.Store.Variables, f.Store.Proxies, f.Store.Matches,
		models.OperatorOr, 0, time.Minute,
	)
	s := NewServer(Deps{
		Variables:     f.Store.Variables,
		Proxies:       f.Store.Proxies,
		Organizations: f.Store.Organizations,
		Intersections: intersections,
		Matches:       app.NewMatchService(f.Store.Matches, f.Store.Proxies),
		TruthTable:    app.NewTruthTableService(f.Store.Organizations, intersections, 2),
	})
	return s, f
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func TestVariableCRUD(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/variables", gin.H{
		"name":        "Liderazgo Femenino",
		"code":        "LF",
		"description": "Presencia de **liderazgo femenino**",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID              int64  `json:"id"`
		DescriptionHTML string `json:"description_html"`
	}
	decode(t, w, &created)
	require.NotZero(t, created.ID)
	assert.Contains(t, created.DescriptionHTML, "<strong>liderazgo femenino</strong>")

	w = do(t, s, http.MethodPost, "/api/variables", gin.H{"name": "", "code": "X"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/variables/99999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProxySearch(t *testing.T) {
	s, f := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/proxies/search?q=campesinos", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Proxies []*models.Proxy `json:"proxies"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Proxies, 1)
	assert.Equal(t, f.Proxies[0].ID, resp.Proxies[0].ID)

	w = do(t, s, http.MethodGet, "/api/proxies/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProbeContent(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/proxies/probe", gin.H{
		"content": "Apoyamos mercados campesinos y talleres de oficio.",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Matches []struct {
			ProxyID int64 `json:"proxy_id"`
		} `json:"matches"`
		Probed int `json:"probed"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 4, resp.Probed)
	assert.Len(t, resp.Matches, 3, "both mercados terms and talleres hit")
}

func TestParseEndpointReportsPosition(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/intersections/parse", gin.H{
		"expression": `"campesinos" AND AND "talleres"`,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Error    string `json:"error"`
		Code     string `json:"code"`
		Position int    `json:"position"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "syntax_error", resp.Code)
	assert.Equal(t, 17, resp.Position)
}

func TestParseEndpointUnknownProxy(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/intersections/parse", gin.H{
		"expression": `"no existe"`,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Code     string `json:"code"`
		Fragment string `json:"fragment"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "unknown_proxy", resp.Code)
	assert.Equal(t, "no existe", resp.Fragment)
}

func TestIntersectionLifecycleOverHTTP(t *testing.T) {
	s, f := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, f.SetMatch(ctx, f.Orgs[0].ID, f.Proxies[0].ID, true))

	w := do(t, s, http.MethodPost, "/api/intersections", gin.H{
		"name":            "Mercados",
		"expression_text": `"campesinos"`,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Intersection
	decode(t, w, &created)
	require.NotZero(t, created.ID)
	assert.Equal(t, models.ModeExpression, created.Mode)
	assert.Equal(t, `"mercados campesinos"`, created.ExpressionDisplay)

	w = do(t, s, http.MethodPost,
		"/api/intersections/"+itoa(created.ID)+"/evaluate/"+itoa(f.Orgs[0].ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result app.EvaluateResult
	decode(t, w, &result)
	assert.True(t, result.Value)

	w = do(t, s, http.MethodGet, "/api/intersections/"+itoa(created.ID)+"/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"value":true`)
}

func TestTruthTableEndpoint(t *testing.T) {
	s, f := newTestServer(t)
	ctx := context.Background()

	for _, org := range f.Orgs {
		require.NoError(t, f.SetMatch(ctx, org.ID, f.Proxies[0].ID, true))
	}
	w := do(t, s, http.MethodPost, "/api/intersections", gin.H{
		"name":            "Mercados",
		"expression_text": `"campesinos"`,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, http.MethodGet, "/api/truth-table", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp tableJSON
	decode(t, w, &resp)
	require.Len(t, resp.Cases, 3)
	assert.Equal(t, "1", resp.Cases[0].Cells[0])
	assert.Equal(t, 1, resp.Stats.DistinctConfigurations)
}

func TestTruthTableExportCSV(t *testing.T) {
	s, f := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, f.SetMatch(ctx, f.Orgs[0].ID, f.Proxies[0].ID, true))

	w := do(t, s, http.MethodPost, "/api/intersections", gin.H{
		"name":            "Mercados",
		"expression_text": `"campesinos"`,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, http.MethodGet, "/api/truth-table/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Equal(t, "case,Mercados,configuration", lines[0])

	w = do(t, s, http.MethodGet, "/api/truth-table/export?format=tsv", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchReviewOverHTTP(t *testing.T) {
	s, f := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/matches", gin.H{
		"organization_id": f.Orgs[0].ID,
		"proxy_id":        f.Proxies[0].ID,
		"found":           true,
		"confidence":      0.8,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var m models.ProxyMatch
	decode(t, w, &m)

	w = do(t, s, http.MethodPost, "/api/matches/"+itoa(m.ID)+"/reject", gin.H{
		"verified_by": "ana",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/matches/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats app.VerificationStats
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.Rejected)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
