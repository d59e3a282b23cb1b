// Package api exposes the engine over HTTP: variable/proxy/organization
// administration, the intersection registry, match verification and the
// truth-table export.
package api

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"vennqca/app"
	"vennqca/domain/core"
	"vennqca/domain/expr"
	"vennqca/internal/errors"
	"vennqca/internal/matcher"
	"vennqca/ports"

	"github.com/gin-gonic/gin"
)

// Server is the gin HTTP surface.
type Server struct {
	router *gin.Engine

	variables     ports.VariableRepository
	proxies       ports.ProxyRepository
	organizations ports.OrganizationRepository

	intersections *app.IntersectionService
	matches       *app.MatchService
	truthTable    *app.TruthTableService
	matcher       *matcher.Matcher
}

// Deps bundles what the server needs.
type Deps struct {
	Variables     ports.VariableRepository
	Proxies       ports.ProxyRepository
	Organizations ports.OrganizationRepository
	Intersections *app.IntersectionService
	Matches       *app.MatchService
	TruthTable    *app.TruthTableService
}

// NewServer creates the server and registers all routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:        gin.Default(),
		variables:     deps.Variables,
		proxies:       deps.Proxies,
		organizations: deps.Organizations,
		intersections: deps.Intersections,
		matches:       deps.Matches,
		truthTable:    deps.TruthTable,
		matcher:       matcher.New(),
	}
	s.registerRoutes()
	return s
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server on the given port.
func (s *Server) Run(port string) error {
	return s.router.Run(":" + port)
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")

	api.GET("/variables", s.handleListVariables)
	api.POST("/variables", s.handleCreateVariable)
	api.GET("/variables/:id", s.handleGetVariable)
	api.PUT("/variables/:id", s.handleUpdateVariable)
	api.DELETE("/variables/:id", s.handleDeleteVariable)
	api.GET("/variables/:id/proxies", s.handleListVariableProxies)

	api.GET("/proxies", s.handleListProxies)
	api.POST("/proxies", s.handleCreateProxy)
	api.GET("/proxies/:id", s.handleGetProxy)
	api.PUT("/proxies/:id", s.handleUpdateProxy)
	api.DELETE("/proxies/:id", s.handleDeleteProxy)
	api.GET("/proxies/search", s.handleSearchProxies)
	api.POST("/proxies/probe", s.handleProbeContent)

	api.GET("/organizations", s.handleListOrganizations)
	api.POST("/organizations", s.handleCreateOrganization)
	api.GET("/organizations/:id", s.handleGetOrganization)
	api.PUT("/organizations/:id", s.handleUpdateOrganization)
	api.DELETE("/organizations/:id", s.handleDeleteOrganization)
	api.GET("/organizations/:id/matches", s.handleListOrganizationMatches)
	api.POST("/organizations/:id/probe", s.handleProbeOrganization)

	api.GET("/intersections", s.handleListIntersections)
	api.POST("/intersections", s.handleCreateIntersection)
	api.GET("/intersections/:id", s.handleGetIntersection)
	api.PUT("/intersections/:id", s.handleUpdateIntersection)
	api.DELETE("/intersections/:id", s.handleDeleteIntersection)
	api.POST("/intersections/parse", s.handleParseExpression)
	api.POST("/intersections/:id/evaluate/:org", s.handleEvaluateIntersection)
	api.GET("/intersections/:id/results", s.handleIntersectionResults)

	api.POST("/matches", s.handleRecordMatch)
	api.GET("/matches/pending", s.handlePendingMatches)
	api.POST("/matches/:id/verify", s.handleVerifyMatch)
	api.POST("/matches/:id/reject", s.handleRejectMatch)
	api.POST("/matches/:id/modify", s.handleModifyMatch)
	api.POST("/matches/bulk-verify", s.handleBulkVerify)
	api.GET("/matches/stats", s.handleMatchStats)

	api.GET("/truth-table", s.handleTruthTable)
	api.GET("/truth-table/export", s.handleTruthTableExport)
	api.GET("/truth-table/variables", s.handleVariableTruthTable)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors onto HTTP statuses. Expression errors keep
// their position and fragment so the UI can point at the offending text.
func respondError(c *gin.Context, err error) {
	var exprErr *expr.Error
	if stderrors.As(err, &exprErr) {
		body := gin.H{"error": exprErr.Error(), "code": exprErr.Code.String()}
		if exprErr.Pos >= 0 {
			body["position"] = exprErr.Pos
		}
		if exprErr.Fragment != "" {
			body["fragment"] = exprErr.Fragment
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}
	if core.IsNotFoundError(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput, errors.CodeValidationError:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch {
	case stderrors.Is(err, core.ErrInvalidMode),
		stderrors.Is(err, core.ErrInvalidOperator),
		stderrors.Is(err, core.ErrEmptyProxyList),
		stderrors.Is(err, core.ErrNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
