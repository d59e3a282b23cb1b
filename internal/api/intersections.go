package api

import (
	"encoding/json"
	"net/http"

	"vennqca/models"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
)

// intersectionRequest is the write payload. Expression text, when present,
// takes precedence and switches the record to expression mode.
type intersectionRequest struct {
	Name               string                  `json:"name" binding:"required"`
	Description        string                  `json:"description"`
	Mode               models.IntersectionMode `json:"mode"`
	IncludeVariableIDs []int64                 `json:"include_ids"`
	IncludeProxyIDs    []int64                 `json:"include_proxy_ids"`
	Operator           models.Operator         `json:"operator"`
	ExpressionText     string                  `json:"expression_text"`
	LogicExpression    json.RawMessage         `json:"logic_expression"`
	IsActive           *bool                   `json:"is_active"`
}

func (r *intersectionRequest) apply(in *models.Intersection) {
	in.Name = r.Name
	in.Description = r.Description
	in.Mode = r.Mode
	in.IncludeVariableIDs = r.IncludeVariableIDs
	in.IncludeProxyIDs = r.IncludeProxyIDs
	in.Operator = r.Operator
	if len(r.LogicExpression) > 0 {
		in.LogicExpression = r.LogicExpression
	}
	in.IsActive = true
	if r.IsActive != nil {
		in.IsActive = *r.IsActive
	}
}

// intersectionView decorates a record with its rendered markdown description.
type intersectionView struct {
	*models.Intersection
	DescriptionHTML string `json:"description_html,omitempty"`
}

func viewIntersection(in *models.Intersection) intersectionView {
	view := intersectionView{Intersection: in}
	if in.Description != "" {
		view.DescriptionHTML = string(markdown.ToHTML([]byte(in.Description), nil, nil))
	}
	return view
}

func (s *Server) handleListIntersections(c *gin.Context) {
	list, err := s.intersections.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]intersectionView, 0, len(list))
	for _, in := range list {
		views = append(views, viewIntersection(in))
	}
	c.JSON(http.StatusOK, gin.H{"intersections": views})
}

func (s *Server) handleCreateIntersection(c *gin.Context) {
	var req intersectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var in models.Intersection
	req.apply(&in)
	if err := s.intersections.Create(c.Request.Context(), &in, req.ExpressionText); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, in)
}

func (s *Server) handleGetIntersection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, err := s.intersections.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewIntersection(in))
}

func (s *Server) handleUpdateIntersection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, err := s.intersections.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	var req intersectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.apply(in)
	if err := s.intersections.Update(c.Request.Context(), in, req.ExpressionText); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, in)
}

func (s *Server) handleDeleteIntersection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.intersections.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type parseRequest struct {
	Expression string `json:"expression" binding:"required"`
}

// handleParseExpression previews a textual expression: the tree it builds,
// which proxy each quoted fragment resolved to, and the display rendering.
// Nothing is persisted.
func (s *Server) handleParseExpression(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	preview, err := s.intersections.Parse(c.Request.Context(), req.Expression)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) handleEvaluateIntersection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	orgID, ok := pathID(c, "org")
	if !ok {
		return
	}
	result, err := s.intersections.Evaluate(c.Request.Context(), id, orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleIntersectionResults(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	results, err := s.intersections.Results(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
