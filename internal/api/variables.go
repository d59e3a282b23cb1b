package api

import (
	"net/http"

	"vennqca/models"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
)

// variableView decorates a variable with its rendered description for the
// admin UI, which stores descriptions as markdown.
type variableView struct {
	*models.Variable
	DescriptionHTML string `json:"description_html,omitempty"`
}

func viewVariable(v *models.Variable) variableView {
	view := variableView{Variable: v}
	if v.Description != "" {
		view.DescriptionHTML = string(markdown.ToHTML([]byte(v.Description), nil, nil))
	}
	return view
}

func (s *Server) handleListVariables(c *gin.Context) {
	vars, err := s.variables.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]variableView, 0, len(vars))
	for _, v := range vars {
		views = append(views, viewVariable(v))
	}
	c.JSON(http.StatusOK, gin.H{"variables": views})
}

func (s *Server) handleCreateVariable(c *gin.Context) {
	var v models.Variable
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := v.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if err := s.variables.Create(c.Request.Context(), &v); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewVariable(&v))
}

func (s *Server) handleGetVariable(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := s.variables.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewVariable(v))
}

func (s *Server) handleUpdateVariable(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var v models.Variable
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v.ID = id
	if err := v.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if err := s.variables.Update(c.Request.Context(), &v); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewVariable(&v))
}

func (s *Server) handleDeleteVariable(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.variables.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListVariableProxies(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := s.variables.GetByID(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	proxies, err := s.proxies.ListByVariable(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proxies": proxies})
}

func (s *Server) handleListProxies(c *gin.Context) {
	proxies, err := s.proxies.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proxies": proxies})
}

func (s *Server) handleCreateProxy(c *gin.Context) {
	var p models.Proxy
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := p.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if _, err := s.variables.GetByID(c.Request.Context(), p.VariableID); err != nil {
		respondError(c, err)
		return
	}
	if err := s.proxies.Create(c.Request.Context(), &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleGetProxy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := s.proxies.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleUpdateProxy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var p models.Proxy
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.ID = id
	if err := p.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if err := s.proxies.Update(c.Request.Context(), &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteProxy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.proxies.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleSearchProxies finds proxies by term fragment, the same lookup the
// expression parser uses for quoted text.
func (s *Server) handleSearchProxies(c *gin.Context) {
	fragment := c.Query("q")
	if fragment == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	proxies, err := s.proxies.FindByText(c.Request.Context(), fragment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proxies": proxies})
}

type probeRequest struct {
	Content  string  `json:"content" binding:"required"`
	ProxyIDs []int64 `json:"proxy_ids"`
}

// handleProbeContent runs proxy terms against a block of text and reports the
// hits, for spot-checking term definitions against real page content.
func (s *Server) handleProbeContent(c *gin.Context) {
	var req probeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var proxies []*models.Proxy
	var err error
	if len(req.ProxyIDs) > 0 {
		for _, id := range req.ProxyIDs {
			p, perr := s.proxies.GetByID(c.Request.Context(), id)
			if perr != nil {
				respondError(c, perr)
				return
			}
			proxies = append(proxies, p)
		}
	} else {
		proxies, err = s.proxies.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
	}

	hits := s.matcher.ProbeAll(proxies, req.Content)
	c.JSON(http.StatusOK, gin.H{"matches": hits, "probed": len(proxies)})
}
