package api

import (
	"net/http"

	"vennqca/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListOrganizations(c *gin.Context) {
	orgs, err := s.organizations.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

func (s *Server) handleCreateOrganization(c *gin.Context) {
	var o models.Organization
	if err := c.ShouldBindJSON(&o); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if o.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if err := s.organizations.Create(c.Request.Context(), &o); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) handleGetOrganization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := s.organizations.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleUpdateOrganization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var o models.Organization
	if err := c.ShouldBindJSON(&o); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o.ID = id
	if err := s.organizations.Update(c.Request.Context(), &o); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleDeleteOrganization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.organizations.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type orgProbeRequest struct {
	Content string `json:"content" binding:"required"`
	Apply   bool   `json:"apply"`
}

// handleProbeOrganization runs every proxy term against a block of the
// organization's scraped text. With apply=true the outcome is recorded as
// match facts: hits as found, silent proxies as not found, so evaluation can
// tell "checked and absent" from "never checked".
func (s *Server) handleProbeOrganization(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := s.organizations.GetByID(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	var req orgProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proxies, err := s.proxies.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	hits := s.matcher.ProbeAll(proxies, req.Content)
	recorded := 0
	if req.Apply {
		fragments := make(map[int64]string, len(hits))
		for _, hit := range hits {
			fragments[hit.ProxyID] = hit.Fragment
		}
		for _, p := range proxies {
			fragment, found := fragments[p.ID]
			m := &models.ProxyMatch{
				OrganizationID: id,
				ProxyID:        p.ID,
				Found:          found,
				Confidence:     1.0,
			}
			if found {
				m.Fragments = []string{fragment}
			}
			if err := s.matches.Record(c.Request.Context(), m); err != nil {
				respondError(c, err)
				return
			}
			recorded++
		}
	}
	c.JSON(http.StatusOK, gin.H{"matches": hits, "probed": len(proxies), "recorded": recorded})
}

func (s *Server) handleListOrganizationMatches(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := s.organizations.GetByID(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	matches, err := s.matches.ListByOrganization(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
