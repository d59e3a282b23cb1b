package api

import (
	"net/http"
	"strconv"

	"vennqca/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleRecordMatch(c *gin.Context) {
	var m models.ProxyMatch
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.matches.Record(c.Request.Context(), &m); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) handlePendingMatches(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	pending, err := s.matches.ListPending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": pending})
}

type reviewRequest struct {
	VerifiedBy string `json:"verified_by" binding:"required"`
	Notes      string `json:"notes"`
}

func (s *Server) handleVerifyMatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.matches.Verify(c.Request.Context(), id, req.VerifiedBy, req.Notes); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.VerificationVerified})
}

func (s *Server) handleRejectMatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.matches.Reject(c.Request.Context(), id, req.VerifiedBy, req.Notes); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.VerificationRejected})
}

type modifyRequest struct {
	VerifiedBy string `json:"verified_by" binding:"required"`
	Value      *bool  `json:"value" binding:"required"`
	Notes      string `json:"notes"`
}

func (s *Server) handleModifyMatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req modifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.matches.Modify(c.Request.Context(), id, *req.Value, req.VerifiedBy, req.Notes); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.VerificationModified})
}

type bulkVerifyRequest struct {
	MatchIDs   []int64 `json:"match_ids" binding:"required"`
	VerifiedBy string  `json:"verified_by" binding:"required"`
}

func (s *Server) handleBulkVerify(c *gin.Context) {
	var req bulkVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := s.matches.BulkVerify(c.Request.Context(), req.MatchIDs, req.VerifiedBy)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "verified": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": n})
}

func (s *Server) handleMatchStats(c *gin.Context) {
	stats, err := s.matches.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
