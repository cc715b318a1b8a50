package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"teamroping/internal/standings"
)

func (s *Server) GetStandings(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	rows, err := s.Svc.GetStandings(c.Request.Context(), eventID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"standings": rows})
}

func (s *Server) ListPayoffRules(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	rules, err := s.Svc.ListPayoffRules(c.Request.Context(), eventID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

type createPayoffRuleRequest struct {
	Position   int             `json:"position"`
	Percentage decimal.Decimal `json:"percentage"`
}

func (s *Server) CreatePayoffRule(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req createPayoffRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	rule, err := s.Svc.CreatePayoffRule(c.Request.Context(), eventID, req.Position, req.Percentage)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) DeletePayoffRule(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	ruleID, err := parseIDParam(c, "ruleId")
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.Svc.DeletePayoffRule(c.Request.Context(), eventID, ruleID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) ListPayoffPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": standings.Presets()})
}

func (s *Server) ApplyPayoffPreset(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req struct {
		Preset string `json:"preset"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Preset == "" {
		badRequest(c, "preset required")
		return
	}
	rules, err := s.Svc.ApplyPayoffPreset(c.Request.Context(), eventID, req.Preset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (s *Server) GetPayoutBreakdown(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	b, err := s.Svc.GetPayoutBreakdown(c.Request.Context(), eventID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) GetPayoffBoard(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	board, err := s.Svc.GetPayoffBoard(c.Request.Context(), eventID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}
