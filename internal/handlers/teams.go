package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"teamroping/internal/draw"
	"teamroping/internal/models"
	"teamroping/internal/service"
)

func (s *Server) ListTeams(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	teams, err := s.Svc.ListTeamDetails(c.Request.Context(), eventID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

type createTeamRequest struct {
	HeaderID int64 `json:"header_id"`
	HeelerID int64 `json:"heeler_id"`
	Rating   int   `json:"rating"`
}

func (s *Server) CreateTeam(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.HeaderID <= 0 || req.HeelerID <= 0 {
		badRequest(c, "header_id and heeler_id required")
		return
	}
	team, err := s.Svc.CreateTeam(c.Request.Context(), eventID, req.HeaderID, req.HeelerID, req.Rating)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (s *Server) DeleteTeam(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	teamID, err := parseIDParam(c, "teamId")
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.Svc.DeleteTeam(c.Request.Context(), eventID, teamID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UpdateTeam toggles a team between active and inactive.
func (s *Server) UpdateTeam(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	teamID, err := parseIDParam(c, "teamId")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	status := models.TeamStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err := s.Svc.UpdateTeamStatus(c.Request.Context(), eventID, teamID, status); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": teamID, "status": status})
}

// HardDeleteTeams purges every team of the event with its draw and runs.
// Pin-protected events need X-Event-Pin.
func (s *Server) HardDeleteTeams(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !s.checkEventPin(c, eventID) {
		return
	}
	n, err := s.Svc.HardDeleteTeamsForEvent(c.Request.Context(), eventID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

type generateTeamsRequest struct {
	Strategy        string `json:"strategy"`
	EntriesPerRoper int    `json:"entries_per_roper"`
	ClearExisting   bool   `json:"clear_existing"`
}

func (s *Server) GenerateTeams(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req generateTeamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	strategy, ok := draw.ParseStrategy(req.Strategy)
	if !ok {
		badRequest(c, "strategy must be exhaustive, balanced or random")
		return
	}
	if req.EntriesPerRoper < 0 {
		badRequest(c, "entries_per_roper must not be negative")
		return
	}
	if req.ClearExisting && !s.checkEventPin(c, eventID) {
		return
	}
	report, err := s.Svc.GenerateTeams(c.Request.Context(), eventID, service.GenerateTeamsInput{
		Strategy:        strategy,
		EntriesPerRoper: req.EntriesPerRoper,
		ClearExisting:   req.ClearExisting,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
