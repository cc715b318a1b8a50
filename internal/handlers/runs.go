package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teamroping/internal/service"
)

func (s *Server) GetRuns(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	round, err := parseRoundQuery(c, 0)
	if err != nil {
		s.writeError(c, err)
		return
	}
	runs, err := s.Svc.GetRunsExpanded(c.Request.Context(), eventID, round)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

type saveRunRequest struct {
	TeamID   int64    `json:"team_id"`
	Round    int      `json:"round"`
	Position int      `json:"position"`
	TimeSec  *float64 `json:"time_sec"`
	Penalty  float64  `json:"penalty"`
	NoTime   bool     `json:"no_time"`
	DQ       bool     `json:"dq"`
}

func (s *Server) SaveRun(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req saveRunRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TeamID <= 0 {
		badRequest(c, "team_id required")
		return
	}
	res, err := s.Svc.SaveRun(c.Request.Context(), service.SaveRunInput{
		EventID:  eventID,
		TeamID:   req.TeamID,
		Round:    req.Round,
		Position: req.Position,
		TimeSec:  req.TimeSec,
		Penalty:  req.Penalty,
		NoTime:   req.NoTime,
		DQ:       req.DQ,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.bumpCaptures(eventID)
	c.JSON(http.StatusOK, res)
}
