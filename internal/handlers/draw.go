package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type generateDrawRequest struct {
	Round    int   `json:"round"`
	Reseed   bool  `json:"reseed"`
	SeedRuns *bool `json:"seed_runs"`
}

func (s *Server) GenerateDraw(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req generateDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	seedRuns := true
	if req.SeedRuns != nil {
		seedRuns = *req.SeedRuns
	}
	n, err := s.Svc.GenerateDraw(c.Request.Context(), eventID, req.Round, req.Reseed, seedRuns)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"round": req.Round, "slots": n})
}

type generateBatchRequest struct {
	Rounds  int  `json:"rounds"`
	Shuffle bool `json:"shuffle"`
}

// GenerateDrawBatch seeds rounds 1..rounds; rounds defaults to the event's
// round count.
func (s *Server) GenerateDrawBatch(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req generateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if req.Rounds == 0 {
		ev, err := s.Svc.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			s.writeError(c, err)
			return
		}
		req.Rounds = ev.Rounds
	}
	n, err := s.Svc.GenerateDrawBatch(c.Request.Context(), eventID, req.Rounds, req.Shuffle)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": req.Rounds, "slots": n})
}

func (s *Server) GetDraw(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	round, err := parseRoundQuery(c, 1)
	if err != nil {
		s.writeError(c, err)
		return
	}
	slots, err := s.Svc.GetDraw(c.Request.Context(), eventID, round)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"round": round, "slots": slots})
}
