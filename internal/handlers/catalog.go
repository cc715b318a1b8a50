package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"teamroping/internal/models"
	"teamroping/internal/service"
)

const dateLayout = "2006-01-02"

func parseDate(raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func (s *Server) ListRopers(c *gin.Context) {
	ropers, err := s.Svc.ListRopers(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ropers": ropers})
}

func (s *Server) CreateRoper(c *gin.Context) {
	var r models.Roper
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "invalid request")
		return
	}
	r.Specialty = models.Specialty(strings.ToLower(strings.TrimSpace(string(r.Specialty))))
	id, err := s.Svc.CreateRoper(c.Request.Context(), &r)
	if err != nil {
		s.writeError(c, err)
		return
	}
	r.ID = id
	c.JSON(http.StatusCreated, r)
}

func (s *Server) UpdateRoper(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var r models.Roper
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "invalid request")
		return
	}
	r.ID = id
	r.Specialty = models.Specialty(strings.ToLower(strings.TrimSpace(string(r.Specialty))))
	if err := s.Svc.UpdateRoper(c.Request.Context(), &r); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) DeleteRoper(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.Svc.DeleteRoper(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type createSeriesRequest struct {
	Name      string `json:"name"`
	Season    string `json:"season"`
	Status    string `json:"status"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (s *Server) ListSeries(c *gin.Context) {
	series, err := s.Svc.ListSeries(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": series})
}

func (s *Server) CreateSeries(c *gin.Context) {
	var req createSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	sr, ok := seriesFromRequest(c, req)
	if !ok {
		return
	}
	id, err := s.Svc.CreateSeries(c.Request.Context(), &sr)
	if err != nil {
		s.writeError(c, err)
		return
	}
	sr.ID = id
	c.JSON(http.StatusCreated, sr)
}

// seriesFromRequest parses the shared create/update body. It writes the
// 400 itself and reports false on bad input.
func seriesFromRequest(c *gin.Context, req createSeriesRequest) (models.Series, bool) {
	sr := models.Series{Name: req.Name, Season: req.Season}
	if req.Status != "" {
		status, ok := models.ParseSeriesStatus(req.Status)
		if !ok {
			badRequest(c, "invalid series status")
			return sr, false
		}
		sr.Status = status
	}
	var ok bool
	if sr.StartDate, ok = parseDate(req.StartDate); !ok {
		badRequest(c, "start_date must be YYYY-MM-DD")
		return sr, false
	}
	if sr.EndDate, ok = parseDate(req.EndDate); !ok {
		badRequest(c, "end_date must be YYYY-MM-DD")
		return sr, false
	}
	return sr, true
}

func (s *Server) UpdateSeries(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req createSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	sr, ok := seriesFromRequest(c, req)
	if !ok {
		return
	}
	sr.ID = id
	if err := s.Svc.UpdateSeries(c.Request.Context(), &sr); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sr)
}

// DeleteSeries drops the series and all of its events.
func (s *Server) DeleteSeries(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.Svc.DeleteSeries(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type createEventRequest struct {
	SeriesID      int64           `json:"series_id"`
	Name          string          `json:"name"`
	Date          string          `json:"date"`
	Location      string          `json:"location"`
	Rounds        int             `json:"rounds"`
	EntryFee      decimal.Decimal `json:"entry_fee"`
	PrizePool     decimal.Decimal `json:"prize_pool"`
	DeductionPct  decimal.Decimal `json:"deduction_pct"`
	MaxTeamRating int             `json:"max_team_rating"`
	AdminPin      string          `json:"admin_pin"`
}

func (s *Server) ListEvents(c *gin.Context) {
	var seriesID int64
	if raw := c.Query("series_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid series_id")
			return
		}
		seriesID = id
	}
	events, err := s.Svc.ListEvents(c.Request.Context(), seriesID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) GetEvent(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	ev, err := s.Svc.GetEvent(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": ev, "has_pin": ev.HasPin()})
}

func (s *Server) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	ev, err := s.Svc.CreateEvent(c.Request.Context(), service.CreateEventInput{
		SeriesID:      req.SeriesID,
		Name:          req.Name,
		Date:          date,
		Location:      req.Location,
		Rounds:        req.Rounds,
		EntryFee:      req.EntryFee,
		PrizePool:     req.PrizePool,
		DeductionPct:  req.DeductionPct,
		MaxTeamRating: req.MaxTeamRating,
		AdminPin:      req.AdminPin,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": ev, "has_pin": ev.HasPin()})
}

// UpdateEvent replaces the editable fields of an event. series_id and
// admin_pin in the body are ignored.
func (s *Server) UpdateEvent(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	ev, err := s.Svc.UpdateEvent(c.Request.Context(), id, service.UpdateEventInput{
		Name:          req.Name,
		Date:          date,
		Location:      req.Location,
		Rounds:        req.Rounds,
		EntryFee:      req.EntryFee,
		PrizePool:     req.PrizePool,
		DeductionPct:  req.DeductionPct,
		MaxTeamRating: req.MaxTeamRating,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": ev, "has_pin": ev.HasPin()})
}

// DeleteEvent removes the event and everything under it. Pin-protected
// events need X-Event-Pin.
func (s *Server) DeleteEvent(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !s.checkEventPin(c, id) {
		return
	}
	if err := s.Svc.DeleteEvent(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UpdateEventStatus accepts legacy status names (upcoming, finalized, inactive).
func (s *Server) UpdateEventStatus(c *gin.Context) {
	id, err := parseIDParam(c, "id")
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
	status, ok := models.ParseEventStatus(req.Status)
	if !ok {
		badRequest(c, "invalid event status")
		return
	}
	if err := s.Svc.UpdateEventStatus(c.Request.Context(), id, status); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": status})
}
