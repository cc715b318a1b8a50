package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Admin-Token", "X-Event-Pin"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if origins := s.Cfg.AllowedOrigins(); len(origins) > 0 {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	} else {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

// Router builds the HTTP surface. Reads are public; every mutation needs an
// admin token.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.RequestLogger(), cors.New(s.corsConfig()))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/ws", s.HandleWS)

	api := r.Group("/api")
	{
		api.POST("/admin/login", s.AdminLogin)
		api.POST("/admin/logout", s.AdminRequired(), s.AdminLogout)

		api.GET("/ropers", s.ListRopers)
		api.GET("/series", s.ListSeries)
		api.GET("/events", s.ListEvents)
		api.GET("/events/:id", s.GetEvent)
		api.GET("/events/:id/teams", s.ListTeams)
		api.GET("/events/:id/draw", s.GetDraw)
		api.GET("/events/:id/runs", s.GetRuns)
		api.GET("/events/:id/standings", s.GetStandings)
		api.GET("/events/:id/payoffs", s.ListPayoffRules)
		api.GET("/events/:id/payouts", s.GetPayoutBreakdown)
		api.GET("/events/:id/payoff-board", s.GetPayoffBoard)
		api.GET("/payoff-presets", s.ListPayoffPresets)

		admin := api.Group("", s.AdminRequired())
		admin.POST("/ropers", s.CreateRoper)
		admin.PUT("/ropers/:id", s.UpdateRoper)
		admin.DELETE("/ropers/:id", s.DeleteRoper)
		admin.POST("/series", s.CreateSeries)
		admin.PUT("/series/:id", s.UpdateSeries)
		admin.DELETE("/series/:id", s.DeleteSeries)
		admin.POST("/events", s.CreateEvent)
		admin.PUT("/events/:id", s.UpdateEvent)
		admin.DELETE("/events/:id", s.DeleteEvent)
		admin.PATCH("/events/:id/status", s.UpdateEventStatus)
		admin.POST("/events/:id/teams", s.CreateTeam)
		admin.POST("/events/:id/teams/generate", s.GenerateTeams)
		admin.DELETE("/events/:id/teams", s.HardDeleteTeams)
		admin.PATCH("/events/:id/teams/:teamId", s.UpdateTeam)
		admin.DELETE("/events/:id/teams/:teamId", s.DeleteTeam)
		admin.POST("/events/:id/draw", s.GenerateDraw)
		admin.POST("/events/:id/draw/batch", s.GenerateDrawBatch)
		admin.POST("/events/:id/runs", s.SaveRun)
		admin.POST("/events/:id/payoffs", s.CreatePayoffRule)
		admin.POST("/events/:id/payoffs/preset", s.ApplyPayoffPreset)
		admin.DELETE("/events/:id/payoffs/:ruleId", s.DeletePayoffRule)
		admin.GET("/events/:id/export", s.ExportEvent)
		admin.GET("/events/:id/metrics", s.GetEventMetrics)
	}
	return r
}
