package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type adminLoginRequest struct {
	Password string `json:"password"`
}

func (s *Server) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	_ = c.ShouldBindJSON(&req)
	if req.Password == "" {
		req.Password = strings.TrimSpace(c.PostForm("password"))
	}
	if req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}
	if strings.TrimSpace(s.Cfg.AdminPassword) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "admin password not configured"})
		return
	}
	if s.Cfg.AdminPassword != req.Password {
		s.Log.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}
	token, err := s.SignAdminToken(c.Request.Context())
	if err != nil {
		s.Log.Error("admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(adminSessionTTL.Seconds())})
}

func (s *Server) AdminLogout(c *gin.Context) {
	if err := s.dropSession(c.Request.Context(), c.GetString("sid")); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
