package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teamroping/internal/auth"
)

func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		// static token for scripts and the export job
		adminToken := c.GetHeader("X-Admin-Token")
		if adminToken != "" && adminToken == s.Cfg.AdminToken {
			c.Set("admin", true)
			c.Next()
			return
		}

		token := getBearerToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing admin token"})
			return
		}
		claims, err := auth.ParseToken(s.JWTSecret, token)
		if err != nil || !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin required"})
			return
		}
		if err := s.validateSession(c.Request.Context(), claims.SessionID); err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, errInvalidSession) {
				status = http.StatusServiceUnavailable
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "session invalid"})
			return
		}
		c.Set("admin", true)
		c.Set("sid", claims.SessionID)
		c.Next()
	}
}

// checkEventPin guards destructive calls on pin-protected events. It writes
// the response and returns false when the caller must stop.
func (s *Server) checkEventPin(c *gin.Context, eventID int64) bool {
	err := s.Svc.VerifyEventPin(c.Request.Context(), eventID, c.GetHeader("X-Event-Pin"))
	if err == nil {
		return true
	}
	if errors.Is(err, auth.ErrPinMismatch) {
		c.JSON(http.StatusForbidden, gin.H{"error": "event pin required", "kind": "pin"})
		return false
	}
	s.writeError(c, err)
	return false
}

func (s *Server) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if status >= http.StatusInternalServerError {
			s.Log.Error("http request", fields...)
			return
		}
		s.Log.Debug("http request", fields...)
	}
}
