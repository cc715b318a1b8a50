package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamroping/internal/apperr"
)

func getBearerToken(r *http.Request) string {
	val := r.Header.Get("Authorization")
	if val == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(val) <= len(prefix) {
		return ""
	}
	if val[:len(prefix)] != prefix {
		return ""
	}
	return val[len(prefix):]
}

func sessionKey(sessionID string) string {
	return "session:admin:" + sessionID
}

var errInvalidSession = errors.New("invalid session")

func newSessionID() string {
	return uuid.NewString()
}

func parseIDParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

// parseRoundQuery reads ?round=; a missing value yields def.
func parseRoundQuery(c *gin.Context, def int) (int, error) {
	raw := c.Query("round")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("invalid round")
	}
	return n, nil
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindPrecondition:
		return http.StatusPreconditionFailed
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		s.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": apperr.Message(err), "kind": string(kind)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": string(apperr.KindValidation)})
}

func mustJSON(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}
