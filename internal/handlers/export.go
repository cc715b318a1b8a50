package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teamroping/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) ExportEvent(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		s.writeError(c, err)
		return
	}
	report, err := s.Svc.EventReport(c.Request.Context(), eventID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	data, err := export.Workbook(report)
	if err != nil {
		s.Log.Error("export workbook", zap.Int64("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed", "kind": "persistence"})
		return
	}
	filename := fmt.Sprintf("event_%d.xlsx", eventID)
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, xlsxContentType, data)
}
