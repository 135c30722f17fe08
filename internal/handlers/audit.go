package handlers

import (
	"net/http"

	"nrm-schedules/internal/database"
	"nrm-schedules/internal/models"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs returns the latest entries, optionally filtered by entity.
// Admin only; the router enforces the role.
func ListAuditLogs(c *gin.Context) {
	q := database.DB.Preload("User").Order("created_at desc").Limit(200)
	if entity := c.Query("entity"); entity != "" {
		q = q.Where("entity = ?", entity)
	}
	if entityID := c.Query("entity_id"); entityID != "" {
		q = q.Where("entity_id = ?", entityID)
	}

	var logs []models.AuditLog
	if err := q.Find(&logs).Error; err != nil {
		respondError(c, "ListAuditLogs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
