package database

import (
	"nrm-schedules/internal/config"
	"nrm-schedules/internal/models"
)

// CreateAuditLog records a user action. Failures are logged, never returned.
func CreateAuditLog(userID string, entity string, entityID string, action, details string) {
	if DB == nil || userID == "" {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	if err := DB.Create(&record).Error; err != nil {
		config.LogError("database", "CreateAuditLog", entity+" "+action, entityID, err)
	}
}
