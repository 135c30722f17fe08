package handlers

import (
	"net/http"

	"nrm-schedules/internal/database"

	"github.com/gin-gonic/gin"
)

func Health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if database.DB != nil {
		sqlDB, err := database.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		status["database"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}
