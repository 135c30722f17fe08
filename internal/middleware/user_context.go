package middleware

import (
	"nrm-schedules/internal/database"
	"nrm-schedules/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CurrentUserKey = "CurrentUser"

// InjectUser loads the session user so handlers can read it with CurrentUser.
func InjectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uid, ok := sess.Get("user_id").(string); ok && uid != "" && database.DB != nil {
			var user models.User
			if err := database.DB.Where("id = ?", uid).First(&user).Error; err == nil {
				c.Set(CurrentUserKey, user)
			}
		}

		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}
