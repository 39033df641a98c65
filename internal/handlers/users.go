package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/rideshare-backend/internal/middleware"
	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/internal/services"
)

// GetProfile returns the authenticated user without credentials.
func GetProfile(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.Profile(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateNotificationPreferences applies a partial preferences update.
func UpdateNotificationPreferences(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.NotificationPreferencesPatch
		if !bindJSON(c, &patch) {
			return
		}

		prefs, err := auth.UpdateNotifications(c.Request.Context(), middleware.UserID(c), patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":       "Notification preferences updated",
			"notifications": prefs,
		})
	}
}
