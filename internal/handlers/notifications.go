package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/rideshare-backend/internal/middleware"
	"github.com/chachabrian/rideshare-backend/internal/services"
)

// RegisterPushToken stores the caller's FCM device token
func RegisterPushToken(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Token string `json:"token"`
		}
		if !bindJSON(c, &input) {
			return
		}

		if err := auth.RegisterPushToken(c.Request.Context(), middleware.UserID(c), input.Token); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Push token registered successfully"})
	}
}

// RemovePushToken clears the caller's device token
func RemovePushToken(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RemovePushToken(c.Request.Context(), middleware.UserID(c)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Push token removed successfully"})
	}
}
