package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/rideshare-backend/internal/middleware"
	"github.com/chachabrian/rideshare-backend/internal/services"
)

// GetMyBookings lists the caller's confirmed bookings with ride details.
func GetMyBookings(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.ListBookings(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetUserBookings(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSelf(c) {
			return
		}
		list, err := bookings.ListBookings(c.Request.Context(), c.Param("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
