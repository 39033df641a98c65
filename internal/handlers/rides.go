package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/rideshare-backend/internal/middleware"
	"github.com/chachabrian/rideshare-backend/internal/services"
)

func PublishRide(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.PublishRideInput
		if !bindJSON(c, &input) {
			return
		}

		ride, err := rides.Publish(c.Request.Context(), middleware.UserID(c), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "Ride published successfully",
			"ride":    ride,
		})
	}
}

// GetMyRides lists every ride the caller published.
func GetMyRides(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := rides.ListMine(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetActiveRides(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := rides.ListActive(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func SearchRides(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := services.SearchQuery{
			From: c.Query("from"),
			To:   c.Query("to"),
			Date: c.Query("date"),
			Type: c.Query("type"),
		}

		list, err := rides.Search(c.Request.Context(), query)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func CancelRide(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ride, err := rides.Cancel(c.Request.Context(), c.Param("rideId"), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Ride cancelled successfully",
			"ride":    ride,
		})
	}
}
