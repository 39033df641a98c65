package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/rideshare-backend/internal/apperrors"
	"github.com/chachabrian/rideshare-backend/internal/middleware"
	"github.com/chachabrian/rideshare-backend/internal/services"
)

// BookRide submits a booking request for the ride in the path.
func BookRide(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.SubmitInput
		if !bindJSON(c, &input) {
			return
		}
		input.RideID = c.Param("rideId")
		input.PassengerID = middleware.UserID(c)

		req, err := bookings.Submit(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":        "Booking request sent successfully",
			"bookingRequest": req,
		})
	}
}

// GetRideBookingRequests lists requests on a ride for its driver.
func GetRideBookingRequests(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqs, err := bookings.ListForRide(c.Request.Context(), c.Param("rideId"), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reqs)
	}
}

// RespondToBookingRequest accepts or rejects a pending request.
func RespondToBookingRequest(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.RespondInput
		if !bindJSON(c, &input) {
			return
		}
		input.RequestID = c.Param("requestId")
		input.ResponderID = middleware.UserID(c)

		view, err := bookings.Respond(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":        "Booking request updated successfully",
			"status":         view.Status,
			"driverMessage":  view.DriverMessage,
			"bookingRequest": view,
		})
	}
}

func GetMyBookingRequests(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := bookings.ListForPassenger(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

// GetBookingRequestSummaries returns the caller's requests in the flattened
// shape used by the passenger pages.
func GetBookingRequestSummaries(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		summaries, err := bookings.PassengerSummaries(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summaries)
	}
}

func GetPendingCount(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := bookings.PendingCount(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

// GetUserBookingRequests lists requests for the user in the path, which
// must be the caller.
func GetUserBookingRequests(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSelf(c) {
			return
		}
		views, err := bookings.ListForPassenger(c.Request.Context(), c.Param("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

func requireSelf(c *gin.Context) bool {
	if c.Param("userId") != middleware.UserID(c) {
		respondError(c, apperrors.New(apperrors.Forbidden, "Not authorized to view another user's bookings"))
		return false
	}
	return true
}
