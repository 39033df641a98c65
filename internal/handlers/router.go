package handlers

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/middleware"
	"github.com/chachabrian/rideshare-backend/internal/repository"
	"github.com/chachabrian/rideshare-backend/internal/services"
)

// Deps is everything the HTTP layer needs. Redis and Hub may be nil.
type Deps struct {
	Auth        *services.AuthService
	Rides       *services.RideService
	Bookings    *services.BookingService
	Hub         *services.Hub
	Tokens      middleware.TokenValidator
	Store       repository.Store
	Redis       *redis.Client
	Log         *zap.Logger
	CORSOrigins []string
	PublicDir   string
}

var pages = map[string]string{
	"/":                   "index.html",
	"/login":              "login.html",
	"/register":           "register.html",
	"/profile":            "profile.html",
	"/publish":            "publish.html",
	"/search":             "search.html",
	"/notifications":      "notifications.html",
	"/requests":           "requests.html",
	"/booking-status":     "booking-status.html",
	"/passenger-requests": "passenger-requests.html",
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(d.Log), middleware.Recovery(d.Log), middleware.Metrics())

	config := cors.DefaultConfig()
	if len(d.CORSOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = d.CORSOrigins
	}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "x-auth-token", middleware.RequestIDHeader}
	r.Use(cors.New(config))

	r.GET("/health", health(d))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(d.Tokens)

	api := r.Group("/api")
	{
		api.POST("/register", Register(d.Auth))
		api.POST("/login", Login(d.Auth))

		api.GET("/rides/active", GetActiveRides(d.Rides))
		api.GET("/rides/search", SearchRides(d.Rides))

		if d.Hub != nil {
			api.GET("/ws", auth, WebSocketHandler(d.Hub))
		}

		protected := api.Group("")
		protected.Use(auth)
		{
			protected.GET("/user", GetProfile(d.Auth))
			protected.GET("/profile", GetProfile(d.Auth))
			protected.PUT("/profile/notifications", UpdateNotificationPreferences(d.Auth))
			protected.POST("/notifications/push-token", RegisterPushToken(d.Auth))
			protected.DELETE("/notifications/push-token", RemovePushToken(d.Auth))

			rides := protected.Group("/rides")
			{
				rides.POST("", PublishRide(d.Rides))
				rides.GET("", GetMyRides(d.Rides))
				rides.POST("/:rideId/cancel", CancelRide(d.Rides))
				rides.POST("/:rideId/book", BookRide(d.Bookings))
				rides.GET("/:rideId/booking-requests", GetRideBookingRequests(d.Bookings))
			}

			requests := protected.Group("/booking-requests")
			{
				requests.GET("", GetMyBookingRequests(d.Bookings))
				requests.GET("/user", GetBookingRequestSummaries(d.Bookings))
				requests.GET("/pending-count", GetPendingCount(d.Bookings))
				requests.GET("/status/:userId", GetUserBookingRequests(d.Bookings))
				requests.POST("/:requestId/respond", RespondToBookingRequest(d.Bookings))
			}

			bookings := protected.Group("/bookings")
			{
				bookings.GET("", GetMyBookings(d.Bookings))
				bookings.GET("/user/:userId", GetUserBookings(d.Bookings))
			}
		}
	}

	if d.PublicDir != "" {
		for path, file := range pages {
			r.StaticFile(path, filepath.Join(d.PublicDir, file))
		}
		r.StaticFile("/header.js", filepath.Join(d.PublicDir, "header.js"))
		r.StaticFile("/auth.js", filepath.Join(d.PublicDir, "auth.js"))
	}

	r.NoRoute(func(c *gin.Context) {
		if d.PublicDir == "" || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.File(filepath.Join(d.PublicDir, "index.html"))
	})

	return r
}

func health(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		healthy := true
		if err := d.Store.Ping(ctx); err != nil {
			checks["store"] = err.Error()
			healthy = false
		} else {
			checks["store"] = "ok"
		}
		if d.Redis != nil {
			if err := d.Redis.Ping(ctx).Err(); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}
		if d.Hub != nil {
			checks["websocketClients"] = d.Hub.GetConnectedClients()
		}

		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
	}
}
