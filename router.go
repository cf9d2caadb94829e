package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/cache"
	"github.com/arunvm123/gigbooking/config"
	"github.com/arunvm123/gigbooking/metrics"
	"github.com/arunvm123/gigbooking/model"
)

type routerDeps struct {
	auth     *AuthHandler
	events   *EventHandler
	bookings *BookingHandler
	health   *HealthHandler
	jwt      *JWTService
	// limiter may be nil, which disables rate limiting
	limiter cache.RateLimiter
	logger  *zap.Logger
}

func SetupRouter(cfg *config.Config, deps routerDeps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(LoggingMiddleware(deps.logger))

	// Health check and metrics (no auth required)
	r.GET("/health", deps.health.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.Use(RateLimitMiddleware(deps.limiter, cfg.RateLimit, deps.logger))

	auth := api.Group("/auth")
	auth.POST("/register", deps.auth.Register)
	auth.POST("/login", deps.auth.Login)

	// Public event endpoints
	events := api.Group("/events")
	events.GET("", deps.events.ListEvents)
	events.GET("/upcoming", deps.events.ListUpcomingEvents)
	events.GET("/genre/:genre", deps.events.ListEventsByGenre)
	events.GET("/artist/:artistId", deps.events.ListArtistEvents)
	events.GET("/:id", deps.events.GetEvent)

	// Protected endpoints (require authentication)
	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.jwt))
	protected.GET("/auth/profile", deps.auth.Profile)

	managers := protected.Group("/events")
	managers.Use(RequireRoles(model.RoleArtist, model.RoleAdmin))
	managers.GET("/mine", deps.events.ListMyEvents)
	managers.POST("", deps.events.CreateEvent)
	managers.PATCH("/:id", deps.events.UpdateEvent)
	managers.DELETE("/:id", deps.events.DeleteEvent)
	managers.GET("/:id/bookings", deps.bookings.ListEventBookings)

	bookings := protected.Group("/bookings")
	bookings.POST("", deps.bookings.CreateBooking)
	bookings.GET("/me", deps.bookings.ListMyBookings)
	bookings.GET("/:id", deps.bookings.GetBooking)
	bookings.DELETE("/:id", deps.bookings.CancelBooking)

	admin := bookings.Group("")
	admin.Use(RequireRoles(model.RoleAdmin))
	admin.GET("", deps.bookings.ListBookings)
	admin.PATCH("/:id/status", deps.bookings.UpdateBookingStatus)

	return r
}
