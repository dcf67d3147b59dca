package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"glampbook/internal/infra/config"
	"glampbook/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	Check(c *gin.Context)
}

type AdminAvailabilityHTTP interface {
	Initialize(c *gin.Context)
	SetDate(c *gin.Context)
	SetDates(c *gin.Context)
	AddBlock(c *gin.Context)
	RemoveBlock(c *gin.Context)
}

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
}

type MeHTTP interface {
	ListBookings(c *gin.Context)
}

type AdminBookingHTTP interface {
	Confirm(c *gin.Context)
	Complete(c *gin.Context)
	Reject(c *gin.Context)
	Cancel(c *gin.Context)
	RecordPayment(c *gin.Context)
	AttachAddOns(c *gin.Context)
}

type Handlers struct {
	Availability      AvailabilityHTTP
	AdminAvailability AdminAvailabilityHTTP
	Booking           BookingHTTP
	AdminBooking      AdminBookingHTTP
	Me                MeHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{Addr: cfg.HTTPAddr, Handler: NewRouter(cfg, obsMW, health, h)}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	router.Use(PrincipalMiddleware)

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/properties/:id/availability", h.Availability.Calendar)
		api.GET("/properties/:id/availability/check", h.Availability.Check)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
	}
	if h.Me != nil {
		api.GET("/me/bookings", h.Me.ListBookings)
	}

	admin := api.Group("/admin")
	if h.AdminBooking != nil {
		bookings := admin.Group("/bookings/:id")
		bookings.POST("/confirm", h.AdminBooking.Confirm)
		bookings.POST("/complete", h.AdminBooking.Complete)
		bookings.POST("/reject", h.AdminBooking.Reject)
		bookings.POST("/cancel", h.AdminBooking.Cancel)
		bookings.POST("/payment", h.AdminBooking.RecordPayment)
		bookings.POST("/add-ons", h.AdminBooking.AttachAddOns)
	}
	if h.AdminAvailability != nil {
		calendar := admin.Group("/properties/:id/availability")
		calendar.POST("/initialize", h.AdminAvailability.Initialize)
		calendar.PUT("/dates/:date", h.AdminAvailability.SetDate)
		calendar.PATCH("/dates", h.AdminAvailability.SetDates)
		calendar.POST("/blocks", h.AdminAvailability.AddBlock)
		calendar.DELETE("/blocks", h.AdminAvailability.RemoveBlock)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", UserIDHeader, UserRolesHeader, IdempotencyKeyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

// IdempotencyKeyHeader lets clients retry createBooking safely.
const IdempotencyKeyHeader = "Idempotency-Key"
