package router // package router defines how HTTP routes are registered for the API

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/config"
	"github.com/iliyamo/parking-slot-reservation/internal/handler"
	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
	"github.com/iliyamo/parking-slot-reservation/internal/notify"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// Deps carries everything the routes need.  Redis may be nil; the hub may
// be nil to disable the websocket endpoint.
type Deps struct {
	Service       *service.BookingService
	Hub           *notify.Hub
	Redis         *redis.Client
	JWTSecret     string
	WebhookSecret string
	RateLimit     config.RateLimitConfig
	Cache         config.CacheConfig
	Ping          func(ctx context.Context) error
	Log           *zap.Logger
}

// Register mounts every route on e.
func Register(e *echo.Echo, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e.Use(middleware.RequestLogger(d.Log))
	e.GET("/healthz", handler.Health(d.Ping))

	lots := handler.NewLotHandler(d.Service, d.Log)
	reservations := handler.NewReservationHandler(d.Service, d.Log)
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis)

	RegisterPublic(e, lots, middleware.NewRedisCache(d.Cache, d.Redis))
	RegisterDriver(e, reservations, d.JWTSecret, limit)
	RegisterOwner(e, lots, reservations, d.JWTSecret, limit)
	RegisterWebhooks(e, handler.NewWebhookHandler(d.Service, d.Log), d.WebhookSecret)
	if d.Hub != nil {
		ws := handler.NewWSHandler(d.Hub, d.Service, d.Log, nil)
		e.GET("/v1/ws", ws.Subscribe, middleware.JWTAuth(d.JWTSecret))
	}
}

// RegisterPublic registers unauthenticated lot endpoints.  Lot descriptions
// are cached; search and availability change with every booking and are not.
func RegisterPublic(e *echo.Echo, l *handler.LotHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/lots", l.Search)
	e.GET("/v1/lots/:id", l.Get, cache)
	e.GET("/v1/lots/:id/availability", l.Availability)
}
