package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/handler"
	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
)

// RegisterOwner registers OWNER-scoped endpoints under /v1.
func RegisterOwner(e *echo.Echo, l *handler.LotHandler, r *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleOwner),
	)
	g.POST("/lots", l.Create, limit)
	g.GET("/lots/:id/reservations", r.ListForLot)
	g.PATCH("/reservations/:id/confirm", r.Confirm, limit)
}

// RegisterWebhooks registers machine-to-machine endpoints authenticated by
// the shared webhook secret.
func RegisterWebhooks(e *echo.Echo, w *handler.WebhookHandler, secret string) {
	g := e.Group("/v1", middleware.RequireWebhookSecret(secret))
	g.POST("/payments/callback", w.PaymentCallback)
	g.POST("/gate/events", w.GateEvent)
}
