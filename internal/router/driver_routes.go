package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/handler"
	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
)

// RegisterDriver registers reservation endpoints for drivers.  Reading and
// cancelling a single reservation is open to both roles; the service checks
// that the caller is its driver or the lot owner.
func RegisterDriver(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	driver := middleware.RequireRole(middleware.RoleDriver)
	g.POST("/reservations", r.Create, driver, limit)
	g.GET("/my-reservations", r.ListMine, driver)

	either := middleware.RequireRole(middleware.RoleDriver, middleware.RoleOwner)
	g.GET("/reservations/:id", r.Get, either)
	g.DELETE("/reservations/:id", r.Cancel, either, limit)
}
