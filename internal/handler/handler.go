// Package handler exposes the booking service over HTTP.  Handlers parse
// and validate input, call the service and map its error classes to status
// codes; no reservation state is touched here.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// getUserID extracts the authenticated user id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case uint64:
		if v > 0 {
			return v, nil
		}
	case int:
		if v > 0 {
			return uint64(v), nil
		}
	case int64:
		if v > 0 {
			return uint64(v), nil
		}
	case float64:
		if v > 0 {
			return uint64(v), nil
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, errors.New("unauthorized")
}

// parseID reads a positive path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// parsePage reads limit and offset query parameters.
func parsePage(c echo.Context) service.Page {
	var p service.Page
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		if n > 100 {
			n = 100
		}
		p.Limit = n
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// parsePresentation reads the optional status filter.
func parsePresentation(c echo.Context) (model.Presentation, bool) {
	s := c.QueryParam("status")
	if s == "" {
		return "", true
	}
	return model.ParsePresentation(s)
}

// parseTime accepts RFC 3339 timestamps.
func parseTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	return t.UTC(), err == nil
}

// writeError maps service error classes to HTTP responses.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "capacity_exceeded"})
	case errors.Is(err, service.ErrStateConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "state_conflict"})
	case errors.Is(err, service.ErrLockTimeout):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "lot is busy, retry shortly", "code": "lock_timeout"})
	}
	log.Error("request failed", zap.String("route", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
