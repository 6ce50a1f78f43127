package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/notify"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// WSHandler upgrades authenticated clients onto the notification hub.
type WSHandler struct {
	hub      *notify.Hub
	svc      *service.BookingService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler constructs a WSHandler.  checkOrigin may be nil to accept
// any origin.
func NewWSHandler(hub *notify.Hub, svc *service.BookingService, log *zap.Logger, checkOrigin func(r *http.Request) bool) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WSHandler{
		hub: hub,
		svc: svc,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Subscribe handles GET /v1/ws?lots=1,2.  Every client receives its own
// driver channel and the map channel; lot owners additionally receive the
// owner channel of each listed lot they own.
func (h *WSHandler) Subscribe(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	channels := []string{notify.DriverChannel(userID), notify.MapChannel}
	for _, s := range strings.Split(c.QueryParam("lots"), ",") {
		lotID, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil || lotID == 0 {
			continue
		}
		lot, err := h.svc.GetLot(c.Request().Context(), lotID)
		if err != nil {
			return writeError(c, h.log, err)
		}
		if lot.OwnerID != userID {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		channels = append(channels, notify.OwnerChannel(lotID))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}
	h.hub.Serve(conn, channels)
	return nil
}
