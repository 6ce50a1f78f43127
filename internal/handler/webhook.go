package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// WebhookHandler receives calls from gate hardware and the payment
// collaborator.  Both are authenticated by RequireWebhookSecret.
type WebhookHandler struct {
	svc *service.BookingService
	log *zap.Logger
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(svc *service.BookingService, log *zap.Logger) *WebhookHandler {
	if svc == nil {
		panic("nil service passed to NewWebhookHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, log: log}
}

type paymentCallback struct {
	ReservationID uint64 `json:"reservation_id"`
	Paid          *bool  `json:"paid"`
}

// PaymentCallback handles POST /v1/payments/callback.
func (h *WebhookHandler) PaymentCallback(c echo.Context) error {
	var body paymentCallback
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ReservationID == 0 || body.Paid == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id and paid are required"})
	}
	r, err := h.svc.ConfirmPayment(c.Request().Context(), body.ReservationID, *body.Paid)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": r.ID,
		"status":         r.Status,
		"payment_status": r.PaymentStatus,
	})
}

type gateEvent struct {
	LotID     uint64 `json:"lot_id"`
	Plate     string `json:"plate"`
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
}

// GateEvent handles POST /v1/gate/events.  Direction is "entry" or "exit";
// a missing timestamp means now.
func (h *WebhookHandler) GateEvent(c echo.Context) error {
	var body gateEvent
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.LotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lot_id is required"})
	}
	var at time.Time
	if body.Timestamp != "" {
		t, ok := parseTime(body.Timestamp)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "timestamp must be RFC 3339"})
		}
		at = t
	}
	ctx := c.Request().Context()
	switch strings.ToLower(body.Direction) {
	case "entry", "in":
		id, err := h.svc.HandleGateEntry(ctx, body.LotID, body.Plate, at)
		if err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"reservation_id": id, "open": true})
	case "exit", "out":
		receipt, err := h.svc.HandleGateExit(ctx, body.LotID, body.Plate, at)
		if err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(http.StatusOK, receipt)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "direction must be entry or exit"})
}
