package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// ReservationHandler serves driver and owner reservation endpoints.  All
// methods assume JWTAuth and, where routed so, RequireRole already ran.
type ReservationHandler struct {
	svc *service.BookingService
	log *zap.Logger
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(svc *service.BookingService, log *zap.Logger) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReservationHandler{svc: svc, log: log}
}

// reservationView adds the derived presentation label to a reservation.
type reservationView struct {
	model.Reservation
	Presentation model.Presentation `json:"presentation"`
}

func (h *ReservationHandler) view(r model.Reservation) reservationView {
	return reservationView{Reservation: r, Presentation: r.Presentation(h.svc.Now())}
}

func (h *ReservationHandler) views(rs []model.Reservation) []reservationView {
	out := make([]reservationView, 0, len(rs))
	for _, r := range rs {
		out = append(out, h.view(r))
	}
	return out
}

type createReservationRequest struct {
	LotID        uint64 `json:"lot_id"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	VehiclePlate string `json:"vehicle_plate"`
}

// Create handles POST /v1/reservations.  A full lot answers 409 with code
// capacity_exceeded; a busy lot lock answers 503 with Retry-After.
func (h *ReservationHandler) Create(c echo.Context) error {
	driverID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createReservationRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.LotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lot_id is required"})
	}
	start, ok1 := parseTime(body.StartTime)
	end, ok2 := parseTime(body.EndTime)
	if !ok1 || !ok2 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time and end_time must be RFC 3339 timestamps"})
	}
	r, err := h.svc.CreateReservation(c.Request().Context(), driverID, body.LotID, start, end, body.VehiclePlate)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, h.view(*r))
}

// ListMine handles GET /v1/my-reservations?status=&limit=&offset=.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	driverID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	want, ok := parsePresentation(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be one of upcoming, in-progress, past, pending"})
	}
	rs, err := h.svc.ListDriverReservations(c.Request().Context(), driverID, want, parsePage(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": h.views(rs)})
}

// ListForLot handles GET /v1/lots/:id/reservations for the lot owner.
func (h *ReservationHandler) ListForLot(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	lotID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	want, ok := parsePresentation(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be one of upcoming, in-progress, past, pending"})
	}
	rs, err := h.svc.ListLotReservations(c.Request().Context(), ownerID, lotID, want, parsePage(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": h.views(rs)})
}

// Get handles GET /v1/reservations/:id for the driver or the lot owner.
func (h *ReservationHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.svc.GetReservation(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, h.view(*r))
}

// Cancel handles DELETE /v1/reservations/:id.  The driver cancels; the lot
// owner rejects.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.svc.CancelReservation(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, h.view(*r))
}

// Confirm handles PATCH /v1/reservations/:id/confirm for owners of
// manual-approval lots.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.svc.ConfirmReservation(c.Request().Context(), ownerID, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, h.view(*r))
}
