package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// LotHandler serves lot registration, lookup and availability.
type LotHandler struct {
	svc *service.BookingService
	log *zap.Logger
}

// NewLotHandler constructs a LotHandler.
func NewLotHandler(svc *service.BookingService, log *zap.Logger) *LotHandler {
	if svc == nil {
		panic("nil service passed to NewLotHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LotHandler{svc: svc, log: log}
}

type createLotRequest struct {
	Name         string          `json:"name"`
	TotalSlots   int             `json:"total_slots"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	AutoApproval bool            `json:"auto_approval"`
}

// Create handles POST /v1/lots for owners.
func (h *LotHandler) Create(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createLotRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	lot, err := h.svc.CreateLot(c.Request().Context(), ownerID, body.Name, body.TotalSlots, body.PricePerHour, body.AutoApproval)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, lot)
}

// Get handles GET /v1/lots/:id.
func (h *LotHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	lot, err := h.svc.GetLot(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, lot)
}

// Search handles GET /v1/lots?start=&end= and lists lots with a free slot
// over the window.
func (h *LotHandler) Search(c echo.Context) error {
	w, ok := parseWindow(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be RFC 3339 timestamps with start before end"})
	}
	lots, err := h.svc.SearchAvailable(c.Request().Context(), w)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"window": w, "lots": lots})
}

// Availability handles GET /v1/lots/:id/availability?start=&end=.
func (h *LotHandler) Availability(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	w, ok := parseWindow(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be RFC 3339 timestamps with start before end"})
	}
	free, err := h.svc.Availability(c.Request().Context(), id, w)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"lot_id": id, "window": w, "free_slots": free})
}

func parseWindow(c echo.Context) (model.Window, bool) {
	start, ok1 := parseTime(c.QueryParam("start"))
	end, ok2 := parseTime(c.QueryParam("end"))
	if !ok1 || !ok2 {
		return model.Window{}, false
	}
	w, err := model.NewWindow(start, end)
	return w, err == nil
}
