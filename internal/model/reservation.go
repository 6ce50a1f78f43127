package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidWindow is returned by NewWindow when start is not strictly
// before end.
var ErrInvalidWindow = errors.New("window start must be before end")

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// NewWindow builds a Window and rejects empty or inverted intervals.  Both
// ends are truncated to the microsecond, the precision the store keeps.
func NewWindow(start, end time.Time) (Window, error) {
	start, end = start.UTC().Truncate(time.Microsecond), end.UTC().Truncate(time.Microsecond)
	if !start.Before(end) {
		return Window{}, ErrInvalidWindow
	}
	return Window{Start: start, End: end}, nil
}

// Overlaps applies the half-open rule: a.Start < b.End && a.End > b.Start.
// Windows that only touch at an endpoint do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && w.End.After(o.Start)
}

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Ended reports whether the window is over at t.
func (w Window) Ended(t time.Time) bool { return !t.Before(w.End) }

// Reservation is a driver's claim on one slot of a lot for a window.
// Reservations are never deleted; terminal statuses close them.
//
// Fields:
//
//	ID            – primary key identifier.
//	LotID         – lot the slot belongs to.
//	DriverID      – driver who created the reservation.
//	VehiclePlate  – plate matched against gate events.
//	Window        – reserved interval, immutable after creation.
//	PricePerHour  – lot rate captured at creation; used for overstay too.
//	TotalPrice    – quarter-hour price of Window.
//	ExtraCharges  – overstay charge, zero until the vehicle overstays.
//	AmountDue     – TotalPrice + ExtraCharges.
//	Status        – lifecycle status.
//	PaymentStatus – settlement status.
//	IsInside      – true between gate entry and gate exit.
//	GateEntryAt   – first recorded entry.
//	GateExitAt    – recorded exit.
//	Version       – bumped on every write; guards conditional updates.
//	CreatedAt     – creation timestamp.
//	UpdatedAt     – last update timestamp.
type Reservation struct {
	ID            uint64          `json:"id"`
	LotID         uint64          `json:"lot_id"`
	DriverID      uint64          `json:"driver_id"`
	VehiclePlate  string          `json:"vehicle_plate"`
	Window        Window          `json:"window"`
	PricePerHour  decimal.Decimal `json:"price_per_hour"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	ExtraCharges  decimal.Decimal `json:"extra_charges"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	Status        Status          `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	IsInside      bool            `json:"is_inside"`
	GateEntryAt   *time.Time      `json:"gate_entry_time,omitempty"`
	GateExitAt    *time.Time      `json:"gate_exit_time,omitempty"`
	Version       uint32          `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Presentation derives the client facing label at now:
//
//	terminal            -> past
//	awaiting            -> pending
//	confirmed or active -> upcoming before start, in-progress inside the
//	                       window or while the vehicle is still inside,
//	                       past once the window has ended without it.
func (r Reservation) Presentation(now time.Time) Presentation {
	switch {
	case r.Status.Terminal():
		return PresentationPast
	case r.Status.Awaiting():
		return PresentationPending
	}
	if r.IsInside {
		return PresentationInProgress
	}
	switch {
	case now.Before(r.Window.Start):
		return PresentationUpcoming
	case now.Before(r.Window.End):
		return PresentationInProgress
	}
	return PresentationPast
}

// RecomputeAmountDue sets AmountDue from TotalPrice and ExtraCharges.
func (r *Reservation) RecomputeAmountDue() {
	r.AmountDue = r.TotalPrice.Add(r.ExtraCharges).Round(2)
}

// NormalizePlate upper-cases a plate and strips spaces and dashes so gate
// reads and booking input compare equal.
func NormalizePlate(p string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(p) {
		if r == ' ' || r == '-' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
