// Package queue carries reservation events over RabbitMQ: a publisher that
// plugs into the notification fan-out and an audit consumer that appends
// each event to a rotating log file.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// QueueName is the durable queue reservation events are published to.
const QueueName = "reservation.events"

// ReservationEvent is published on every reservation lifecycle change.  It
// contains enough information for downstream consumers to audit, notify or
// trigger analytics without querying the primary database.
type ReservationEvent struct {
	EventID       string `json:"event_id"`
	Event         string `json:"event"`
	ReservationID uint64 `json:"reservation_id"`
	LotID         uint64 `json:"lot_id"`
	DriverID      uint64 `json:"driver_id"`
	VehiclePlate  string `json:"vehicle_plate"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	AmountDue     string `json:"amount_due"`
	ExtraCharges  string `json:"extra_charges"`
	OccurredAt    string `json:"occurred_at"`
}

// NewReservationEvent snapshots r under the given event name.
func NewReservationEvent(name string, r model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		EventID:       uuid.NewString(),
		Event:         name,
		ReservationID: r.ID,
		LotID:         r.LotID,
		DriverID:      r.DriverID,
		VehiclePlate:  r.VehiclePlate,
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		StartTime:     r.Window.Start.UTC().Format(time.RFC3339),
		EndTime:       r.Window.End.UTC().Format(time.RFC3339),
		AmountDue:     r.AmountDue.StringFixed(2),
		ExtraCharges:  r.ExtraCharges.StringFixed(2),
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}
