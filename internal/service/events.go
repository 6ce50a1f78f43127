package service

import (
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/notify"
)

// Event names sent to driver and owner channels.
const (
	EventCreated       = "booking:created"
	EventPending       = "booking:pending"
	EventConfirmed     = "booking:confirmed"
	EventRejected      = "booking:rejected"
	EventCancelled     = "booking:cancelled"
	EventPaymentFailed = "booking:paymentFailed"
	EventEntered       = "booking:entered"
	EventExited        = "booking:exited"
	EventInProgress    = "booking:inProgress"
	EventAutoCancelled = "booking:autoCancelled"
	EventCompleted     = "booking:completed"
	EventExpired       = "booking:expired"
	EventOverstay      = "booking:overstay"
)

// Event names sent to the map channel.
const (
	SpotBooked     = "spot:bookingCreated"
	SpotConfirmed  = "spot:bookingConfirmed"
	SpotRejected   = "spot:bookingRejected"
	SpotCancelled  = "spot:bookingCancelled"
	SpotEntered    = "spot:entered"
	SpotExited     = "spot:exited"
	SpotInProgress = "spot:inProgress"
	SpotNoShow     = "spot:noShowCancelled"
	SpotCompleted  = "spot:completed"
	SpotExpired    = "spot:expired"
)

// LotUpdate is the map channel payload.  It carries no driver data.
type LotUpdate struct {
	LotID         uint64 `json:"lot_id"`
	ReservationID uint64 `json:"reservation_id"`
}

// outbox collects events inside a protected section for later delivery.
type outbox []notify.Event

// reservation queues name for the driver and the lot owner.
func (o *outbox) reservation(name string, r model.Reservation) {
	*o = append(*o,
		notify.Event{Channel: notify.DriverChannel(r.DriverID), Name: name, Payload: r},
		notify.Event{Channel: notify.OwnerChannel(r.LotID), Name: name, Payload: r},
	)
}

// owner queues name for the lot owner only.
func (o *outbox) owner(name string, r model.Reservation) {
	*o = append(*o, notify.Event{Channel: notify.OwnerChannel(r.LotID), Name: name, Payload: r})
}

// spot queues a map update.
func (o *outbox) spot(name string, r model.Reservation) {
	*o = append(*o, notify.Event{Channel: notify.MapChannel, Name: name, Payload: LotUpdate{LotID: r.LotID, ReservationID: r.ID}})
}
