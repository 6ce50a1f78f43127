package model

// Status is the lifecycle status of a reservation.  It is the only status
// that is persisted; the presentation label shown to clients is derived
// from it on read (see Reservation.Presentation).
type Status string

const (
	StatusPendingPayment Status = "pending-payment" // created, waiting for the payment collaborator
	StatusPending        Status = "pending"         // paid, waiting for the lot owner
	StatusConfirmed      Status = "confirmed"       // slot guaranteed
	StatusActive         Status = "active"          // vehicle entered through the gate
	StatusCompleted      Status = "completed"       // vehicle left, reservation settled
	StatusCancelled      Status = "cancelled"       // cancelled by the driver
	StatusRejected       Status = "rejected"        // rejected by the owner or displaced by capacity
	StatusExpired        Status = "expired"         // released by the clock (no-show or never confirmed)
)

// Statuses lists every lifecycle status in declaration order.
var Statuses = []Status{
	StatusPendingPayment, StatusPending, StatusConfirmed, StatusActive,
	StatusCompleted, StatusCancelled, StatusRejected, StatusExpired,
}

// OccupyingStatuses count against a lot's capacity.
var OccupyingStatuses = []Status{StatusPending, StatusConfirmed, StatusActive}

// CommittedStatuses are the statuses whose slot is guaranteed.
var CommittedStatuses = []Status{StatusConfirmed, StatusActive}

// AwaitingStatuses are waiting for payment or owner approval.
var AwaitingStatuses = []Status{StatusPendingPayment, StatusPending}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Awaiting reports whether s is pending-payment or pending.
func (s Status) Awaiting() bool {
	return s == StatusPendingPayment || s == StatusPending
}

// PaymentStatus tracks settlement independently of the lifecycle.
type PaymentStatus string

const (
	PaymentNotPaid  PaymentStatus = "not-paid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Presentation is the client facing label derived from Status and the
// current time.  It is never stored.
type Presentation string

const (
	PresentationUpcoming   Presentation = "upcoming"
	PresentationInProgress Presentation = "in-progress"
	PresentationPast       Presentation = "past"
	PresentationPending    Presentation = "pending"
)

// ParsePresentation returns the presentation label named by s.
func ParsePresentation(s string) (Presentation, bool) {
	switch p := Presentation(s); p {
	case PresentationUpcoming, PresentationInProgress, PresentationPast, PresentationPending:
		return p, true
	}
	return "", false
}
