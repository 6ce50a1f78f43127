package model

import (
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/pricing"
)

// Policy holds the time based rules applied by the lifecycle.
type Policy struct {
	NoShowGrace         time.Duration // a confirmed vehicle missing this long after start is a no-show
	EarlyEntryTolerance time.Duration // how early before start the gate accepts a vehicle
	PaymentHold         time.Duration // unpaid reservations expire this long after creation, 0 disables
}

// DefaultPolicy returns the fifteen minute grace and tolerance with no
// payment hold.
func DefaultPolicy() Policy {
	return Policy{NoShowGrace: 15 * time.Minute, EarlyEntryTolerance: 15 * time.Minute}
}

// Sweep outcomes reported by Reconcile.
const (
	SweepNone      = ""
	SweepActivated = "activated"
	SweepNoShow    = "no_show"
	SweepCompleted = "completed"
	SweepExpired   = "expired"
	SweepOverstay  = "overstay"
)

// ReconcileResult is the outcome of one reconciliation step.
type ReconcileResult struct {
	Next    Reservation // reservation after the step
	Changed bool        // false when Next equals the input
	Outcome string      // Sweep* constant describing the change
}

// Reconcile applies the time driven rules to r at now.  It is pure and
// idempotent: feeding Next back in with the same now yields Changed=false.
func Reconcile(r Reservation, now time.Time, p Policy) ReconcileResult {
	next := r
	res := ReconcileResult{Next: r}
	if r.Status.Terminal() {
		return res
	}

	ended := r.Window.Ended(now)

	if r.Status.Awaiting() {
		if ended || r.paymentHoldElapsed(now, p.PaymentHold) {
			next.Status = StatusExpired
			return ReconcileResult{Next: next, Changed: true, Outcome: SweepExpired}
		}
		return res
	}

	if r.IsInside {
		if r.Status == StatusConfirmed && !now.Before(r.Window.Start) {
			next.Status = StatusActive
			res = ReconcileResult{Next: next, Changed: true, Outcome: SweepActivated}
		}
		if ended {
			extra := pricing.Overstay(r.Window.End, now, r.PricePerHour)
			if !extra.Equal(next.ExtraCharges) {
				next.ExtraCharges = extra
				next.RecomputeAmountDue()
				return ReconcileResult{Next: next, Changed: true, Outcome: SweepOverstay}
			}
		}
		return res
	}

	// vehicle not inside
	switch {
	case ended && r.Status == StatusActive:
		next.Status = StatusCompleted
		return ReconcileResult{Next: next, Changed: true, Outcome: SweepCompleted}
	case ended:
		next.Status = StatusExpired
		return ReconcileResult{Next: next, Changed: true, Outcome: SweepNoShow}
	case now.After(r.Window.Start.Add(p.NoShowGrace)):
		next.Status = StatusExpired
		return ReconcileResult{Next: next, Changed: true, Outcome: SweepNoShow}
	}
	return res
}

func (r Reservation) paymentHoldElapsed(now time.Time, hold time.Duration) bool {
	if hold <= 0 || r.Status != StatusPendingPayment || r.CreatedAt.IsZero() {
		return false
	}
	return !now.Before(r.CreatedAt.Add(hold))
}
