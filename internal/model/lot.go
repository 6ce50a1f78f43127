package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is the capacity bearing resource drivers reserve against.
//
// Fields:
//
//	ID           – primary key identifier.
//	OwnerID      – user who owns the lot and approves reservations.
//	Name         – display name.
//	TotalSlots   – capacity; at most this many occupying reservations may
//	               overlap any instant.
//	PricePerHour – hourly rate, snapshotted into each reservation.
//	AutoApproval – paid reservations confirm without the owner.
//	CreatedAt    – creation timestamp.
//	UpdatedAt    – last update timestamp.
type Lot struct {
	ID           uint64          `json:"id"`
	OwnerID      uint64          `json:"owner_id"`
	Name         string          `json:"name"`
	TotalSlots   int             `json:"total_slots"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	AutoApproval bool            `json:"auto_approval"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// HoldingStatuses are the statuses that count against this lot's capacity.
// On manual-approval lots a reservation holds its slot from creation.  On
// auto-approval lots the slot is claimed at payment and the first paid
// reservation displaces the unpaid overlaps.
func (l Lot) HoldingStatuses() []Status {
	if l.AutoApproval {
		return OccupyingStatuses
	}
	return append([]Status{StatusPendingPayment}, OccupyingStatuses...)
}
