// Package occupancy answers "how many slots of a lot are taken during a
// window".  It only reads; decisions acting on its answer must be taken
// under the lot's lock.
package occupancy

import (
	"context"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// Source is the store query the resolver relies on.
type Source interface {
	CountOverlapping(ctx context.Context, q repository.OverlapQuery) (int, error)
	ListOverlapping(ctx context.Context, q repository.OverlapQuery) ([]model.Reservation, error)
}

// Resolver counts and lists overlapping reservations on a lot.
type Resolver struct {
	src Source
}

// NewResolver returns a Resolver reading from src.
func NewResolver(src Source) *Resolver { return &Resolver{src: src} }

// Occupied counts reservations holding a slot of lot during w, leaving out
// excludeID when it is non-zero.
func (r *Resolver) Occupied(ctx context.Context, lot model.Lot, w model.Window, excludeID uint64) (int, error) {
	return r.src.CountOverlapping(ctx, repository.OverlapQuery{
		LotID: lot.ID, Window: w, Statuses: lot.HoldingStatuses(), ExcludeID: excludeID,
	})
}

// Committed counts confirmed and active reservations overlapping w.
func (r *Resolver) Committed(ctx context.Context, lotID uint64, w model.Window) (int, error) {
	return r.src.CountOverlapping(ctx, repository.OverlapQuery{
		LotID: lotID, Window: w, Statuses: model.CommittedStatuses,
	})
}

// Overlapping lists reservations in statuses overlapping w, without excludeID.
func (r *Resolver) Overlapping(ctx context.Context, lotID uint64, w model.Window, statuses []model.Status, excludeID uint64) ([]model.Reservation, error) {
	return r.src.ListOverlapping(ctx, repository.OverlapQuery{
		LotID: lotID, Window: w, Statuses: statuses, ExcludeID: excludeID,
	})
}

// FreeSlots returns capacity minus occupied, never below zero.
func FreeSlots(capacity, occupied int) int {
	if occupied >= capacity {
		return 0
	}
	return capacity - occupied
}
