package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/lock"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/occupancy"
	"github.com/iliyamo/parking-slot-reservation/internal/pricing"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// CreateLot registers a lot for ownerID.
func (s *BookingService) CreateLot(ctx context.Context, ownerID uint64, name string, totalSlots int, pricePerHour decimal.Decimal, autoApproval bool) (*model.Lot, error) {
	name = strings.TrimSpace(name)
	if name == "" || totalSlots < 1 || pricePerHour.IsNegative() {
		return nil, ErrInvalidLot
	}
	now := s.now()
	l := &model.Lot{
		OwnerID:      ownerID,
		Name:         name,
		TotalSlots:   totalSlots,
		PricePerHour: pricePerHour.Round(2),
		AutoApproval: autoApproval,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.lots.CreateLot(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// GetLot returns a lot or ErrLotNotFound.
func (s *BookingService) GetLot(ctx context.Context, id uint64) (*model.Lot, error) {
	return s.getLot(ctx, id)
}

// Availability reports free slots of a lot over w.
func (s *BookingService) Availability(ctx context.Context, lotID uint64, w model.Window) (int, error) {
	l, err := s.getLot(ctx, lotID)
	if err != nil {
		return 0, err
	}
	n, err := s.occupancy.Occupied(ctx, *l, w, 0)
	if err != nil {
		return 0, err
	}
	return occupancy.FreeSlots(l.TotalSlots, n), nil
}

// LotAvailability is a lot with its free slots over a queried window.
type LotAvailability struct {
	Lot       model.Lot `json:"lot"`
	FreeSlots int       `json:"available_slots"`
}

// SearchAvailable lists every lot with at least one free slot over w.
func (s *BookingService) SearchAvailable(ctx context.Context, w model.Window) ([]LotAvailability, error) {
	lots, err := s.lots.ListLots(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]LotAvailability, 0, len(lots))
	for _, l := range lots {
		n, err := s.occupancy.Occupied(ctx, l, w, 0)
		if err != nil {
			return nil, err
		}
		if free := occupancy.FreeSlots(l.TotalSlots, n); free > 0 {
			out = append(out, LotAvailability{Lot: l, FreeSlots: free})
		}
	}
	return out, nil
}

// CreateReservation books one slot of lotID for [start, end).  The window
// is validated before any lock is taken.  Occupancy is counted and the
// reservation written inside one acquisition of the lot lock.
func (s *BookingService) CreateReservation(ctx context.Context, driverID, lotID uint64, start, end time.Time, plate string) (*model.Reservation, error) {
	now := s.now()
	w, err := model.NewWindow(start, end)
	if err != nil || !now.Before(w.Start) {
		return nil, ErrInvalidWindow
	}
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return nil, ErrPlateRequired
	}
	lot, err := s.getLot(ctx, lotID)
	if err != nil {
		return nil, err
	}

	var created model.Reservation
	var out outbox
	err = s.locker.WithExclusiveAccess(ctx, lock.LotKey(lotID), s.opts.LockTimeout, func(ctx context.Context) error {
		occupied, err := s.occupancy.Occupied(ctx, *lot, w, 0)
		if err != nil {
			return err
		}
		if occupied >= lot.TotalSlots {
			return ErrCapacityExceeded
		}
		total := pricing.Quote(w.Start, w.End, lot.PricePerHour)
		r := model.Reservation{
			LotID:         lotID,
			DriverID:      driverID,
			VehiclePlate:  plate,
			Window:        w,
			PricePerHour:  lot.PricePerHour,
			TotalPrice:    total,
			ExtraCharges:  decimal.Zero,
			AmountDue:     total,
			Status:        model.StatusPendingPayment,
			PaymentStatus: model.PaymentPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.reservations.Create(ctx, &r); err != nil {
			return err
		}
		out.reservation(EventCreated, r)
		out.spot(SpotBooked, r)
		if lot.AutoApproval {
			s.displace(ctx, &out, lotID, w, []model.Status{model.StatusPending}, r.ID)
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, out)
	s.log.Info("reservation created",
		zap.Uint64("reservation_id", created.ID), zap.Uint64("lot_id", lotID), zap.Uint64("driver_id", driverID))
	return &created, nil
}

// ConfirmReservation lets the lot owner approve an awaiting reservation.
// When the confirmation fills the last committed slot, the remaining
// overlapping awaiting reservations are rejected.
func (s *BookingService) ConfirmReservation(ctx context.Context, ownerID, reservationID uint64) (*model.Reservation, error) {
	first, err := s.getReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	var confirmed model.Reservation
	var out outbox
	err = s.locker.WithExclusiveAccess(ctx, lock.LotKey(first.LotID), s.opts.LockTimeout, func(ctx context.Context) error {
		lot, err := s.getLot(ctx, first.LotID)
		if err != nil {
			return err
		}
		if lot.OwnerID != ownerID {
			return ErrForbidden
		}
		if lot.AutoApproval {
			return ErrAutoApprovalConflict
		}
		r, err := s.getReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if !r.Status.Awaiting() {
			return fmt.Errorf("%w: cannot confirm a %s reservation", ErrStateConflict, r.Status)
		}
		occupied, err := s.occupancy.Occupied(ctx, *lot, r.Window, r.ID)
		if err != nil {
			return err
		}
		if occupied >= lot.TotalSlots {
			return ErrCapacityExceeded
		}
		prev := r.Status
		if err := r.Transition(model.StatusConfirmed, model.ActorOwner); err != nil {
			return fmt.Errorf("%w: %v", ErrStateConflict, err)
		}
		if err := s.save(ctx, r, prev); err != nil {
			return err
		}
		out.reservation(EventConfirmed, *r)
		out.spot(SpotConfirmed, *r)
		if err := s.displaceIfFull(ctx, &out, *lot, *r); err != nil {
			return err
		}
		confirmed = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, out)
	return &confirmed, nil
}

// displaceIfFull rejects overlapping awaiting reservations once committed
// reservations use every slot during r's window.
func (s *BookingService) displaceIfFull(ctx context.Context, out *outbox, lot model.Lot, r model.Reservation) error {
	committed, err := s.occupancy.Committed(ctx, lot.ID, r.Window)
	if err != nil {
		return err
	}
	if committed >= lot.TotalSlots {
		s.displace(ctx, out, lot.ID, r.Window, model.AwaitingStatuses, r.ID)
	}
	return nil
}

// CancelReservation cancels on behalf of the driver (cancelled) or the lot
// owner (rejected).  It is refused while the vehicle is inside.
func (s *BookingService) CancelReservation(ctx context.Context, actorID, reservationID uint64) (*model.Reservation, error) {
	r, err := s.getReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	lot, err := s.getLot(ctx, r.LotID)
	if err != nil {
		return nil, err
	}
	target, actor := model.StatusCancelled, model.ActorDriver
	switch {
	case lot.OwnerID == actorID:
		target, actor = model.StatusRejected, model.ActorOwner
	case r.DriverID == actorID:
	default:
		return nil, ErrForbidden
	}
	if r.IsInside {
		return nil, ErrVehicleInside
	}
	prev := r.Status
	if err := r.Transition(target, actor); err != nil {
		return nil, fmt.Errorf("%w: cannot cancel a %s reservation", ErrStateConflict, prev)
	}
	if err := s.save(ctx, r, prev); err != nil {
		return nil, err
	}
	var out outbox
	name, spot := EventCancelled, SpotCancelled
	if target == model.StatusRejected {
		name, spot = EventRejected, SpotRejected
	}
	out.reservation(name, *r)
	out.spot(spot, *r)
	s.emit(ctx, out)
	return r, nil
}

// ConfirmPayment records the payment collaborator's verdict.  A successful
// payment on a pending-payment reservation takes the lot lock: the
// reservation is confirmed on auto-approval lots, queued for the owner on
// manual lots, and rejected if its slot is gone.
func (s *BookingService) ConfirmPayment(ctx context.Context, reservationID uint64, paid bool) (*model.Reservation, error) {
	r, err := s.getReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.PaymentStatus == model.PaymentPaid {
		if !paid {
			return nil, fmt.Errorf("%w: reservation is already paid", ErrStateConflict)
		}
		return r, nil
	}

	var out outbox
	if !paid {
		return s.failPayment(ctx, r)
	}

	if r.Status != model.StatusPendingPayment {
		// post-pay settlement, lifecycle is unaffected
		r.PaymentStatus = model.PaymentPaid
		if err := s.save(ctx, r, r.Status); err != nil {
			return nil, err
		}
		return r, nil
	}

	var result model.Reservation
	err = s.locker.WithExclusiveAccess(ctx, lock.LotKey(r.LotID), s.opts.LockTimeout, func(ctx context.Context) error {
		lot, err := s.getLot(ctx, r.LotID)
		if err != nil {
			return err
		}
		cur, err := s.getReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		prev := cur.Status
		cur.PaymentStatus = model.PaymentPaid
		if prev != model.StatusPendingPayment {
			if err := s.save(ctx, cur, prev); err != nil {
				return err
			}
			result = *cur
			return nil
		}
		occupied, err := s.occupancy.Occupied(ctx, *lot, cur.Window, cur.ID)
		if err != nil {
			return err
		}
		var name string
		switch {
		case occupied >= lot.TotalSlots:
			_ = cur.Transition(model.StatusRejected, model.ActorPayment)
			name = EventRejected
		case lot.AutoApproval:
			_ = cur.Transition(model.StatusConfirmed, model.ActorPayment)
			name = EventConfirmed
		default:
			_ = cur.Transition(model.StatusPending, model.ActorPayment)
			name = EventPending
		}
		if err := s.save(ctx, cur, prev); err != nil {
			return err
		}
		out.reservation(name, *cur)
		switch cur.Status {
		case model.StatusConfirmed:
			out.spot(SpotConfirmed, *cur)
			if err := s.displaceIfFull(ctx, &out, *lot, *cur); err != nil {
				return err
			}
		case model.StatusRejected:
			out.spot(SpotRejected, *cur)
		}
		result = *cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, out)
	return &result, nil
}

// failPayment records a declined payment.  A pending-payment reservation
// on a manual-approval lot holds a slot, so it is rejected under the lot
// lock to release it.  Elsewhere the status is kept and the driver may
// retry the payment.
func (s *BookingService) failPayment(ctx context.Context, r *model.Reservation) (*model.Reservation, error) {
	lot, err := s.getLot(ctx, r.LotID)
	if err != nil {
		return nil, err
	}
	var out outbox
	if lot.AutoApproval || r.Status != model.StatusPendingPayment {
		r.PaymentStatus = model.PaymentFailed
		if err := s.save(ctx, r, r.Status); err != nil {
			return nil, err
		}
		out.reservation(EventPaymentFailed, *r)
		s.emit(ctx, out)
		return r, nil
	}

	var result model.Reservation
	err = s.locker.WithExclusiveAccess(ctx, lock.LotKey(r.LotID), s.opts.LockTimeout, func(ctx context.Context) error {
		cur, err := s.getReservation(ctx, r.ID)
		if err != nil {
			return err
		}
		if cur.PaymentStatus == model.PaymentPaid {
			return fmt.Errorf("%w: reservation is already paid", ErrStateConflict)
		}
		prev := cur.Status
		cur.PaymentStatus = model.PaymentFailed
		released := cur.Transition(model.StatusRejected, model.ActorPayment) == nil
		if err := s.save(ctx, cur, prev); err != nil {
			return err
		}
		out.reservation(EventPaymentFailed, *cur)
		if released {
			out.reservation(EventRejected, *cur)
			out.spot(SpotRejected, *cur)
		}
		result = *cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, out)
	return &result, nil
}

// GetReservation returns a reservation visible to actorID, its driver or
// the lot owner.
func (s *BookingService) GetReservation(ctx context.Context, actorID, reservationID uint64) (*model.Reservation, error) {
	r, err := s.getReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.DriverID == actorID {
		return r, nil
	}
	lot, err := s.getLot(ctx, r.LotID)
	if err != nil {
		return nil, err
	}
	if lot.OwnerID != actorID {
		return nil, ErrForbidden
	}
	return r, nil
}

// Page bounds a listing.  Limit 0 means no limit.
type Page struct {
	Limit  int
	Offset int
}

// ListDriverReservations lists a driver's reservations, optionally only
// those whose presentation label is want.
func (s *BookingService) ListDriverReservations(ctx context.Context, driverID uint64, want model.Presentation, page Page) ([]model.Reservation, error) {
	rs, err := s.reservations.List(ctx, repository.ReservationFilter{DriverID: driverID})
	if err != nil {
		return nil, err
	}
	return paginate(filterPresentation(rs, want, s.now()), page), nil
}

// ListLotReservations lists reservations of a lot for its owner.
func (s *BookingService) ListLotReservations(ctx context.Context, ownerID, lotID uint64, want model.Presentation, page Page) ([]model.Reservation, error) {
	lot, err := s.getLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	rs, err := s.reservations.List(ctx, repository.ReservationFilter{LotID: lotID})
	if err != nil {
		return nil, err
	}
	return paginate(filterPresentation(rs, want, s.now()), page), nil
}

func filterPresentation(rs []model.Reservation, want model.Presentation, now time.Time) []model.Reservation {
	if want == "" {
		return rs
	}
	out := rs[:0]
	for _, r := range rs {
		if r.Presentation(now) == want {
			out = append(out, r)
		}
	}
	return out
}

func paginate(rs []model.Reservation, p Page) []model.Reservation {
	if p.Offset > 0 {
		if p.Offset >= len(rs) {
			return []model.Reservation{}
		}
		rs = rs[p.Offset:]
	}
	if p.Limit > 0 && p.Limit < len(rs) {
		rs = rs[:p.Limit]
	}
	return rs
}
