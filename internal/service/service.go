// Package service implements the reservation lifecycle: creation under the
// lot lock, owner and payment confirmation, cancellation, gate events and
// the reconciliation sweep.  The store is mutated only through these entry
// points; notifications are emitted after the protected section returns.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/lock"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/notify"
	"github.com/iliyamo/parking-slot-reservation/internal/occupancy"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// LotStore looks up and registers lots.
type LotStore interface {
	GetLot(ctx context.Context, id uint64) (*model.Lot, error)
	ListLots(ctx context.Context) ([]model.Lot, error)
	CreateLot(ctx context.Context, l *model.Lot) error
}

// ReservationStore persists reservations.  Update must be conditional on
// the expected status and the reservation's Version.
type ReservationStore interface {
	occupancy.Source
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	List(ctx context.Context, f repository.ReservationFilter) ([]model.Reservation, error)
	EntryCandidates(ctx context.Context, q repository.EntryQuery) ([]model.Reservation, error)
	InsideByPlate(ctx context.Context, q repository.ExitQuery) ([]model.Reservation, error)
	Update(ctx context.Context, r *model.Reservation, expect model.Status) error
}

// Options tunes the service.  Zero values fall back to defaults.
type Options struct {
	LockTimeout      time.Duration    // bounded wait for the lot lock, default 8s
	Policy           model.Policy     // no-show grace and early entry tolerance
	ReconcileWorkers int              // concurrent writes per sweep, default 8
	Now              func() time.Time // clock, default time.Now().UTC()
}

// BookingService owns every state change of a reservation.
type BookingService struct {
	lots         LotStore
	reservations ReservationStore
	occupancy    *occupancy.Resolver
	locker       lock.Locker
	sink         notify.Sink
	log          *zap.Logger
	opts         Options
}

// NewBookingService wires a service.  A nil sink discards events and a nil
// logger is replaced by a no-op logger.
func NewBookingService(lots LotStore, reservations ReservationStore, locker lock.Locker, sink notify.Sink, log *zap.Logger, opts Options) *BookingService {
	if lots == nil || reservations == nil || locker == nil {
		panic("nil dependency passed to NewBookingService")
	}
	if sink == nil {
		sink = notify.Nop
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 8 * time.Second
	}
	def := model.DefaultPolicy()
	if opts.Policy.NoShowGrace <= 0 {
		opts.Policy.NoShowGrace = def.NoShowGrace
	}
	if opts.Policy.EarlyEntryTolerance <= 0 {
		opts.Policy.EarlyEntryTolerance = def.EarlyEntryTolerance
	}
	if opts.ReconcileWorkers <= 0 {
		opts.ReconcileWorkers = 8
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &BookingService{
		lots:         lots,
		reservations: reservations,
		occupancy:    occupancy.NewResolver(reservations),
		locker:       locker,
		sink:         sink,
		log:          log,
		opts:         opts,
	}
}

func (s *BookingService) now() time.Time { return s.opts.Now().UTC() }

// Now returns the service clock, used to derive presentation labels.
func (s *BookingService) Now() time.Time { return s.now() }

func (s *BookingService) getLot(ctx context.Context, id uint64) (*model.Lot, error) {
	l, err := s.lots.GetLot(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrLotNotFound
	}
	return l, err
}

func (s *BookingService) getReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReservationNotFound
	}
	return r, err
}

// save writes r conditionally and maps a lost race to ErrConcurrentUpdate.
func (s *BookingService) save(ctx context.Context, r *model.Reservation, expect model.Status) error {
	r.UpdatedAt = s.now()
	err := s.reservations.Update(ctx, r, expect)
	switch {
	case errors.Is(err, repository.ErrStale):
		return ErrConcurrentUpdate
	case errors.Is(err, repository.ErrNotFound):
		return ErrReservationNotFound
	}
	return err
}

// displace rejects every reservation in statuses overlapping w on the lot
// except keepID.  Failures are logged; the decision that triggered the
// displacement has already been persisted.
func (s *BookingService) displace(ctx context.Context, out *outbox, lotID uint64, w model.Window, statuses []model.Status, keepID uint64) {
	victims, err := s.occupancy.Overlapping(ctx, lotID, w, statuses, keepID)
	if err != nil {
		s.log.Error("list overlapping reservations", zap.Uint64("lot_id", lotID), zap.Error(err))
		return
	}
	for i := range victims {
		v := victims[i]
		prev := v.Status
		if err := v.Transition(model.StatusRejected, model.ActorSystem); err != nil {
			continue
		}
		if err := s.save(ctx, &v, prev); err != nil {
			s.log.Warn("displace reservation", zap.Uint64("reservation_id", v.ID), zap.Error(err))
			continue
		}
		out.reservation(EventRejected, v)
		out.spot(SpotRejected, v)
	}
}

// notifyTimeout bounds delivery of one batch of events.
const notifyTimeout = 2 * time.Second

// emit delivers collected events.  Delivery failures are logged only.  The
// context is detached from the caller so a finished request does not cancel
// delivery, and bounded so a slow sink cannot hold the caller.
func (s *BookingService) emit(ctx context.Context, out outbox) {
	if len(out) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	for _, ev := range out {
		if err := s.sink.Notify(ctx, ev); err != nil {
			s.log.Warn("notification delivery failed",
				zap.String("channel", ev.Channel), zap.String("event", ev.Name), zap.Error(err))
		}
	}
}
