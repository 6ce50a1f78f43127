package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/pricing"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// gateRetries bounds re-reads when a gate write loses a race with the sweep.
const gateRetries = 3

// ExitReceipt is returned to the gate on exit.
type ExitReceipt struct {
	ReservationID uint64          `json:"reservation_id"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	ExtraCharges  decimal.Decimal `json:"extra_charges"`
}

// HandleGateEntry matches a plate read at the entry gate to the earliest
// starting committed reservation the vehicle may enter on and marks it
// inside and active.
func (s *BookingService) HandleGateEntry(ctx context.Context, lotID uint64, plate string, at time.Time) (uint64, error) {
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return 0, ErrPlateRequired
	}
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	for attempt := 0; ; attempt++ {
		rs, err := s.reservations.EntryCandidates(ctx, repository.EntryQuery{
			LotID:    lotID,
			Plate:    plate,
			Statuses: model.CommittedStatuses,
			StartBy:  at.Add(s.opts.Policy.EarlyEntryTolerance),
			EndAfter: at,
		})
		if err != nil {
			return 0, err
		}
		if len(rs) == 0 {
			return 0, ErrNoMatch
		}
		r := rs[0]
		prev := r.Status
		if r.Status == model.StatusConfirmed {
			if err := r.Transition(model.StatusActive, model.ActorGate); err != nil {
				return 0, err
			}
		}
		r.IsInside = true
		if r.GateEntryAt == nil {
			t := at
			r.GateEntryAt = &t
		}
		err = s.save(ctx, &r, prev)
		if errors.Is(err, ErrConcurrentUpdate) && attempt < gateRetries {
			continue
		}
		if err != nil {
			return 0, err
		}
		var out outbox
		out.reservation(EventEntered, r)
		out.spot(SpotEntered, r)
		s.emit(ctx, out)
		s.log.Info("gate entry", zap.Uint64("reservation_id", r.ID), zap.Uint64("lot_id", lotID))
		return r.ID, nil
	}
}

// HandleGateExit matches a plate read at the exit gate to the most recently
// started reservation whose vehicle is inside, settles any overstay and
// completes it.
func (s *BookingService) HandleGateExit(ctx context.Context, lotID uint64, plate string, at time.Time) (*ExitReceipt, error) {
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return nil, ErrPlateRequired
	}
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	for attempt := 0; ; attempt++ {
		rs, err := s.reservations.InsideByPlate(ctx, repository.ExitQuery{
			LotID:    lotID,
			Plate:    plate,
			Statuses: model.CommittedStatuses,
		})
		if err != nil {
			return nil, err
		}
		if len(rs) == 0 {
			return nil, ErrNoMatch
		}
		r := rs[0]
		prev := r.Status
		if err := r.Transition(model.StatusCompleted, model.ActorGate); err != nil {
			return nil, err
		}
		t := at
		r.IsInside = false
		r.GateExitAt = &t
		r.ExtraCharges = pricing.Overstay(r.Window.End, at, r.PricePerHour)
		r.RecomputeAmountDue()
		if r.PaymentStatus != model.PaymentPaid {
			r.PaymentStatus = model.PaymentPending
		}
		err = s.save(ctx, &r, prev)
		if errors.Is(err, ErrConcurrentUpdate) && attempt < gateRetries {
			continue
		}
		if err != nil {
			return nil, err
		}
		var out outbox
		out.reservation(EventExited, r)
		out.spot(SpotExited, r)
		s.emit(ctx, out)
		s.log.Info("gate exit",
			zap.Uint64("reservation_id", r.ID), zap.String("amount_due", r.AmountDue.StringFixed(2)))
		return &ExitReceipt{ReservationID: r.ID, AmountDue: r.AmountDue, ExtraCharges: r.ExtraCharges}, nil
	}
}
