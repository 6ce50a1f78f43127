package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// liveStatuses are the statuses a sweep looks at.
var liveStatuses = []model.Status{
	model.StatusPendingPayment, model.StatusPending, model.StatusConfirmed, model.StatusActive,
}

// TickStats summarizes one sweep.
type TickStats struct {
	Scanned int `json:"scanned"`
	Changed int `json:"changed"`
	Stale   int `json:"stale"`
	Failed  int `json:"failed"`
}

// RunReconciliationTick applies the time driven rules to every live
// reservation at now.  Each reservation is written with a conditional
// update; one that changed underneath the sweep is skipped until the next
// tick.  Individual failures are logged and counted, never returned.  The
// error result is reserved for failing to list reservations at all.
func (s *BookingService) RunReconciliationTick(ctx context.Context, now time.Time) (TickStats, error) {
	if now.IsZero() {
		now = s.now()
	}
	now = now.UTC()

	rs, err := s.reservations.List(ctx, repository.ReservationFilter{Statuses: liveStatuses})
	if err != nil {
		return TickStats{}, err
	}

	var (
		mu    sync.Mutex
		stats = TickStats{Scanned: len(rs)}
		out   outbox
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ReconcileWorkers)
	for i := range rs {
		r := rs[i]
		g.Go(func() error {
			step := model.Reconcile(r, now, s.opts.Policy)
			if !step.Changed {
				return nil
			}
			next := step.Next
			err := s.save(gctx, &next, r.Status)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrConcurrentUpdate):
				stats.Stale++
				s.log.Debug("reconcile skipped changed reservation", zap.Uint64("reservation_id", r.ID))
			case err != nil:
				stats.Failed++
				s.log.Error("reconcile reservation", zap.Uint64("reservation_id", r.ID), zap.Error(err))
			default:
				stats.Changed++
				sweepEvents(&out, step.Outcome, next)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.emit(ctx, out)
	if stats.Changed > 0 || stats.Failed > 0 {
		s.log.Info("reconciliation tick",
			zap.Int("scanned", stats.Scanned), zap.Int("changed", stats.Changed),
			zap.Int("stale", stats.Stale), zap.Int("failed", stats.Failed))
	}
	return stats, nil
}

func sweepEvents(out *outbox, outcome string, r model.Reservation) {
	switch outcome {
	case model.SweepActivated:
		out.reservation(EventInProgress, r)
		out.spot(SpotInProgress, r)
	case model.SweepNoShow:
		out.reservation(EventAutoCancelled, r)
		out.spot(SpotNoShow, r)
	case model.SweepCompleted:
		out.reservation(EventCompleted, r)
		out.spot(SpotCompleted, r)
	case model.SweepExpired:
		out.reservation(EventExpired, r)
		out.spot(SpotExpired, r)
	case model.SweepOverstay:
		out.owner(EventOverstay, r)
	}
}
