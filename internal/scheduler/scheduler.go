// Package scheduler runs the reconciliation sweep on a cron schedule.  The
// scheduler is an owned task: Start begins ticking, Stop cancels the
// in-flight tick and waits for it.  RunOnce drives a single deterministic
// tick without a live timer.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// DefaultSchedule sweeps once a minute.
const DefaultSchedule = "@every 1m"

// Reconciler is the sweep being scheduled.
type Reconciler interface {
	RunReconciliationTick(ctx context.Context, now time.Time) (service.TickStats, error)
}

// Scheduler owns the cron runner for the sweep.
type Scheduler struct {
	rec      Reconciler
	log      *zap.Logger
	schedule string
	now      func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// New returns a stopped scheduler.  An empty schedule uses DefaultSchedule.
func New(rec Reconciler, schedule string, log *zap.Logger) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		rec:      rec,
		log:      log,
		schedule: schedule,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the sweep and begins ticking.  Overlapping ticks are
// skipped: a slow sweep delays the next one rather than running beside it.
func (s *Scheduler) Start(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}
	logger := cronLogger{s.log.Sugar()}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	ctx, cancel := context.WithCancel(parent)
	if _, err := c.AddFunc(s.schedule, func() { s.tick(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}
	s.cron, s.cancel = c, cancel
	c.Start()
	s.log.Info("reconciliation scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop cancels any running tick and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.log.Info("reconciliation scheduler stopped")
}

// RunOnce runs one sweep at now.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (service.TickStats, error) {
	return s.rec.RunReconciliationTick(ctx, now)
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.rec.RunReconciliationTick(ctx, s.now()); err != nil {
		s.log.Error("reconciliation tick failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
