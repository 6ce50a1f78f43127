package config

import (
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

// Lock backends selectable with LOCK_BACKEND.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// PolicyConfig holds booking policy and concurrency tuning.
type PolicyConfig struct {
	LockTimeout         time.Duration // bounded wait for a lot lock
	LockBackend         string        // "memory" or "redis"
	LockLease           time.Duration // redis lock expiry, must exceed any protected section
	NoShowGrace         time.Duration
	EarlyEntryTolerance time.Duration
	PaymentHold         time.Duration // unpaid reservations expire after this, 0 disables
	ReconcileSchedule   string        // cron spec, e.g. "@every 1m"
	ReconcileWorkers    int           // concurrent writes per sweep
}

// LoadPolicyConfig reads policy settings with their defaults.
func LoadPolicyConfig() PolicyConfig {
	def := model.DefaultPolicy()
	cfg := PolicyConfig{
		LockTimeout:         envDur("LOCK_TIMEOUT", 8*time.Second),
		LockBackend:         envStr("LOCK_BACKEND", LockMemory),
		LockLease:           envDur("LOCK_LEASE", 30*time.Second),
		NoShowGrace:         envDur("NO_SHOW_GRACE", def.NoShowGrace),
		EarlyEntryTolerance: envDur("EARLY_ENTRY_TOLERANCE", def.EarlyEntryTolerance),
		PaymentHold:         envDur("PAYMENT_HOLD", 30*time.Minute),
		ReconcileSchedule:   envStr("RECONCILE_SCHEDULE", "@every 1m"),
		ReconcileWorkers:    envInt("RECONCILE_WORKERS", 8),
	}
	if cfg.LockBackend != LockRedis {
		cfg.LockBackend = LockMemory
	}
	if cfg.LockLease < cfg.LockTimeout {
		cfg.LockLease = 2 * cfg.LockTimeout
	}
	if cfg.PaymentHold < 0 {
		cfg.PaymentHold = 0
	}
	if cfg.ReconcileWorkers < 1 {
		cfg.ReconcileWorkers = 1
	}
	return cfg
}

// Policy returns the lifecycle policy portion.
func (p PolicyConfig) Policy() model.Policy {
	return model.Policy{
		NoShowGrace:         p.NoShowGrace,
		EarlyEntryTolerance: p.EarlyEntryTolerance,
		PaymentHold:         p.PaymentHold,
	}
}
