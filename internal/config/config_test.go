package config

import (
	"testing"
	"time"
)

func TestLoadPolicyConfigDefaults(t *testing.T) {
	for _, k := range []string{"LOCK_TIMEOUT", "LOCK_BACKEND", "LOCK_LEASE", "NO_SHOW_GRACE", "EARLY_ENTRY_TOLERANCE", "PAYMENT_HOLD", "RECONCILE_SCHEDULE", "RECONCILE_WORKERS"} {
		t.Setenv(k, "")
	}
	p := LoadPolicyConfig()
	if p.LockTimeout != 8*time.Second || p.LockBackend != LockMemory || p.LockLease != 30*time.Second {
		t.Fatalf("lock settings = %+v", p)
	}
	if p.NoShowGrace != 15*time.Minute || p.EarlyEntryTolerance != 15*time.Minute || p.PaymentHold != 30*time.Minute {
		t.Fatalf("policy = %+v", p)
	}
	if p.ReconcileSchedule != "@every 1m" || p.ReconcileWorkers != 8 {
		t.Fatalf("reconcile = %+v", p)
	}
}

func TestLoadPolicyConfigOverrides(t *testing.T) {
	t.Setenv("LOCK_TIMEOUT", "20s")
	t.Setenv("LOCK_LEASE", "5s")
	t.Setenv("LOCK_BACKEND", "etcd")
	t.Setenv("NO_SHOW_GRACE", "10m")
	t.Setenv("PAYMENT_HOLD", "-5m")
	t.Setenv("RECONCILE_WORKERS", "0")

	p := LoadPolicyConfig()
	if p.LockLease != 40*time.Second {
		t.Fatalf("lease shorter than timeout not raised: %v", p.LockLease)
	}
	if p.LockBackend != LockMemory {
		t.Fatalf("unknown backend kept: %q", p.LockBackend)
	}
	if p.Policy().NoShowGrace != 10*time.Minute {
		t.Fatalf("grace = %v", p.Policy().NoShowGrace)
	}
	if p.Policy().PaymentHold != 0 {
		t.Fatalf("negative payment hold kept: %v", p.Policy().PaymentHold)
	}
	if p.ReconcileWorkers != 1 {
		t.Fatalf("workers = %d", p.ReconcileWorkers)
	}
}

func TestDSN(t *testing.T) {
	c := Config{DBUser: "app", DBPass: "pw", DBHost: "db", DBPort: "3306", DBName: "parking"}
	want := "app:pw@tcp(db:3306)/parking?charset=utf8mb4&parseTime=true&loc=UTC"
	if got := c.DSN(); got != want {
		t.Fatalf("DSN = %q", got)
	}
	c.DBPass = ""
	if got := c.DSN(); got != "app@tcp(db:3306)/parking?charset=utf8mb4&parseTime=true&loc=UTC" {
		t.Fatalf("DSN without password = %q", got)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "90s")
	if envBool("X_BOOL", true) {
		t.Fatal("envBool ignored off")
	}
	if envInt("X_INT", 4) != 4 {
		t.Fatal("envInt accepted garbage")
	}
	if envDur("X_DUR", 0) != 90*time.Second {
		t.Fatal("envDur")
	}
}

func TestNewLoggerWritesUnderDir(t *testing.T) {
	c := LogConfig{Dir: t.TempDir(), Level: "debug", MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}
	log, err := NewLogger(c, "test")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info("hello")
	_ = log.Sync()

	if _, err := NewLogger(LogConfig{Dir: c.Dir, Level: "loud"}, "bad"); err == nil {
		t.Fatal("expected invalid level error")
	}
}
