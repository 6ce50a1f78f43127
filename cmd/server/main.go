package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/parking-slot-reservation/internal/config"
	"github.com/iliyamo/parking-slot-reservation/internal/database"
	"github.com/iliyamo/parking-slot-reservation/internal/lock"
	"github.com/iliyamo/parking-slot-reservation/internal/notify"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
	"github.com/iliyamo/parking-slot-reservation/internal/router"
	"github.com/iliyamo/parking-slot-reservation/internal/scheduler"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.Load()
	policy := config.LoadPolicyConfig()
	logger, err := config.NewLogger(config.LoadLogConfig(), "server")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, policy, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, policy config.PolicyConfig, logger *zap.Logger) error {
	lots, reservations, ping, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting is local and caching is off")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var locker lock.Locker = lock.NewTable()
	if policy.LockBackend == config.LockRedis {
		if rdb == nil {
			logger.Warn("LOCK_BACKEND=redis but redis is unavailable; using in-process locks")
		} else {
			locker = lock.NewRedisLocker(rdb, "parking:lock", policy.LockLease)
		}
	}

	hub := notify.NewHub(logger)
	sinks := notify.Multi{hub}
	var pub *queue.Publisher
	if cfg.AMQPURL != "" {
		pub = queue.NewPublisher(cfg.AMQPURL, logger)
		sinks = append(sinks, pub)
	}

	svc := service.NewBookingService(lots, reservations, locker, sinks, logger, service.Options{
		LockTimeout:      policy.LockTimeout,
		Policy:           policy.Policy(),
		ReconcileWorkers: policy.ReconcileWorkers,
	})

	sched := scheduler.New(svc, policy.ReconcileSchedule, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Service:       svc,
		Hub:           hub,
		Redis:         rdb,
		JWTSecret:     cfg.JWTSecret,
		WebhookSecret: cfg.WebhookSecret,
		RateLimit:     config.LoadRateLimitConfig(),
		Cache:         config.LoadCacheConfig(),
		Ping:          ping,
		Log:           logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if pub != nil {
		g.Go(func() error {
			pub.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore returns the configured lot and reservation stores.
func openStore(cfg config.Config) (service.LotStore, service.ReservationStore, func(context.Context) error, func(), error) {
	if cfg.Store == config.StoreMemory {
		m := repository.NewMemoryStore()
		return m, m, nil, func() {}, nil
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, nil, err
	}
	return repository.NewLotRepo(db), repository.NewReservationRepo(db), db.PingContext, closer(db), nil
}

func closer(db *sql.DB) func() { return func() { _ = db.Close() } }
