package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/config"
	"github.com/makingtools/rapidbites-sub001/internal/infra"
	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/repository"
	"github.com/makingtools/rapidbites-sub001/internal/repository/memory"
	"github.com/makingtools/rapidbites-sub001/internal/router"
	"github.com/makingtools/rapidbites-sub001/internal/service"
	"github.com/makingtools/rapidbites-sub001/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stores struct {
	sessions  repository.SessionRepository
	closings  repository.ClosingRepository
	invoices  repository.InvoiceRepository
	operators repository.OperatorRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	var (
		db *gorm.DB
		st stores
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("STORE_DRIVER=memory: cash records are lost on restart")
		mem := memory.New()
		if cfg.Env != "production" {
			seedDevOperator(mem)
		}
		st = stores{sessions: mem, closings: mem, invoices: mem, operators: mem}
	default:
		db, err = infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		st = stores{
			sessions:  repository.NewSessionRepository(db),
			closings:  repository.NewClosingRepository(db),
			invoices:  repository.NewInvoiceRepository(db),
			operators: repository.NewOperatorRepository(db),
		}
	}

	// Redis carries the shared lock and the alert queue. Without it the API
	// still serves sessions with the in-process lock and no alerts.
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		if cfg.LockBackend == "redis" {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		log.Warn().Err(err).Msg("redis unavailable: closing alerts disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var locker infra.Locker = infra.NewLocalLocker()
	if cfg.LockBackend == "redis" {
		locker = infra.NewRedisLocker(rdb, cfg.LockTTL())
	}

	var alerts service.AlertDispatcher
	var pool *worker.Pool
	if rdb != nil {
		alerts = worker.NewDispatcher(rdb)
		pool = startAlertWorkers(ctx, cfg, rdb)
	}

	warn, crit, err := cfg.VarianceThresholds()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid variance thresholds")
	}

	sessionSvc := service.NewSessionService(service.SessionDeps{
		Sessions:  st.sessions,
		Closings:  st.closings,
		Invoices:  st.invoices,
		Operators: st.operators,
		Locker:    locker,
		Alerts:    alerts,
	}, service.SessionOptions{
		PersistTimeout: cfg.PersistTimeout(),
		Thresholds:     service.VarianceThresholds{Warning: warn, Critical: crit},
	})

	r := router.New(cfg, router.Deps{
		Auth:     service.NewAuthService(st.operators, cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour),
		Sessions: sessionSvc,
		Closings: service.NewClosingService(st.closings, st.sessions),
		DB:       db,
		Redis:    rdb,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("store", cfg.StoreDriver).Str("lock", cfg.LockBackend).Msgf("cash drawer API listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	if pool != nil {
		pool.Wait()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}

// startAlertWorkers wires the closing alert pipeline: queue → e-mail → DLQ.
func startAlertWorkers(ctx context.Context, cfg *config.Config, rdb *redis.Client) *worker.Pool {
	pool := worker.NewPool(rdb, cfg.AlertMaxAttempts)
	pool.Handle(worker.JobClosingAlert, worker.NewAlertWorker(infra.NewMailer(cfg), cfg.AlertEmailTo))
	pool.Start(ctx, cfg.WorkerPoolSize)
	worker.StartDLQMonitor(ctx, rdb, time.Minute)
	return pool
}

// seedDevOperator gives a memory-backed dev server a login: admin / admin.
func seedDevOperator(mem *memory.Store) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}
	mem.AddOperator(model.Operator{
		Username:     "admin",
		Name:         "Development Admin",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Active:       true,
	})
	log.Warn().Msg("memory store seeded with operator admin/admin")
}
