package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/scheduling-service/internal/api"
	"github.com/carebridge/scheduling-service/internal/booking"
	"github.com/carebridge/scheduling-service/internal/config"
	"github.com/carebridge/scheduling-service/internal/db"
	"github.com/carebridge/scheduling-service/internal/observability/metrics"
	redisclient "github.com/carebridge/scheduling-service/internal/redis"
	"github.com/carebridge/scheduling-service/internal/schedule"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s working_hours=%s-%s",
		cfg.Env, cfg.HTTPPort, cfg.WorkingOpen, cfg.WorkingClose)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The registry is durable when a DSN is configured, in-memory otherwise.
	var (
		registry booking.Registry
		pgPool   *pgxpool.Pool
	)
	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres, using durable booking registry")
		registry = booking.NewPgRegistry(pgPool)
	} else {
		log.Println("POSTGRES_DSN not set, using in-memory booking registry")
		registry = booking.NewMemoryRegistry()
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	genCfg := schedule.DefaultGeneratorConfig()
	genCfg.OpenTime = cfg.WorkingOpen
	genCfg.CloseTime = cfg.WorkingClose
	generator := schedule.NewGenerator(genCfg)

	// The query path annotates with all three rules; the booking path
	// leaves the registry check to TryCommit so a taken slot surfaces
	// as a lost race.
	queryPolicy := schedule.NewPolicy(
		schedule.PastTimeRule{},
		schedule.PseudoAvailabilityRule{},
		schedule.BookedRule{Registry: registry},
	)
	bookPolicy := schedule.NewPolicy(
		schedule.PastTimeRule{},
		schedule.PseudoAvailabilityRule{},
	)

	svc := booking.NewService(registry, bookPolicy, locker, cfg.WorkingOpen, cfg.WorkingClose)

	server := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Generator: generator,
			Policy:    queryPolicy,
			Booking:   svc,
			Metrics:   metrics.NewSchedulingMetrics(nil),
			PgPool:    pgPool,
			Redis:     rdb,
			Env:       cfg.Env,
			Version:   version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}
