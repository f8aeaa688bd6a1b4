package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/carebridge/scheduling-service/internal/booking"
	"github.com/carebridge/scheduling-service/internal/config"
	"github.com/carebridge/scheduling-service/internal/db"
	"github.com/carebridge/scheduling-service/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("retention-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required, retention only applies to the durable registry")
	}

	log.Printf("running retention worker in env=%s interval=%s retention_days=%d",
		cfg.Env, cfg.WorkerInterval, cfg.RetentionDays)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	registry := booking.NewPgRegistry(pgPool)

	// Run once at startup
	runOnce(rootCtx, registry, cfg.RetentionDays)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping retention worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, registry, cfg.RetentionDays)
		}
	}
}

func runOnce(ctx context.Context, registry booking.Registry, retentionDays int) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format(schedule.DateLayout)

	start := time.Now()
	removed, err := registry.PurgeBefore(runCtx, cutoff)
	if err != nil {
		log.Printf("retention run error: %v", err)
		return
	}
	log.Printf("retention run complete: purged=%d cutoff=%s elapsed=%s", removed, cutoff, time.Since(start))
}
