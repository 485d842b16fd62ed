package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slidereel/slidereel-backend/internal/assets"
	"github.com/slidereel/slidereel-backend/internal/cron"
	"github.com/slidereel/slidereel-backend/internal/urls"
	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db"
	"github.com/slidereel/slidereel-backend/pkg/instance"
	"github.com/slidereel/slidereel-backend/pkg/logger"
	"github.com/slidereel/slidereel-backend/pkg/metrics"
	"github.com/slidereel/slidereel-backend/pkg/migrate"
	"github.com/slidereel/slidereel-backend/pkg/redis"
	"github.com/slidereel/slidereel-backend/pkg/storage/gcs"
)

const lockKeyFormat = "sr:cron-worker:lock:%s"

func lockKey(env string) string {
	return fmt.Sprintf(lockKeyFormat, env)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	artifactsRepo := assets.NewRepository(dbClient.DB())
	urlsRepo := urls.NewRepository(dbClient.DB())

	cleanupJob, err := cron.NewPendingArtifactCleanupJob(cron.PendingArtifactCleanupJobParams{
		Logger:    logg,
		Artifacts: artifactsRepo,
		URLs:      urlsRepo,
		Store:     gcsClient,
		MaxAge:    cfg.Assets.PendingCleanupAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending artifact cleanup job", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewStaleURLSweepJob(cron.StaleURLSweepJobParams{
		Logger: logg,
		URLs:   urlsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stale url sweep job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cleanupJob, sweepJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "cron worker stopped")
}
