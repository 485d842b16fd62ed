package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slidereel/slidereel-backend/api/routes"
	"github.com/slidereel/slidereel-backend/internal/assets"
	"github.com/slidereel/slidereel-backend/internal/externalcache"
	"github.com/slidereel/slidereel-backend/internal/presentations"
	"github.com/slidereel/slidereel-backend/internal/readiness"
	"github.com/slidereel/slidereel-backend/internal/rendering"
	"github.com/slidereel/slidereel-backend/internal/timeline"
	"github.com/slidereel/slidereel-backend/internal/urls"
	"github.com/slidereel/slidereel-backend/pkg/cache"
	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/db"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	"github.com/slidereel/slidereel-backend/pkg/logger"
	"github.com/slidereel/slidereel-backend/pkg/metrics"
	"github.com/slidereel/slidereel-backend/pkg/migrate"
	"github.com/slidereel/slidereel-backend/pkg/pubsub"
	"github.com/slidereel/slidereel-backend/pkg/redis"
	"github.com/slidereel/slidereel-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()
	emitter := pubsub.NewEmitter(pubsubClient, logg)

	assetMetrics := metrics.NewAssetMetrics(prometheus.DefaultRegisterer)
	renderMetrics := metrics.NewRenderMetrics(prometheus.DefaultRegisterer)

	presentationsRepo := presentations.NewRepository(dbClient.DB())
	artifactsRepo := assets.NewRepository(dbClient.DB())
	urlsRepo := urls.NewRepository(dbClient.DB())
	storiesRepo := rendering.NewRepository(dbClient.DB())

	urlsService, err := urls.NewService(urlsRepo, gcsClient, cfg.GCS, cfg.Assets, assetMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create url service", err)
		os.Exit(1)
	}

	locator, err := assets.NewLocator(cfg.Assets.StorageBasePath)
	if err != nil {
		logg.Error(context.Background(), "failed to create file locator", err)
		os.Exit(1)
	}

	assetsService, err := assets.NewService(
		artifactsRepo, presentationsRepo, locator, urlsService, gcsClient,
		emitter, assetMetrics, logg, cfg.GCS,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create asset service", err)
		os.Exit(1)
	}

	readinessService, err := readiness.NewService(
		presentationsRepo, artifactsRepo, cache.NewRedis(redisClient), cfg.Readiness, logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create readiness service", err)
		os.Exit(1)
	}

	shotstack, err := rendering.NewShotstack(cfg.Render, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create render provider", err)
		os.Exit(1)
	}
	registry := rendering.NewRegistry()
	if err := registry.Register(enums.RenderProviderShotstack, shotstack); err != nil {
		logg.Error(context.Background(), "failed to register render provider", err)
		os.Exit(1)
	}

	var external externalcache.Service
	if cfg.Assets.ExternalUploadEnabled() {
		external, err = externalcache.NewService(artifactsRepo, shotstack, cfg.Assets, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create external cache service", err)
			os.Exit(1)
		}
	}

	resolver, err := timeline.NewResolver(artifactsRepo, urlsService, external, cfg.Assets, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create asset url resolver", err)
		os.Exit(1)
	}
	composer, err := timeline.NewComposer(resolver, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create timeline composer", err)
		os.Exit(1)
	}

	monitor := rendering.NewMonitor(storiesRepo, registry, emitter, renderMetrics, cfg.Render, logg)
	defer monitor.Close()

	renderingService, err := rendering.NewService(
		storiesRepo, presentationsRepo, composer, registry, monitor,
		emitter, renderMetrics, cfg.Render, logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create rendering service", err)
		os.Exit(1)
	}

	if err := monitor.Resume(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to resume render watchers", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg,
			dbClient, redisClient, gcsClient,
			assetsService, urlsService, external, readinessService, renderingService,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server stopped")
}
