package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slidereel/slidereel-backend/api/controllers"
	"github.com/slidereel/slidereel-backend/api/middleware"
	"github.com/slidereel/slidereel-backend/internal/assets"
	"github.com/slidereel/slidereel-backend/internal/externalcache"
	"github.com/slidereel/slidereel-backend/internal/readiness"
	"github.com/slidereel/slidereel-backend/internal/rendering"
	"github.com/slidereel/slidereel-backend/internal/urls"
	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

// Pinger is any dependency exposing a health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP Pinger,
	redisP Pinger,
	gcsP Pinger,
	assetsService assets.Service,
	urlsService urls.Service,
	externalCacheService externalcache.Service,
	readinessService readiness.Service,
	renderingService rendering.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP, gcsP))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ServiceAuth(cfg.Auth, logg))

		r.Route("/assets", func(r chi.Router) {
			r.Post("/", controllers.PublishAsset(assetsService, logg))
			r.Get("/{assetID}", controllers.GetAsset(assetsService, logg))
			r.Delete("/{assetID}", controllers.DeleteAsset(assetsService, logg))
			r.Post("/{assetID}/resign", controllers.ResignAssetURL(assetsService, urlsService, logg))
		})

		r.Route("/presentations/{presentationID}", func(r chi.Router) {
			r.Get("/assets", controllers.ListPresentationAssets(assetsService, logg))
			r.Post("/refresh-external-cache", controllers.RefreshExternalCache(externalCacheService, logg))
			r.Post("/preflight-check", controllers.PreflightCheck(readinessService, logg))
			r.Get("/preflight-status", controllers.PreflightStatus(readinessService, logg))
			r.Get("/video-stories/latest", controllers.LatestVideoStory(renderingService, logg))
		})

		r.Get("/slides/{slideID}/assets", controllers.ListSlideAssets(assetsService, logg))

		r.Route("/video-stories", func(r chi.Router) {
			r.Post("/", controllers.ComposeVideoStory(renderingService, logg))
			r.Get("/{storyID}", controllers.VideoStoryStatus(renderingService, logg))
			r.Post("/{storyID}/render", controllers.RenderVideoStory(renderingService, logg))
			r.Post("/{storyID}/cancel", controllers.CancelVideoStory(renderingService, logg))
		})
	})

	return r
}
