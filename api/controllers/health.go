package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/slidereel/slidereel-backend/api/responses"
	"github.com/slidereel/slidereel-backend/pkg/config"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

const envHeader = "X-SlideReel-Env"

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency. A nil pinger is reported as
// skipped so partial deployments (no redis, no gcs) stay readable.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis, gcs pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		for name, dep := range map[string]pinger{"db": db, "redis": redis, "gcs": gcs} {
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				healthy = false
				continue
			}
			checks[name] = "ok"
		}

		if !healthy {
			responses.WriteError(ctx, logg,
				w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
