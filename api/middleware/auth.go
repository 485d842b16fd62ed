package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/slidereel/slidereel-backend/api/responses"
	"github.com/slidereel/slidereel-backend/pkg/config"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

// ServiceAuth validates the static bearer token trusted on the internal API.
// An empty configured token disables the check, which is only sensible in dev.
func ServiceAuth(cfg config.AuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.ServiceToken == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.ServiceToken)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid service token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
