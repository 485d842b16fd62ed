package controllers

import (
	"net/http"

	"github.com/slidereel/slidereel-backend/api/responses"
	"github.com/slidereel/slidereel-backend/api/validators"
	"github.com/slidereel/slidereel-backend/internal/readiness"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

// PreflightCheck evaluates publication readiness for a presentation.
// Query parameters: check_enhanced_narrative, force_refresh.
func PreflightCheck(svc readiness.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presentationID, err := validators.ParseUUIDParam(r, "presentationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkEnhanced, err := validators.ParseQueryBool(r, "check_enhanced_narrative")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		forceRefresh, err := validators.ParseQueryBool(r, "force_refresh")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Check(r.Context(), presentationID, readiness.CheckOptions{
			CheckEnhancedNarrative: checkEnhanced,
			ForceRefresh:           forceRefresh,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// PreflightStatus serves the last cached readiness report without
// re-evaluating. 404 when no report is cached.
func PreflightStatus(svc readiness.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presentationID, err := validators.ParseUUIDParam(r, "presentationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, ok, err := svc.CachedReport(r.Context(), presentationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no readiness report cached"))
			return
		}
		responses.WriteSuccess(w, report)
	}
}
