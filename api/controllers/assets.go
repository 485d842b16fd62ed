package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/api/responses"
	"github.com/slidereel/slidereel-backend/api/validators"
	"github.com/slidereel/slidereel-backend/internal/assets"
	"github.com/slidereel/slidereel-backend/internal/externalcache"
	"github.com/slidereel/slidereel-backend/internal/urls"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

type publishAssetRequest struct {
	PresentationID string  `json:"presentation_id" validate:"required,uuid"`
	SlideID        *string `json:"slide_id,omitempty" validate:"omitempty,uuid"`
	Kind           string  `json:"kind" validate:"required"`
	ForceRepublish bool    `json:"force_republish"`
}

func (r publishAssetRequest) toInput() (assets.PublishInput, error) {
	kind, err := enums.ParseArtifactKind(strings.TrimSpace(r.Kind))
	if err != nil {
		return assets.PublishInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid kind")
	}
	presentationID, err := uuid.Parse(r.PresentationID)
	if err != nil {
		return assets.PublishInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid presentation_id")
	}
	input := assets.PublishInput{
		PresentationID: presentationID,
		Kind:           kind,
		ForceRepublish: r.ForceRepublish,
	}
	if r.SlideID != nil {
		slideID, err := uuid.Parse(*r.SlideID)
		if err != nil {
			return assets.PublishInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid slide_id")
		}
		input.SlideID = &slideID
	}
	return input, nil
}

// PublishAsset uploads a generated artifact to object storage and returns the
// stored record with a download URL. Re-publishing an already completed scope
// is idempotent unless force_republish is set.
func PublishAsset(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload publishAssetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Publish(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.AlreadyPublished {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// GetAsset returns one artifact with a fresh download URL.
func GetAsset(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "assetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ListPresentationAssets returns every artifact of a presentation.
func ListPresentationAssets(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presentationID, err := validators.ParseUUIDParam(r, "presentationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.ListByPresentation(r.Context(), presentationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// ListSlideAssets returns every artifact of a slide.
func ListSlideAssets(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slideID, err := validators.ParseUUIDParam(r, "slideID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.ListBySlide(r.Context(), slideID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// DeleteAsset removes the stored object, its URLs and the artifact row.
func DeleteAsset(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "assetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// RefreshExternalCache clears the provider-hosted copies of a presentation's
// artifacts so the next composition re-ingests current content. Only
// meaningful in external-upload mode; the service is nil otherwise.
func RefreshExternalCache(externalSvc externalcache.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presentationID, err := validators.ParseUUIDParam(r, "presentationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if externalSvc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeConflict, "external asset cache is not enabled"))
			return
		}

		cleared, err := externalSvc.RefreshAll(r.Context(), presentationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"cleared": cleared})
	}
}

type resignURLRequest struct {
	URLType string `json:"url_type" validate:"required,oneof=upload download"`
}

// ResignAssetURL deactivates the active URL of the given type and signs a
// fresh one for the artifact.
func ResignAssetURL(assetsSvc assets.Service, urlsSvc urls.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "assetID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resignURLRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		urlType, err := enums.ParseURLType(payload.URLType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid url_type"))
			return
		}

		view, err := assetsSvc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		signed, err := urlsSvc.Resign(r.Context(), &view.Artifact, urlType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, signed)
	}
}
