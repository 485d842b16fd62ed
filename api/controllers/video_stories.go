package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/slidereel/slidereel-backend/api/responses"
	"github.com/slidereel/slidereel-backend/api/validators"
	"github.com/slidereel/slidereel-backend/internal/rendering"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

type composeStoryRequest struct {
	PresentationID string `json:"presentation_id" validate:"required,uuid"`
	SubmitRender   bool   `json:"submit_render"`
}

// ComposeVideoStory builds the timeline for a presentation and stores it as a
// video story, optionally submitting it to the render provider in one call.
func ComposeVideoStory(svc rendering.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload composeStoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		presentationID, err := uuid.Parse(payload.PresentationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid presentation_id"))
			return
		}

		var story any
		if payload.SubmitRender {
			story, err = svc.ComposeAndRender(r.Context(), presentationID)
		} else {
			story, err = svc.Compose(r.Context(), presentationID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, story)
	}
}

// RenderVideoStory submits a previously composed story to its provider.
func RenderVideoStory(svc rendering.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storyID, err := validators.ParseUUIDParam(r, "storyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		story, err := svc.Render(r.Context(), storyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, story)
	}
}

// VideoStoryStatus returns the current render state of a story.
func VideoStoryStatus(svc rendering.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storyID, err := validators.ParseUUIDParam(r, "storyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		story, err := svc.Status(r.Context(), storyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, story)
	}
}

// CancelVideoStory stops an in-flight render.
func CancelVideoStory(svc rendering.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storyID, err := validators.ParseUUIDParam(r, "storyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		story, err := svc.Cancel(r.Context(), storyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, story)
	}
}

// LatestVideoStory returns the newest story composed for a presentation.
func LatestVideoStory(svc rendering.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presentationID, err := validators.ParseUUIDParam(r, "presentationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		story, err := svc.LatestByPresentation(r.Context(), presentationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, story)
	}
}
