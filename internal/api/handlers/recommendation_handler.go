package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/popchoice/popchoice/internal/api/response"
	"github.com/popchoice/popchoice/internal/api/validation"
	"github.com/popchoice/popchoice/internal/apperrors"
	"github.com/popchoice/popchoice/internal/models"
	"github.com/popchoice/popchoice/internal/service"
)

const maxRecommendationBodyBytes = 16 << 10

// RecommendationRunner runs one recommendation pipeline and renders on presenter.
type RecommendationRunner interface {
	Run(ctx context.Context, prefs models.UserPreferences, presenter service.Presenter) error
}

// RecommendationHandler handles recommendation requests.
type RecommendationHandler struct {
	runner RecommendationRunner
}

// NewRecommendationHandler creates a new recommendation handler.
func NewRecommendationHandler(runner RecommendationRunner) *RecommendationHandler {
	return &RecommendationHandler{runner: runner}
}

// jsonPresenter renders a recommendation as the JSON response of one request.
type jsonPresenter struct {
	w        http.ResponseWriter
	rendered bool
}

func (p *jsonPresenter) RenderRecommendation(_ context.Context, rec models.Recommendation) error {
	response.RespondJSON(p.w, http.StatusOK, rec)
	p.rendered = true

	return nil
}

// RenderForm has no meaning for a single JSON response; clients re-submit instead.
func (p *jsonPresenter) RenderForm(context.Context) error {
	return nil
}

// Create handles POST /v1/recommendations.
// Body: {"favoriteMovie", "newClassic", "funSerious"}; response: {"title", "description"}.
func (h *RecommendationHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRecommendationBodyBytes)

	var prefs models.UserPreferences
	if err := validation.DecodeJSON(r, &prefs); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.RespondRequestEntityTooLarge(w, "request body exceeds maximum allowed size")

			return
		}

		response.RespondBadRequest(w, err.Error())

		return
	}

	if err := validation.ValidateStruct(prefs); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	presenter := &jsonPresenter{w: w}

	err := h.runner.Run(r.Context(), prefs, presenter)
	if err == nil {
		return
	}

	if presenter.rendered {
		slog.ErrorContext(r.Context(), "recommendation: error after response was written", "error", err)

		return
	}

	switch {
	case errors.Is(err, context.Canceled):
		slog.InfoContext(r.Context(), "recommendation: request cancelled")
	case errors.Is(err, apperrors.ErrValidation):
		response.RespondBadRequest(w, err.Error())
	case errors.Is(err, apperrors.ErrUpstream):
		var upstream *apperrors.UpstreamError

		stage := "upstream"
		if errors.As(err, &upstream) && upstream.Stage != "" {
			stage = upstream.Stage
		}

		response.RespondBadGateway(w, stage+" service failed")
	default:
		response.RespondInternalServerError(w, "failed to create recommendation")
	}
}
