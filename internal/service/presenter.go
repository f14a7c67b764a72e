package service

import (
	"context"

	"github.com/popchoice/popchoice/internal/models"
)

// Presenter is the surface a recommendation is shown on (an HTTP response, a terminal).
type Presenter interface {
	// RenderRecommendation shows the recommendation and hides the form.
	RenderRecommendation(ctx context.Context, rec models.Recommendation) error
	// RenderForm shows the preferences form again ("go again").
	RenderForm(ctx context.Context) error
}
