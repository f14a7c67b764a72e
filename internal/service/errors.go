package service

import "github.com/popchoice/popchoice/internal/apperrors"

// Stage sentinels. Match with errors.Is; the concrete error is an *apperrors.UpstreamError.
var (
	ErrEmbeddingFailed  error = &apperrors.UpstreamError{Stage: apperrors.StageEmbedding}
	ErrSearchFailed     error = &apperrors.UpstreamError{Stage: apperrors.StageSearch}
	ErrCompletionFailed error = &apperrors.UpstreamError{Stage: apperrors.StageCompletion}
)
