package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/popchoice/popchoice/internal/apperrors"
	"github.com/popchoice/popchoice/internal/bootstrap"
	"github.com/popchoice/popchoice/internal/config"
	"github.com/popchoice/popchoice/internal/models"
	"github.com/popchoice/popchoice/internal/service"
)

// runner is the part of RecommendationService the ask loop needs.
type runner interface {
	Run(ctx context.Context, prefs models.UserPreferences, presenter service.Presenter) error
}

func newAskCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ask",
		Short: "Answer three questions and get a movie recommendation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			svc, closeFn, err := newRecommendationService(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			presenter := newTerminalPresenter(cmd.InOrStdin(), cmd.OutOrStdout())

			return askLoop(ctx, svc, presenter)
		},
	}
}

// askLoop shows the form, runs the pipeline once per submission and offers to go
// again. A failed run is reported and the loop continues; end of input stops it.
func askLoop(ctx context.Context, svc runner, presenter *terminalPresenter) error {
	for {
		if err := presenter.RenderForm(ctx); err != nil {
			return fmt.Errorf("render form: %w", err)
		}

		prefs, err := presenter.readPreferences()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("read answers: %w", err)
		}

		if err := svc.Run(ctx, prefs, presenter); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			var vErr *apperrors.ValidationError
			if !errors.As(err, &vErr) {
				slog.ErrorContext(ctx, "recommendation run failed", "error", err)
			}

			presenter.renderError(err)
		}

		again, err := presenter.goAgain()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("read answer: %w", err)
		}

		if !again {
			return nil
		}
	}
}

// newRecommendationService builds the pipeline for cfg. The returned func
// releases the database pool when one was opened.
func newRecommendationService(ctx context.Context, cfg *config.Config) (*service.RecommendationService, func(), error) {
	var db *pgxpool.Pool

	closeFn := func() {}

	if bootstrap.NeedsDatabase(cfg) {
		pool, err := bootstrap.NewDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}

		db = pool
		closeFn = pool.Close
	}

	svc, err := buildRecommendationService(ctx, cfg, db)
	if err != nil {
		closeFn()

		return nil, nil, err
	}

	return svc, closeFn, nil
}

func buildRecommendationService(
	ctx context.Context, cfg *config.Config, db *pgxpool.Pool,
) (*service.RecommendationService, error) {
	embeddings, err := bootstrap.NewEmbeddingClient(ctx, cfg, bootstrap.PurposeQuery)
	if err != nil {
		return nil, err
	}

	completions, err := bootstrap.NewCompletionClient(cfg)
	if err != nil {
		return nil, err
	}

	searcher, err := bootstrap.NewMovieSearcher(cfg, db)
	if err != nil {
		return nil, err
	}

	params := bootstrap.RecommendationParams(cfg)
	params.EmbeddingClient = embeddings
	params.CompletionClient = completions
	params.Matcher = service.NewMovieMatcher(service.MovieMatcherParams{Searcher: searcher})

	return service.NewRecommendationService(params), nil
}
