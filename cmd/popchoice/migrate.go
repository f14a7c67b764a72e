package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"

	"github.com/popchoice/popchoice/internal/config"
	"github.com/popchoice/popchoice/internal/repository"
	"github.com/popchoice/popchoice/pkg/database"
)

const stopTimeout = 30 * time.Second

func stopContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), stopTimeout)
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the movies table, the match_movies function and River's tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// Plain pool: pgvector types cannot be registered before the extension exists.
			db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()

			if err := repository.Migrate(ctx, db, cfg.EmbeddingDimensions); err != nil {
				return err
			}

			migrator, err := rivermigrate.New(riverpgxv5.New(db), nil)
			if err != nil {
				return fmt.Errorf("create River migrator: %w", err)
			}

			res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
			if err != nil {
				return fmt.Errorf("migrate River: %w", err)
			}

			for _, v := range res.Versions {
				slog.Info("Applied River migration", "version", v.Version)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")

			return err
		},
	}
}
