package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/spf13/cobra"

	"github.com/popchoice/popchoice/internal/bootstrap"
	"github.com/popchoice/popchoice/internal/config"
	"github.com/popchoice/popchoice/internal/repository"
	"github.com/popchoice/popchoice/internal/service"
)

var errFileRequired = errors.New("--file is required")

func newIngestCmd(cfg *config.Config) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Split a movies text file and enqueue one embedding job per chunk",
		Long: "Split a movies text file and enqueue one embedding job per chunk.\n" +
			"Jobs are processed by `popchoice worker` or the API server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return errFileRequired
			}

			text, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			ctx := cmd.Context()

			db, err := bootstrap.NewDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			// Insert-only client: no queues are worked from this process.
			riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{})
			if err != nil {
				return fmt.Errorf("create River client: %w", err)
			}

			ingest := service.NewIngestService(service.IngestServiceParams{
				Inserter:    riverClient,
				QueueName:   service.EmbeddingsQueueName,
				MaxAttempts: cfg.EmbeddingMaxAttempts,
			})

			enqueued, err := ingest.Ingest(ctx, filepath.Base(file), string(text))
			if err != nil {
				return err
			}

			stored, err := repository.NewMoviesRepository(db).CountMovies(ctx)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"Enqueued %d embedding job(s); %d movie passage(s) stored so far.\n", enqueued, stored)

			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the movies text file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
