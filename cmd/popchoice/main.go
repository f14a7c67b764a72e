// Command popchoice asks three questions in the terminal and recommends a movie.
// It also ingests the movies corpus and runs the embedding workers and migrations.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/popchoice/popchoice/internal/config"
	"github.com/popchoice/popchoice/internal/observability"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		return exitFailure
	}

	return exitSuccess
}

func newRootCmd() *cobra.Command {
	var cfg config.Config

	rootCmd := &cobra.Command{
		Use:           "popchoice",
		Short:         "Movie recommendations from three questions",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}

			cfg = *loaded

			// Logs go to stderr so they never interleave with the form on stdout.
			slog.SetDefault(observability.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel))

			return nil
		},
	}

	rootCmd.AddCommand(
		newAskCmd(&cfg),
		newIngestCmd(&cfg),
		newWorkerCmd(&cfg),
		newMigrateCmd(&cfg),
	)

	return rootCmd
}
