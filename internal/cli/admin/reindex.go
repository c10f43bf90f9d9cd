package admin

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/config"
	"github.com/cloo-solutions/ragdoc/internal/logging"
)

// ReindexCmd rebuilds one document's index entries from the metadata store,
// or queues every document stuck in processing.
func ReindexCmd() *cobra.Command {
	var stuck bool
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "reindex [document-id]",
		Short: "Rebuild index entries from stored chunks",
		Long: `Rebuild a document's vector index entries from the chunks in the metadata store.

With --stuck, queue a reindex job for every document still processing after
--older-than instead. The running server's worker picks those jobs up.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if stuck {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := logging.New(cfg.Debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := newApp(ctx, cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if stuck {
				return runEnqueueStuck(ctx, a, cmd, olderThan)
			}
			return runRebuild(ctx, a, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&stuck, "stuck", false, "Queue all documents stuck in processing")
	cmd.Flags().DurationVar(&olderThan, "older-than", 15*time.Minute, "Minimum age of a stuck document")

	return cmd
}

func runRebuild(ctx context.Context, a *app, cmd *cobra.Command, documentID string) error {
	n, err := a.reindexSvc.Rebuild(ctx, documentID)
	if err != nil {
		return fmt.Errorf("reindex %s: %w", documentID, err)
	}
	a.logger.Info("document reindexed", zap.String("document_id", documentID), zap.Int("chunks", n))
	fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %s: %d chunks\n", documentID, n)
	return nil
}

func runEnqueueStuck(ctx context.Context, a *app, cmd *cobra.Command, olderThan time.Duration) error {
	n, err := a.reindexSvc.EnqueueStuck(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("enqueue stuck documents: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Queued %d stuck documents\n", n)
	return nil
}
