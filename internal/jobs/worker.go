package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/logging"
	"github.com/cloo-solutions/ragdoc/internal/telemetry"
)

// JobProcessor runs one pass over whatever work is pending.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor: one pass as soon as it starts, then one per
// poll interval until stopped or the context ends.
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	logger       *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewWorker(name string, processor JobProcessor, pollInterval time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		logger:       logging.OrNop(logger).With(zap.String("worker", name)),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start blocks running the polling loop. Work left behind by a previous
// process (queued reindex jobs, stuck documents) is picked up on the first
// pass rather than after a full interval.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneCh)

	w.logger.Info("worker started", zap.Duration("poll_interval", w.pollInterval))
	w.poll(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", zap.String("cause", "context done"))
			return
		case <-w.stopCh:
			w.logger.Info("worker stopped", zap.String("cause", "stop requested"))
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.logger.Error("worker pass failed", zap.Error(err))
		telemetry.CaptureError(ctx, err)
	}
}

// Stop ends the loop and waits for an in-flight pass. Safe to call more
// than once; it must only be called after Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}
