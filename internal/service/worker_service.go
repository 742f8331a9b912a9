package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
	"github.com/kursadbilgin/catalog-reconciler/internal/observability"
	"github.com/kursadbilgin/catalog-reconciler/internal/queue"
	"github.com/kursadbilgin/catalog-reconciler/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChunkWorker consumes dispatched chunk jobs and reconciles them via
// the shared chunk protocol. Each completed chunk contributes its
// counters to the batch record; the worker that observes the last
// contribution performs the terminal transition.
type ChunkWorker struct {
	consumer    queue.Consumer
	batches     repository.BatchRepository
	reconciler  *ReconcileService
	logger      *zap.Logger
	concurrency int
}

func NewChunkWorker(
	consumer queue.Consumer,
	batches repository.BatchRepository,
	reconciler *ReconcileService,
	concurrency int,
	logger *zap.Logger,
) (*ChunkWorker, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if batches == nil {
		return nil, fmt.Errorf("batch repository is required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("reconcile service is required")
	}
	if concurrency < 1 {
		concurrency = defaultChunkConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChunkWorker{
		consumer:    consumer,
		batches:     batches,
		reconciler:  reconciler,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Start consumes chunk jobs until the context is canceled.
func (w *ChunkWorker) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			return w.consumer.Consume(ctx, queue.ChunkQueueName, w.HandleChunk)
		})
	}

	return g.Wait()
}

// HandleChunk processes one dispatched chunk job. Redelivered jobs are
// safe: catalog effects route through the update path on a re-run, the
// job id keeps counters and errors from being applied twice, and jobs
// for missing or already-terminal batches are dropped.
func (w *ChunkWorker) HandleChunk(ctx context.Context, msg queue.ChunkMessage) error {
	ctx = observability.WithBatchID(ctx, msg.BatchID)
	logger := observability.WithContextLogger(w.logger, ctx).With(
		zap.String("jobId", msg.JobID),
		zap.Int("chunkIndex", msg.ChunkIndex),
	)

	batch, err := w.batches.GetByID(ctx, msg.BatchID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("dropping chunk job for unknown batch")
			return nil
		}
		return fmt.Errorf("failed to load batch: %w", err)
	}
	if batch.Status.IsTerminal() {
		logger.Warn("dropping chunk job for finished batch",
			zap.String("status", batch.Status.String()),
		)
		return nil
	}

	items := queue.ChunkItemsToDomain(msg.Items)
	outcome := w.reconciler.ReconcileChunk(ctx, items)

	// Recording is keyed by job id, so a redelivered job contributes
	// its errors and counters at most once.
	updated, applied, err := w.batches.RecordChunkResult(
		ctx, msg.BatchID, msg.JobID, outcome.Processed, outcome.Failed, outcome.Errors,
	)
	if err != nil {
		return fmt.Errorf("failed to record chunk result: %w", err)
	}

	if applied {
		logger.Info("chunk reconciled",
			zap.Int("processed", outcome.Processed),
			zap.Int("failed", outcome.Failed),
		)
	} else {
		logger.Warn("chunk job already recorded, skipping counters")
	}

	if updated.ProcessedItems+updated.FailedItems >= updated.TotalItems {
		status := domain.DeriveStatus(updated.ProcessedItems, updated.FailedItems, updated.TotalItems)
		won, err := w.batches.FinalizeIfProcessing(ctx, msg.BatchID, status)
		if err != nil {
			return fmt.Errorf("failed to finalize batch: %w", err)
		}
		if won {
			logger.Info("batch reconciled", zap.String("status", status.String()))
		}
	}

	return nil
}
