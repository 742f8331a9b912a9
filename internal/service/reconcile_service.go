package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/catalog-reconciler/internal/catalog"
	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
	"github.com/kursadbilgin/catalog-reconciler/internal/ingest"
	"github.com/kursadbilgin/catalog-reconciler/internal/observability"
	"github.com/kursadbilgin/catalog-reconciler/internal/queue"
	"github.com/kursadbilgin/catalog-reconciler/internal/repository"
	"github.com/kursadbilgin/catalog-reconciler/internal/transform"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minChunkConcurrency     = 1
	defaultChunkConcurrency = 8
)

// BatchProcessingResult mirrors the persisted batch returned to callers.
type BatchProcessingResult struct {
	BatchID        string
	Status         domain.BatchStatus
	TotalItems     int
	ProcessedItems int
	FailedItems    int
	Errors         []domain.BatchError
}

// ChunkOutcome is the aggregate result of reconciling one chunk.
type ChunkOutcome struct {
	Processed int
	Failed    int
	Errors    []domain.BatchError
}

// ReconcileService drives one batch end-to-end: persist the initial
// status record, transform rows into a complete item set, reconcile
// bounded chunks against the catalog, and finalize the batch record.
type ReconcileService struct {
	batches     repository.BatchRepository
	parser      ingest.RowParser
	catalog     catalog.Client
	publisher   queue.Publisher
	logger      *zap.Logger
	metrics     *observability.Metrics
	chunkSize   int
	concurrency int
	dispatch    bool
	now         func() time.Time
	newBatchID  func(time.Time) string
}

func NewReconcileService(
	batches repository.BatchRepository,
	parser ingest.RowParser,
	catalogClient catalog.Client,
	chunkSize int,
	concurrency int,
	logger *zap.Logger,
) (*ReconcileService, error) {
	if batches == nil {
		return nil, fmt.Errorf("batch repository is required")
	}
	if parser == nil {
		return nil, fmt.Errorf("row parser is required")
	}
	if catalogClient == nil {
		return nil, fmt.Errorf("catalog client is required")
	}
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be >= 1")
	}
	if concurrency < minChunkConcurrency {
		concurrency = defaultChunkConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReconcileService{
		batches:     batches,
		parser:      parser,
		catalog:     catalogClient,
		logger:      logger,
		chunkSize:   chunkSize,
		concurrency: concurrency,
		now:         time.Now,
		newBatchID:  newBatchID,
	}, nil
}

// EnableChunkDispatch switches ProcessBatch to fan chunks out over the
// queue instead of reconciling them inline.
func (s *ReconcileService) EnableChunkDispatch(publisher queue.Publisher) {
	if s == nil {
		return
	}
	s.publisher = publisher
	s.dispatch = publisher != nil
}

func (s *ReconcileService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// ProcessBatch runs the full pipeline for one raw input payload.
// Parse failures and the initial persist failure are fatal and surface
// to the caller; chunk reconciliation failures are folded into the
// batch's error list.
func (s *ReconcileService) ProcessBatch(ctx context.Context, raw []byte) (*BatchProcessingResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	batch := &domain.Batch{
		ID:     s.newBatchID(s.now()),
		Status: domain.BatchStatusPending,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to persist initial batch record: %w", err)
	}

	ctx = observability.WithBatchID(ctx, batch.ID)
	logger := observability.WithContextLogger(s.logger, ctx)

	rows, err := s.parser.Parse(raw)
	if err != nil {
		s.failBatch(ctx, logger, batch.ID, err)
		return nil, err
	}

	items := transform.EnsureFamiliesExist(transform.TransformAll(rows), rows)
	total := len(items)

	processing := domain.BatchStatusProcessing
	if err := s.batches.Update(ctx, batch.ID, repository.BatchUpdate{
		Status:     &processing,
		TotalItems: &total,
	}); err != nil {
		return nil, fmt.Errorf("failed to mark batch as processing: %w", err)
	}

	chunks := transform.Chunk(items, s.chunkSize)
	logger.Info("batch accepted",
		zap.Int("rows", len(rows)),
		zap.Int("items", total),
		zap.Int("chunks", len(chunks)),
	)

	if s.dispatch {
		return s.dispatchChunks(ctx, logger, batch.ID, total, chunks)
	}

	return s.reconcileInline(ctx, logger, batch.ID, total, chunks)
}

// GetBatch returns the persisted batch record, including its error list.
func (s *ReconcileService) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}
	return s.batches.GetByID(ctx, strings.TrimSpace(id))
}

func (s *ReconcileService) reconcileInline(
	ctx context.Context,
	logger *zap.Logger,
	batchID string,
	total int,
	chunks [][]domain.ItemUpsertRequest,
) (*BatchProcessingResult, error) {
	var (
		mu        sync.Mutex
		processed int
		failed    int
		batchErrs []domain.BatchError
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, chunk := range chunks {
		chunkIndex := i
		chunk := chunk

		g.Go(func() error {
			// Cancellation stops scheduling; reconciled chunks keep
			// their effects and pending chunks stay uncounted.
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}

			outcome := s.ReconcileChunk(groupCtx, chunk)
			if outcome.Failed > 0 {
				logger.Warn("chunk reconciliation failed",
					zap.Int("chunkIndex", chunkIndex),
					zap.Int("items", len(chunk)),
				)
			}

			mu.Lock()
			processed += outcome.Processed
			failed += outcome.Failed
			batchErrs = append(batchErrs, outcome.Errors...)
			mu.Unlock()
			return nil
		})
	}

	waitErr := g.Wait()

	// Persist what completed even when the batch was cancelled, so an
	// interrupted batch still reflects its reconciled chunks.
	persistCtx := context.WithoutCancel(ctx)

	if err := s.batches.AppendErrors(persistCtx, batchID, batchErrs); err != nil {
		logger.Error("failed to persist batch errors", zap.Error(err))
	}
	if _, err := s.batches.IncrementCounters(persistCtx, batchID, processed, failed); err != nil {
		logger.Error("failed to persist batch counters", zap.Error(err))
	}

	// An interrupted batch stays PROCESSING so callers treat it as
	// incomplete instead of inferring success.
	if waitErr != nil {
		logger.Warn("batch reconciliation interrupted", zap.Error(waitErr))
		return &BatchProcessingResult{
			BatchID:        batchID,
			Status:         domain.BatchStatusProcessing,
			TotalItems:     total,
			ProcessedItems: processed,
			FailedItems:    failed,
			Errors:         batchErrs,
		}, waitErr
	}

	status := domain.DeriveStatus(processed, failed, total)
	if _, err := s.batches.FinalizeIfProcessing(persistCtx, batchID, status); err != nil {
		logger.Error("failed to finalize batch status", zap.Error(err))
	}

	logger.Info("batch reconciled",
		zap.String("status", status.String()),
		zap.Int("processed", processed),
		zap.Int("failed", failed),
	)

	return &BatchProcessingResult{
		BatchID:        batchID,
		Status:         status,
		TotalItems:     total,
		ProcessedItems: processed,
		FailedItems:    failed,
		Errors:         batchErrs,
	}, nil
}

func (s *ReconcileService) dispatchChunks(
	ctx context.Context,
	logger *zap.Logger,
	batchID string,
	total int,
	chunks [][]domain.ItemUpsertRequest,
) (*BatchProcessingResult, error) {
	for i, chunk := range chunks {
		msg := queue.ChunkMessage{
			JobID:      uuid.NewString(),
			BatchID:    batchID,
			ChunkIndex: i,
			Items:      queue.ChunkItemsFromDomain(chunk),
		}
		if err := s.publisher.Publish(ctx, queue.ChunkQueueName, msg); err != nil {
			return nil, fmt.Errorf("failed to dispatch chunk %d: %w", i, err)
		}
	}

	logger.Info("batch dispatched", zap.Int("chunks", len(chunks)))

	return &BatchProcessingResult{
		BatchID:    batchID,
		Status:     domain.BatchStatusProcessing,
		TotalItems: total,
	}, nil
}

// ReconcileChunk runs the lookup/create/update protocol for one chunk.
// It is safe to re-run on the same chunk: items created by an earlier
// attempt resolve through the lookup and route to the update path.
func (s *ReconcileService) ReconcileChunk(ctx context.Context, chunk []domain.ItemUpsertRequest) ChunkOutcome {
	if len(chunk) == 0 {
		return ChunkOutcome{}
	}

	if s.metrics != nil {
		s.metrics.IncReconcileInFlight()
		defer s.metrics.DecReconcileInFlight()
	}

	federatedIDs := make([]string, 0, len(chunk))
	for _, item := range chunk {
		federatedIDs = append(federatedIDs, item.FederatedID)
	}

	lookupStart := s.now()
	existing, err := s.catalog.LookupByFederatedIDs(ctx, federatedIDs)
	s.observeCatalogCall("lookup", lookupStart)
	if err != nil {
		return s.chunkFailure(chunk, "lookup", err)
	}

	var toCreate []domain.ItemUpsertRequest
	var toUpdate []domain.ItemUpdate
	for _, item := range chunk {
		if internalID, ok := existing[item.FederatedID]; ok {
			toUpdate = append(toUpdate, domain.ItemUpdate{Item: item, InternalID: internalID})
			continue
		}
		toCreate = append(toCreate, item)
	}

	// Create and update target disjoint item sets; run them together.
	g, groupCtx := errgroup.WithContext(ctx)

	if len(toCreate) > 0 {
		g.Go(func() error {
			start := s.now()
			_, err := s.catalog.CreateBatch(groupCtx, toCreate)
			s.observeCatalogCall("create", start)
			if err != nil {
				return fmt.Errorf("create failed: %w", err)
			}
			return nil
		})
	}

	if len(toUpdate) > 0 {
		g.Go(func() error {
			start := s.now()
			_, err := s.catalog.UpdateBatch(groupCtx, toUpdate)
			s.observeCatalogCall("update", start)
			if err != nil {
				return fmt.Errorf("update failed: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return s.chunkFailure(chunk, "upsert", err)
	}

	if s.metrics != nil {
		s.metrics.AddItemsProcessed(len(chunk))
	}
	return ChunkOutcome{Processed: len(chunk)}
}

// chunkFailure counts the whole chunk as failed: one error entry per
// item, all carrying the same underlying message.
func (s *ReconcileService) chunkFailure(chunk []domain.ItemUpsertRequest, stage string, err error) ChunkOutcome {
	now := s.now().UTC()
	errs := make([]domain.BatchError, 0, len(chunk))
	for _, item := range chunk {
		errs = append(errs, domain.BatchError{
			ItemFederatedID: item.FederatedID,
			Message:         err.Error(),
			Timestamp:       now,
		})
	}

	if s.metrics != nil {
		s.metrics.IncChunkFailed()
		s.metrics.AddItemsFailed(len(chunk), stage+"_failed")
	}

	return ChunkOutcome{Failed: len(chunk), Errors: errs}
}

// failBatch records a batch-fatal error before the error is re-raised.
// Persistence here is best effort; the original failure wins.
func (s *ReconcileService) failBatch(ctx context.Context, logger *zap.Logger, batchID string, cause error) {
	if err := s.batches.AppendErrors(ctx, batchID, []domain.BatchError{{
		ItemFederatedID: domain.BatchErrorSentinelID,
		Message:         cause.Error(),
		Timestamp:       s.now().UTC(),
	}}); err != nil {
		logger.Error("failed to record batch-fatal error", zap.Error(err))
	}

	failedStatus := domain.BatchStatusFailed
	if err := s.batches.Update(ctx, batchID, repository.BatchUpdate{Status: &failedStatus}); err != nil {
		logger.Error("failed to mark batch as failed", zap.Error(err))
	}
}

func (s *ReconcileService) observeCatalogCall(operation string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveCatalogCallDuration(operation, s.now().Sub(start))
}

// newBatchID builds a collision-resistant identifier: creation time
// plus a random suffix. Uniqueness is best effort, not cryptographic.
func newBatchID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("batch_%d_%s", now.UTC().UnixMilli(), suffix)
}
