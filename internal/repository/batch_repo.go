package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchUpdate holds the partial fields an Update call may change.
type BatchUpdate struct {
	Status     *domain.BatchStatus
	TotalItems *int
}

// BatchRepository is the status store for batch records.
type BatchRepository interface {
	Create(ctx context.Context, b *domain.Batch) error
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	Update(ctx context.Context, id string, update BatchUpdate) error
	AppendErrors(ctx context.Context, id string, errs []domain.BatchError) error
	// IncrementCounters atomically adds to the processed/failed counts
	// and returns the updated record.
	IncrementCounters(ctx context.Context, id string, processedDelta, failedDelta int) (*domain.Batch, error)
	// RecordChunkResult applies one chunk job's errors and counter
	// deltas at most once, keyed by job id. A job id that was already
	// recorded applies nothing and reports applied=false; the returned
	// batch reflects the stored counts either way.
	RecordChunkResult(ctx context.Context, id string, jobID string, processedDelta, failedDelta int, errs []domain.BatchError) (*domain.Batch, bool, error)
	// FinalizeIfProcessing performs the terminal transition only when
	// the batch is still PROCESSING, so concurrent finalizers apply it
	// at most once. It reports whether this call won the transition.
	FinalizeIfProcessing(ctx context.Context, id string, status domain.BatchStatus) (bool, error)
}

type GormBatchRepo struct {
	db *gorm.DB
}

func NewGormBatchRepo(db *gorm.DB) *GormBatchRepo {
	return &GormBatchRepo{db: db}
}

func (r *GormBatchRepo) Create(ctx context.Context, b *domain.Batch) error {
	model := batchModelFromDomain(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if b != nil {
		b.CreatedAt = model.CreatedAt
		b.UpdatedAt = model.UpdatedAt
	}
	return nil
}

func (r *GormBatchRepo) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	var model BatchModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	errs, err := r.errorsForBatch(ctx, id)
	if err != nil {
		return nil, err
	}

	return batchModelToDomain(&model, errs), nil
}

func (r *GormBatchRepo) Update(ctx context.Context, id string, update BatchUpdate) error {
	fields := map[string]any{}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.TotalItems != nil {
		fields["total_items"] = *update.TotalItems
	}
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&BatchModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormBatchRepo) AppendErrors(ctx context.Context, id string, errs []domain.BatchError) error {
	if len(errs) == 0 {
		return nil
	}

	models := make([]BatchErrorModel, 0, len(errs))
	for _, e := range errs {
		createdAt := e.Timestamp
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		models = append(models, BatchErrorModel{
			BatchID:         id,
			ItemFederatedID: e.ItemFederatedID,
			Message:         e.Message,
			CreatedAt:       createdAt,
		})
	}

	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *GormBatchRepo) IncrementCounters(ctx context.Context, id string, processedDelta, failedDelta int) (*domain.Batch, error) {
	result := r.db.WithContext(ctx).
		Model(&BatchModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processed_items": gorm.Expr("processed_items + ?", processedDelta),
			"failed_items":    gorm.Expr("failed_items + ?", failedDelta),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *GormBatchRepo) RecordChunkResult(ctx context.Context, id string, jobID string, processedDelta, failedDelta int, errs []domain.BatchError) (*domain.Batch, bool, error) {
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job := ChunkJobModel{JobID: jobID, BatchID: id}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&job)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Job already recorded by an earlier delivery.
			return nil
		}
		applied = true

		if len(errs) > 0 {
			models := make([]BatchErrorModel, 0, len(errs))
			for _, e := range errs {
				createdAt := e.Timestamp
				if createdAt.IsZero() {
					createdAt = time.Now().UTC()
				}
				models = append(models, BatchErrorModel{
					BatchID:         id,
					ItemFederatedID: e.ItemFederatedID,
					Message:         e.Message,
					CreatedAt:       createdAt,
				})
			}
			if err := tx.Create(&models).Error; err != nil {
				return err
			}
		}

		counters := tx.Model(&BatchModel{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"processed_items": gorm.Expr("processed_items + ?", processedDelta),
				"failed_items":    gorm.Expr("failed_items + ?", failedDelta),
			})
		if counters.Error != nil {
			return counters.Error
		}
		if counters.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	batch, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return batch, applied, nil
}

func (r *GormBatchRepo) FinalizeIfProcessing(ctx context.Context, id string, status domain.BatchStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&BatchModel{}).
		Where("id = ? AND status = ?", id, domain.BatchStatusProcessing).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormBatchRepo) errorsForBatch(ctx context.Context, id string) ([]BatchErrorModel, error) {
	var errs []BatchErrorModel
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", id).
		Order("id ASC").
		Find(&errs).Error
	if err != nil {
		return nil, err
	}
	return errs, nil
}
