package repository

import (
	"time"

	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
)

// BatchModel is the persistence model for the batches table.
type BatchModel struct {
	ID             string             `gorm:"type:varchar(64);primaryKey"`
	Status         domain.BatchStatus `gorm:"type:varchar(20);not null"`
	TotalItems     int                `gorm:"not null;default:0"`
	ProcessedItems int                `gorm:"not null;default:0"`
	FailedItems    int                `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (BatchModel) TableName() string {
	return "batches"
}

// BatchErrorModel is the persistence model for batch_errors.
type BatchErrorModel struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	BatchID         string `gorm:"type:varchar(64);not null;index"`
	ItemFederatedID string `gorm:"type:varchar(255);not null"`
	Message         string `gorm:"type:text;not null"`
	CreatedAt       time.Time
}

func (BatchErrorModel) TableName() string {
	return "batch_errors"
}

// ChunkJobModel records chunk job ids whose outcome has been applied to
// a batch. The unique job id makes redelivered jobs apply at most once.
type ChunkJobModel struct {
	JobID     string `gorm:"type:varchar(64);primaryKey"`
	BatchID   string `gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time
}

func (ChunkJobModel) TableName() string {
	return "chunk_jobs"
}

func batchModelFromDomain(b *domain.Batch) *BatchModel {
	if b == nil {
		return &BatchModel{}
	}
	return &BatchModel{
		ID:             b.ID,
		Status:         b.Status,
		TotalItems:     b.TotalItems,
		ProcessedItems: b.ProcessedItems,
		FailedItems:    b.FailedItems,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func batchModelToDomain(model *BatchModel, errs []BatchErrorModel) *domain.Batch {
	batch := &domain.Batch{
		ID:             model.ID,
		Status:         model.Status,
		TotalItems:     model.TotalItems,
		ProcessedItems: model.ProcessedItems,
		FailedItems:    model.FailedItems,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
	for _, e := range errs {
		batch.Errors = append(batch.Errors, domain.BatchError{
			ItemFederatedID: e.ItemFederatedID,
			Message:         e.Message,
			Timestamp:       e.CreatedAt,
		})
	}
	return batch
}
