package domain

import (
	"fmt"
	"strings"
	"time"
)

// BatchStatus represents the processing state of a batch.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "PENDING"
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusFailed     BatchStatus = "FAILED"
	BatchStatusPartial    BatchStatus = "PARTIAL"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPending, BatchStatusProcessing, BatchStatusCompleted, BatchStatusFailed, BatchStatusPartial:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s BatchStatus) IsTerminal() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusPartial:
		return true
	}
	return false
}

func ParseBatchStatusFromString(s string) (BatchStatus, error) {
	st := BatchStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid batch status %q", ErrValidation, s)
	}
	return st, nil
}

// DeriveStatus computes the terminal status from aggregate counts:
// COMPLETED when nothing failed, FAILED when nothing succeeded, PARTIAL
// otherwise.
func DeriveStatus(processed, failed, total int) BatchStatus {
	switch {
	case failed == 0:
		return BatchStatusCompleted
	case processed == 0:
		return BatchStatusFailed
	default:
		return BatchStatusPartial
	}
}

// BatchErrorSentinelID marks a BatchError that applies to the whole
// batch rather than a single item.
const BatchErrorSentinelID = "batch"

// BatchError records one item-level (or batch-level) reconciliation failure.
type BatchError struct {
	ItemFederatedID string
	Message         string
	Timestamp       time.Time
}

// Batch is the status record for one reconciliation run.
// Invariant: ProcessedItems + FailedItems <= TotalItems, with equality
// once Status is terminal.
type Batch struct {
	ID             string
	Status         BatchStatus
	TotalItems     int
	ProcessedItems int
	FailedItems    int
	Errors         []BatchError
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
