package queue

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
)

// ChunkItem is the broker shape of one upsert request.
type ChunkItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FederatedID string `json:"federatedId"`
	Role        string `json:"role"`
}

// ChunkMessage is one chunk reconciliation job. It carries the full
// item payload so a re-delivered job can be reconciled standalone.
type ChunkMessage struct {
	JobID      string      `json:"jobId"`
	BatchID    string      `json:"batchId"`
	ChunkIndex int         `json:"chunkIndex"`
	Items      []ChunkItem `json:"items"`
}

func (m ChunkMessage) Validate() error {
	// The job id keys redelivery deduplication, so it is mandatory.
	if strings.TrimSpace(m.JobID) == "" {
		return fmt.Errorf("jobId is required")
	}
	if strings.TrimSpace(m.BatchID) == "" {
		return fmt.Errorf("batchId is required")
	}
	if m.ChunkIndex < 0 {
		return fmt.Errorf("chunkIndex must be >= 0")
	}
	if len(m.Items) == 0 {
		return fmt.Errorf("items is required")
	}
	for i, item := range m.Items {
		if strings.TrimSpace(item.FederatedID) == "" {
			return fmt.Errorf("items[%d].federatedId is required", i)
		}
		if _, err := domain.ParseItemRoleFromString(item.Role); err != nil {
			return fmt.Errorf("items[%d]: invalid role %q", i, item.Role)
		}
	}
	return nil
}

// ChunkItemsFromDomain converts upsert requests to their broker shape.
func ChunkItemsFromDomain(items []domain.ItemUpsertRequest) []ChunkItem {
	out := make([]ChunkItem, 0, len(items))
	for _, item := range items {
		out = append(out, ChunkItem{
			Name:        item.Name,
			Description: item.Description,
			FederatedID: item.FederatedID,
			Role:        item.Role.String(),
		})
	}
	return out
}

// ChunkItemsToDomain converts broker items back to upsert requests.
// Validate must have accepted the message first.
func ChunkItemsToDomain(items []ChunkItem) []domain.ItemUpsertRequest {
	out := make([]domain.ItemUpsertRequest, 0, len(items))
	for _, item := range items {
		out = append(out, domain.ItemUpsertRequest{
			Name:        item.Name,
			Description: item.Description,
			FederatedID: item.FederatedID,
			Role:        domain.ItemRole(strings.ToUpper(strings.TrimSpace(item.Role))),
		})
	}
	return out
}
