package catalog

import (
	"context"

	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
)

// Client is the outbound catalog port used by chunk reconciliation.
// Implementations must treat federated ids absent from the lookup
// result as non-existent, and must reject create/update calls larger
// than their configured chunk limit rather than truncating them.
type Client interface {
	// LookupByFederatedIDs resolves the subset of ids that already
	// exist to their catalog-internal ids.
	LookupByFederatedIDs(ctx context.Context, federatedIDs []string) (map[string]string, error)
	// CreateBatch creates items and returns their internal ids.
	CreateBatch(ctx context.Context, items []domain.ItemUpsertRequest) ([]string, error)
	// UpdateBatch updates items already resolved to internal ids.
	UpdateBatch(ctx context.Context, updates []domain.ItemUpdate) ([]string, error)
}
