package transform

import (
	"fmt"

	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
)

// EnsureFamiliesExist appends a synthesized family record for every
// family referenced by an option row that is neither declared by a
// family row nor already present as a family item. Original items are
// returned unmodified and in their original order; synthesized families
// follow, in first-seen order across rows. Re-applying the resolver to
// its own output adds nothing.
// Duplicate declared-family rows are left as-is: the catalog upsert is
// keyed by federated id, so duplicates resolve to updates there.
func EnsureFamiliesExist(items []domain.ItemUpsertRequest, rows []domain.Row) []domain.ItemUpsertRequest {
	declared := make(map[string]struct{})
	referenced := make(map[string]struct{})
	var referencedOrder []string

	for _, row := range rows {
		if row.IsOption() {
			if _, seen := referenced[row.FamilyKey]; !seen {
				referenced[row.FamilyKey] = struct{}{}
				referencedOrder = append(referencedOrder, row.FamilyKey)
			}
			continue
		}
		declared[row.FamilyKey] = struct{}{}
	}

	for _, item := range items {
		if item.Role == domain.RoleFamily {
			declared[item.FederatedID] = struct{}{}
		}
	}

	result := make([]domain.ItemUpsertRequest, len(items), len(items)+len(referencedOrder))
	copy(result, items)

	for _, familyKey := range referencedOrder {
		if _, ok := declared[familyKey]; ok {
			continue
		}
		result = append(result, synthesizeFamily(familyKey))
	}

	return result
}

func synthesizeFamily(familyKey string) domain.ItemUpsertRequest {
	return domain.ItemUpsertRequest{
		Name:        fmt.Sprintf("Family %s", familyKey),
		Description: fmt.Sprintf("Auto-generated family for %s", familyKey),
		FederatedID: familyKey,
		Role:        domain.RoleFamily,
	}
}
