package transform

import (
	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
)

// Transform maps one validated row to its catalog upsert request.
// Option rows are keyed by the option key; family rows by the family key.
func Transform(row domain.Row) domain.ItemUpsertRequest {
	item := domain.ItemUpsertRequest{
		Name:        row.Title,
		Description: row.Details,
		FederatedID: row.FamilyKey,
		Role:        domain.RoleFamily,
	}
	if row.IsOption() {
		item.FederatedID = *row.OptionKey
		item.Role = domain.RoleOption
	}
	return item
}

// TransformAll maps rows in order. Positions are stable: downstream
// chunking and family backfill rely on them.
func TransformAll(rows []domain.Row) []domain.ItemUpsertRequest {
	items := make([]domain.ItemUpsertRequest, len(rows))
	for i, row := range rows {
		items[i] = Transform(row)
	}
	return items
}
