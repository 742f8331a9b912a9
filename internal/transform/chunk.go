package transform

import (
	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
)

// Chunk partitions items into contiguous slices of at most size
// elements; only the final chunk may be shorter. Chunks alias the input
// slice, so callers must not mutate items afterwards.
func Chunk(items []domain.ItemUpsertRequest, size int) [][]domain.ItemUpsertRequest {
	if size < 1 || len(items) == 0 {
		return nil
	}

	chunks := make([][]domain.ItemUpsertRequest, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
