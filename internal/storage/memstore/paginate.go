package memstore

import (
	"sort"

	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

// paginate applies the canonical descending-(created_at,id) cursor contract
// to an already-filtered (but unsorted) slice of items.
func paginate[T any](items []T, createdAt func(T) uint64, id func(T) uuid.UUID, cursor *storage.Cursor, limit int) storage.Page[T] {
	sorted := make([]T, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := createdAt(sorted[i]), createdAt(sorted[j])
		if ci != cj {
			return ci > cj
		}
		return storage.CompareIDs(id(sorted[i]), id(sorted[j])) > 0
	})

	filtered := sorted
	if cursor != nil {
		filtered = make([]T, 0, len(sorted))
		for _, it := range sorted {
			if cursor.Before(createdAt(it), id(it)) {
				filtered = append(filtered, it)
			}
		}
	}

	limit = storage.ClampLimit(limit)

	if len(filtered) <= limit {
		return storage.Page[T]{Items: filtered}
	}

	page := filtered[:limit]
	last := page[len(page)-1]
	next := storage.Cursor{CreatedAt: createdAt(last), ID: id(last)}
	return storage.Page[T]{Items: page, NextCursor: &next}
}
