package local

import (
	"go-stock-resi/internal/model"

	"github.com/google/uuid"
)

// diff describes how prev became next as row changes.
func diff[T model.Entity](prev, next []T, same func(a, b T) bool) []model.Change[T] {
	seen := make(map[uuid.UUID]T, len(prev))
	for _, row := range prev {
		seen[row.Key()] = row
	}

	var changes []model.Change[T]
	present := make(map[uuid.UUID]struct{}, len(next))
	for _, row := range next {
		present[row.Key()] = struct{}{}
		old, ok := seen[row.Key()]
		switch {
		case !ok:
			changes = append(changes, model.Inserted(row))
		case !same(old, row):
			changes = append(changes, model.Updated(row))
		}
	}
	for _, row := range prev {
		if _, ok := present[row.Key()]; !ok {
			changes = append(changes, model.Deleted[T](row.Key()))
		}
	}
	return changes
}

func sameProduct(a, b model.Product) bool {
	if a.Name != b.Name || a.Category != b.Category || a.Quantity != b.Quantity ||
		a.MinStock != b.MinStock || a.Unit != b.Unit || !a.UpdatedAt.Equal(b.UpdatedAt) {
		return false
	}
	if a.ExpirationDate == nil || b.ExpirationDate == nil {
		return a.ExpirationDate == nil && b.ExpirationDate == nil
	}
	return a.ExpirationDate.Equal(*b.ExpirationDate)
}

// Ledger rows never change in place.
func sameTransaction(model.Transaction, model.Transaction) bool { return true }
