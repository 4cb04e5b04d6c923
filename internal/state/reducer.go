package state

import (
	"sort"

	"go-stock-resi/internal/model"
)

// reduce folds one change into rows. Inserts of a present id and
// updates/deletes of an absent id are ignored, as are updates not newer than
// the row they would replace. The second result reports whether rows changed.
func reduce[T model.Entity](rows []T, ch model.Change[T], insert func([]T, T) []T) ([]T, bool) {
	idx := -1
	for i := range rows {
		if rows[i].Key() == ch.ID {
			idx = i
			break
		}
	}

	switch ch.Kind {
	case model.ChangeInserted:
		if idx >= 0 {
			return rows, false
		}
		return insert(rows, ch.Entity), true

	case model.ChangeUpdated:
		if idx < 0 {
			return rows, false
		}
		if !ch.Entity.Stamp().After(rows[idx].Stamp()) {
			return rows, false
		}
		next := make([]T, len(rows))
		copy(next, rows)
		next[idx] = ch.Entity
		return next, true

	case model.ChangeDeleted:
		if idx < 0 {
			return rows, false
		}
		next := make([]T, 0, len(rows)-1)
		next = append(next, rows[:idx]...)
		return append(next, rows[idx+1:]...), true
	}
	return rows, false
}

// ReduceProducts applies a product change. New products are appended.
func ReduceProducts(rows []model.Product, ch model.Change[model.Product]) ([]model.Product, bool) {
	return reduce(rows, ch, func(rows []model.Product, p model.Product) []model.Product {
		next := make([]model.Product, 0, len(rows)+1)
		next = append(next, rows...)
		return append(next, p)
	})
}

// ReduceTransactions applies a ledger change, keeping rows most-recent-first.
func ReduceTransactions(rows []model.Transaction, ch model.Change[model.Transaction]) ([]model.Transaction, bool) {
	return reduce(rows, ch, insertByDateDesc)
}

func insertByDateDesc(rows []model.Transaction, t model.Transaction) []model.Transaction {
	at := sort.Search(len(rows), func(i int) bool {
		return !rows[i].Date.After(t.Date)
	})
	next := make([]model.Transaction, 0, len(rows)+1)
	next = append(next, rows[:at]...)
	next = append(next, t)
	return append(next, rows[at:]...)
}

// SortTransactions orders rows most-recent-first in place.
func SortTransactions(rows []model.Transaction) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.After(rows[j].Date)
	})
}
