package state

import (
	"sync"

	"go-stock-resi/internal/model"

	"github.com/google/uuid"
)

// Store is the in-memory view of the catalog and ledger that readers observe.
// Slices handed out are never mutated afterwards.
type Store struct {
	mu           sync.RWMutex
	products     []model.Product
	transactions []model.Transaction
}

func NewStore() *Store {
	return &Store{products: []model.Product{}, transactions: []model.Transaction{}}
}

// Reset replaces the whole snapshot with authoritative rows.
func (s *Store) Reset(products []model.Product, transactions []model.Transaction) {
	p := make([]model.Product, len(products))
	copy(p, products)
	t := make([]model.Transaction, len(transactions))
	copy(t, transactions)
	SortTransactions(t)

	s.mu.Lock()
	s.products = p
	s.transactions = t
	s.mu.Unlock()
}

func (s *Store) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products
}

func (s *Store) Transactions() []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactions
}

func (s *Store) Product(id uuid.UUID) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

func (s *Store) Transaction(id uuid.UUID) (model.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transactions {
		if t.ID == id {
			return t, true
		}
	}
	return model.Transaction{}, false
}

// Apply folds a change set into the snapshot and returns the changes that
// had an effect.
func (s *Store) Apply(cs model.ChangeSet) model.ChangeSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	var applied model.ChangeSet
	for _, ch := range cs.Products {
		var changed bool
		if s.products, changed = ReduceProducts(s.products, ch); changed {
			applied.Products = append(applied.Products, ch)
		}
	}
	for _, ch := range cs.Transactions {
		var changed bool
		if s.transactions, changed = ReduceTransactions(s.transactions, ch); changed {
			applied.Transactions = append(applied.Transactions, ch)
		}
	}
	return applied
}

// RemoveProduct drops a product and its ledger rows, returning what was removed.
func (s *Store) RemoveProduct(id uuid.UUID) (model.ChangeSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed model.ChangeSet
	var found bool
	if s.products, found = ReduceProducts(s.products, model.Deleted[model.Product](id)); !found {
		return removed, false
	}
	removed.Products = append(removed.Products, model.Deleted[model.Product](id))

	kept := make([]model.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if t.ProductID == id {
			removed.Transactions = append(removed.Transactions, model.Deleted[model.Transaction](t.ID))
			continue
		}
		kept = append(kept, t)
	}
	s.transactions = kept
	return removed, true
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.products = []model.Product{}
	s.transactions = []model.Transaction{}
	s.mu.Unlock()
}
