package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-stock-resi/internal/model"
	"go-stock-resi/internal/repository"
	"go-stock-resi/internal/ws"

	"github.com/google/uuid"
)

var errStoreDown = errors.New("store unavailable")

// fakeBackend is an in-memory backend whose operations can be made to fail
// by name, e.g. "transactions.create".
type fakeBackend struct {
	mu           sync.Mutex
	products     []model.Product
	transactions []model.Transaction
	fail         map[string]error
	handler      repository.ChangeHandler
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{fail: map[string]error{}}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Products() repository.ProductRepository { return fakeProducts{b} }

func (b *fakeBackend) Transactions() repository.TransactionRepository { return fakeTransactions{b} }

func (b *fakeBackend) Subscribe(ctx context.Context, handler repository.ChangeHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail["subscribe"]; err != nil {
		return err
	}
	b.handler = handler
	return nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) failWith(op string, err error) {
	b.mu.Lock()
	b.fail[op] = err
	b.mu.Unlock()
}

func (b *fakeBackend) push(cs model.ChangeSet) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(cs)
	}
}

func (b *fakeBackend) storedProduct(id uuid.UUID) (model.Product, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

func (b *fakeBackend) ledgerLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.transactions)
}

type fakeProducts struct{ b *fakeBackend }

func (r fakeProducts) FindAll(ctx context.Context) ([]model.Product, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if err := r.b.fail["products.findAll"]; err != nil {
		return nil, err
	}
	return append([]model.Product(nil), r.b.products...), nil
}

func (r fakeProducts) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.b.storedProduct(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r fakeProducts) Create(ctx context.Context, product *model.Product) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if err := r.b.fail["products.create"]; err != nil {
		return err
	}
	r.b.products = append(r.b.products, *product)
	return nil
}

func (r fakeProducts) Update(ctx context.Context, product *model.Product) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if err := r.b.fail["products.update"]; err != nil {
		return err
	}
	for i := range r.b.products {
		if r.b.products[i].ID == product.ID {
			r.b.products[i] = *product
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r fakeProducts) Delete(ctx context.Context, id uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if err := r.b.fail["products.delete"]; err != nil {
		return err
	}
	for i := range r.b.products {
		if r.b.products[i].ID == id {
			r.b.products = append(r.b.products[:i], r.b.products[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r fakeProducts) DeleteAll(ctx context.Context) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if err := r.b.fail["products.deleteAll"]; err != nil {
		return err
	}
	r.b.products = nil
	return nil
}

type fakeTransactions struct{ b *fakeBackend }

func (r fakeTransactions) FindAll(ctx context.Context) ([]model.Transaction, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if err := r.b.fail["transactions.findAll"]; err != nil {
		return nil, err
	}
	return append([]model.Transaction(nil), r.b.transactions...), nil
}

func (r fakeTransactions) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for _, t := range r.b.transactions {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r fakeTransactions) Create(ctx context.Context, txn *model.Transaction) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if err := r.b.fail["transactions.create"]; err != nil {
		return err
	}
	r.b.transactions = append([]model.Transaction{*txn}, r.b.transactions...)
	return nil
}

func (r fakeTransactions) DeleteByProduct(ctx context.Context, productID uuid.UUID) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if err := r.b.fail["transactions.deleteByProduct"]; err != nil {
		return err
	}
	kept := r.b.transactions[:0]
	for _, t := range r.b.transactions {
		if t.ProductID != productID {
			kept = append(kept, t)
		}
	}
	r.b.transactions = kept
	return nil
}

func (r fakeTransactions) DeleteAll(ctx context.Context) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if err := r.b.fail["transactions.deleteAll"]; err != nil {
		return err
	}
	r.b.transactions = nil
	return nil
}

// atomicBackend adds ApplyMovement, re-checking the stored quantity.
type atomicBackend struct {
	*fakeBackend
	applied int

	// echo delivers each committed movement through the feed before
	// ApplyMovement returns, as a fast NOTIFY would. echoed is closed once
	// the handler has run.
	echo   bool
	echoed chan struct{}
}

func (b *atomicBackend) ApplyMovement(ctx context.Context, txn *model.Transaction, updatedAt time.Time) (*model.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail["applyMovement"]; err != nil {
		return nil, err
	}
	for i := range b.products {
		p := &b.products[i]
		if p.ID != txn.ProductID {
			continue
		}
		if txn.Type.Overflows(p.Quantity, txn.Quantity) {
			return nil, repository.ErrStockOverflow
		}
		next := p.Quantity + txn.Type.Delta(txn.Quantity)
		if next < 0 {
			return nil, &repository.StockError{Available: p.Quantity}
		}
		p.Quantity = next
		p.UpdatedAt = updatedAt
		b.transactions = append([]model.Transaction{*txn}, b.transactions...)
		b.applied++
		out := *p
		if b.echo && b.handler != nil {
			b.echoed = deliver(b.handler, model.ChangeSet{
				Products:     []model.Change[model.Product]{model.Updated(out)},
				Transactions: []model.Change[model.Transaction]{model.Inserted(*txn)},
			})
		}
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

// deliver runs h on its own goroutine and gives it a short head start.
func deliver(h repository.ChangeHandler, cs model.ChangeSet) chan struct{} {
	done := make(chan struct{})
	go func() {
		h(cs)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(50 * time.Millisecond):
	}
	return done
}

type recordingHub struct {
	mu     sync.Mutex
	events []ws.Event
}

func (h *recordingHub) Publish(evt ws.Event) {
	h.mu.Lock()
	h.events = append(h.events, evt)
	h.mu.Unlock()
}

func (h *recordingHub) actions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Action)
	}
	return out
}
