package repository

import (
	"context"
	"errors"
	"time"

	"go-stock-resi/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrNegativeStock = errors.New("stock would become negative")
	ErrStockOverflow = errors.New("stock would overflow")
)

// StockError reports the quantity a backend found when it refused a movement.
type StockError struct {
	Available int
}

func (e *StockError) Error() string { return ErrNegativeStock.Error() }

func (e *StockError) Is(target error) bool { return target == ErrNegativeStock }

type ProductRepository interface {
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Create(ctx context.Context, product *model.Product) error
	// Update overwrites the stored row with the same ID. ErrNotFound if absent.
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
}

type TransactionRepository interface {
	// FindAll returns the ledger most-recent-first.
	FindAll(ctx context.Context) ([]model.Transaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	Create(ctx context.Context, txn *model.Transaction) error
	DeleteByProduct(ctx context.Context, productID uuid.UUID) error
	DeleteAll(ctx context.Context) error
}

// ChangeHandler receives row changes pushed by a backend. A ChangeSet with
// Resync set carries no rows and asks for a full reload.
type ChangeHandler func(model.ChangeSet)

// Backend is one of the interchangeable stores, chosen once at startup.
type Backend interface {
	Name() string
	Products() ProductRepository
	Transactions() TransactionRepository
	// Subscribe delivers changes to handler until ctx is done. It returns once
	// the subscription is established. Backends without push return nil
	// immediately and never call handler.
	Subscribe(ctx context.Context, handler ChangeHandler) error
	Close() error
}

// MovementApplier is implemented by backends that can commit a stock
// adjustment and its ledger row as one unit. The stored quantity is
// re-checked by the backend; ErrNegativeStock or ErrStockOverflow aborts
// without writes.
type MovementApplier interface {
	ApplyMovement(ctx context.Context, txn *model.Transaction, updatedAt time.Time) (*model.Product, error)
}
