// Package postgres is the remote backend: rows live in Postgres and changes
// made by any client are pushed back through LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"time"

	"go-stock-resi/internal/model"
	"go-stock-resi/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChangeChannel is the NOTIFY channel fed by the row triggers.
const ChangeChannel = "stock_resi_changes"

type Backend struct {
	db           *gorm.DB
	dsn          string
	logger       *zap.Logger
	products     repository.ProductRepository
	transactions repository.TransactionRepository
}

// NewBackend wraps an open GORM connection. dsn is used to open the
// dedicated listener connection.
func NewBackend(db *gorm.DB, dsn string, logger *zap.Logger) *Backend {
	return &Backend{
		db:           db,
		dsn:          dsn,
		logger:       logger.Named("postgres"),
		products:     NewProductRepo(db),
		transactions: NewTransactionRepo(db),
	}
}

func (b *Backend) Name() string { return "remote" }

func (b *Backend) Products() repository.ProductRepository { return b.products }

func (b *Backend) Transactions() repository.TransactionRepository { return b.transactions }

func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ApplyMovement locks the product row, re-checks the stock and writes the
// new quantity together with the ledger row.
func (b *Backend) ApplyMovement(ctx context.Context, txn *model.Transaction, updatedAt time.Time) (*model.Product, error) {
	var updated model.Product

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product model.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", txn.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}

		if txn.Type.Overflows(product.Quantity, txn.Quantity) {
			return repository.ErrStockOverflow
		}
		newStock := product.Quantity + txn.Type.Delta(txn.Quantity)
		if newStock < 0 {
			return &repository.StockError{Available: product.Quantity}
		}

		if err := tx.Model(&model.Product{}).
			Where("id = ?", product.ID).
			Updates(map[string]interface{}{
				"quantity":   newStock,
				"updated_at": updatedAt,
			}).Error; err != nil {
			return err
		}

		if err := tx.Create(txn).Error; err != nil {
			return err
		}

		product.Quantity = newStock
		product.UpdatedAt = updatedAt
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

var (
	_ repository.Backend         = (*Backend)(nil)
	_ repository.MovementApplier = (*Backend)(nil)
)
