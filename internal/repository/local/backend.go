// Package local is the single-device backend. Each collection is one JSON
// array stored under its own Redis key, mirroring the browser storage layout
// the app started with. There is no push channel; other processes are noticed
// through keyspace notifications when the server has them enabled.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-stock-resi/internal/model"
	"go-stock-resi/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultPrefix = "stock-resi"
	maxRetries    = 5
)

var ErrConflict = errors.New("local store: too many concurrent writers")

type Backend struct {
	rdb             *redis.Client
	productsKey     string
	transactionsKey string
	logger          *zap.Logger
	products        *productRepo
	transactions    *transactionRepo
}

func NewBackend(rdb *redis.Client, prefix string, logger *zap.Logger) *Backend {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	b := &Backend{
		rdb:             rdb,
		productsKey:     prefix + "-products",
		transactionsKey: prefix + "-transactions",
		logger:          logger.Named("local"),
	}
	b.products = &productRepo{b}
	b.transactions = &transactionRepo{b}
	return b
}

func (b *Backend) Name() string { return "local" }

func (b *Backend) Products() repository.ProductRepository { return b.products }

func (b *Backend) Transactions() repository.TransactionRepository { return b.transactions }

func (b *Backend) Close() error { return b.rdb.Close() }

// ApplyMovement rewrites both collections in one MULTI so the stock change
// and its ledger row land together.
func (b *Backend) ApplyMovement(ctx context.Context, txn *model.Transaction, updatedAt time.Time) (*model.Product, error) {
	var updated model.Product

	err := b.watch(ctx, func(tx *redis.Tx) error {
		products, err := load[model.Product](ctx, tx, b.productsKey)
		if err != nil {
			return err
		}
		ledger, err := load[model.Transaction](ctx, tx, b.transactionsKey)
		if err != nil {
			return err
		}

		idx := indexOf(products, txn.ProductID)
		if idx < 0 {
			return repository.ErrNotFound
		}
		if txn.Type.Overflows(products[idx].Quantity, txn.Quantity) {
			return repository.ErrStockOverflow
		}
		newStock := products[idx].Quantity + txn.Type.Delta(txn.Quantity)
		if newStock < 0 {
			return &repository.StockError{Available: products[idx].Quantity}
		}
		products[idx].Quantity = newStock
		products[idx].UpdatedAt = updatedAt
		ledger = append([]model.Transaction{*txn}, ledger...)

		pData, err := encode(products)
		if err != nil {
			return err
		}
		tData, err := encode(ledger)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, b.productsKey, pData, 0)
			pipe.Set(ctx, b.transactionsKey, tData, 0)
			return nil
		}); err != nil {
			return err
		}
		updated = products[idx]
		return nil
	}, b.productsKey, b.transactionsKey)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// watch runs fn under WATCH on keys, retrying when another writer got in first.
func (b *Backend) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxRetries; i++ {
		err := b.rdb.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			b.logger.Debug("optimistic write conflict, retrying", zap.Strings("keys", keys), zap.Int("attempt", i+1))
			continue
		}
		return err
	}
	return ErrConflict
}

// modify is a read-modify-write of one collection.
func modify[T any](ctx context.Context, b *Backend, key string, fn func([]T) ([]T, error)) error {
	return b.watch(ctx, func(tx *redis.Tx) error {
		rows, err := load[T](ctx, tx, key)
		if err != nil {
			return err
		}
		next, err := fn(rows)
		if err != nil {
			return err
		}
		data, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
}

func load[T any](ctx context.Context, c redis.Cmdable, key string) ([]T, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return rows, nil
}

func encode[T any](rows []T) ([]byte, error) {
	if rows == nil {
		rows = []T{}
	}
	return json.Marshal(rows)
}

func indexOf[T model.Entity](rows []T, id uuid.UUID) int {
	for i := range rows {
		if rows[i].Key() == id {
			return i
		}
	}
	return -1
}

var (
	_ repository.Backend         = (*Backend)(nil)
	_ repository.MovementApplier = (*Backend)(nil)
)
