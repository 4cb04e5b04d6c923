package local

import (
	"context"
	"fmt"
	"sort"

	"go-stock-resi/internal/model"
	"go-stock-resi/internal/repository"

	"github.com/google/uuid"
)

type productRepo struct {
	b *Backend
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	return load[model.Product](ctx, r.b.rdb, r.b.productsKey)
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	products, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(products, id); i >= 0 {
		return &products[i], nil
	}
	return nil, repository.ErrNotFound
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return modify(ctx, r.b, r.b.productsKey, func(rows []model.Product) ([]model.Product, error) {
		if indexOf(rows, product.ID) >= 0 {
			return nil, fmt.Errorf("product %s already exists", product.ID)
		}
		return append(rows, *product), nil
	})
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return modify(ctx, r.b, r.b.productsKey, func(rows []model.Product) ([]model.Product, error) {
		i := indexOf(rows, product.ID)
		if i < 0 {
			return nil, repository.ErrNotFound
		}
		rows[i] = *product
		return rows, nil
	})
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return modify(ctx, r.b, r.b.productsKey, func(rows []model.Product) ([]model.Product, error) {
		i := indexOf(rows, id)
		if i < 0 {
			return nil, repository.ErrNotFound
		}
		return append(rows[:i], rows[i+1:]...), nil
	})
}

func (r *productRepo) DeleteAll(ctx context.Context) error {
	return r.b.rdb.Del(ctx, r.b.productsKey).Err()
}

type transactionRepo struct {
	b *Backend
}

func (r *transactionRepo) FindAll(ctx context.Context) ([]model.Transaction, error) {
	rows, err := load[model.Transaction](ctx, r.b.rdb, r.b.transactionsKey)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.After(rows[j].Date)
	})
	return rows, nil
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	rows, err := load[model.Transaction](ctx, r.b.rdb, r.b.transactionsKey)
	if err != nil {
		return nil, err
	}
	if i := indexOf(rows, id); i >= 0 {
		return &rows[i], nil
	}
	return nil, repository.ErrNotFound
}

// Create prepends, keeping the stored array newest-first.
func (r *transactionRepo) Create(ctx context.Context, txn *model.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return modify(ctx, r.b, r.b.transactionsKey, func(rows []model.Transaction) ([]model.Transaction, error) {
		return append([]model.Transaction{*txn}, rows...), nil
	})
}

func (r *transactionRepo) DeleteByProduct(ctx context.Context, productID uuid.UUID) error {
	return modify(ctx, r.b, r.b.transactionsKey, func(rows []model.Transaction) ([]model.Transaction, error) {
		kept := rows[:0]
		for _, t := range rows {
			if t.ProductID != productID {
				kept = append(kept, t)
			}
		}
		return kept, nil
	})
}

func (r *transactionRepo) DeleteAll(ctx context.Context) error {
	return r.b.rdb.Del(ctx, r.b.transactionsKey).Err()
}
