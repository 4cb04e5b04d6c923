package postgres

import (
	"context"

	"go-stock-resi/internal/model"
	"go-stock-resi/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) repository.TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) FindAll(ctx context.Context) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.WithContext(ctx).Order("date DESC").Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	if err := r.db.WithContext(ctx).First(&transaction, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &transaction, nil
}

func (r *transactionRepo) Create(ctx context.Context, txn *model.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepo) DeleteByProduct(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&model.Transaction{}).Error
}

func (r *transactionRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Transaction{}).Error
}
