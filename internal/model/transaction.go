package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TxIn  TransactionType = "IN"
	TxOut TransactionType = "OUT"
)

// Delta returns the signed stock change of a movement of qty units.
func (t TransactionType) Delta(qty int) int {
	if t == TxOut {
		return -qty
	}
	return qty
}

// Overflows reports whether adding qty units to stock exceeds the int range.
func (t TransactionType) Overflows(stock, qty int) bool {
	return t == TxIn && qty > math.MaxInt-stock
}

// Transaction is an immutable ledger row. It is only ever created or bulk-deleted.
type Transaction struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Type      TransactionType `gorm:"type:varchar(10);not null" json:"type"`
	Quantity  int             `gorm:"not null" json:"quantity"` // Qty harus > 0
	Date      time.Time       `gorm:"not null;index" json:"date"`
	Notes     string          `gorm:"type:text" json:"notes,omitempty"`
	User      string          `gorm:"column:user_name;type:varchar(255)" json:"user"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

func (t Transaction) Key() uuid.UUID { return t.ID }

func (t Transaction) Stamp() time.Time { return t.Date }

// Movement is the input of a stock adjustment.
type Movement struct {
	ProductID uuid.UUID       `json:"product_id" validate:"uuid_required"`
	Type      TransactionType `json:"type" validate:"required,oneof=IN OUT"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	Notes     string          `json:"notes"`
}
