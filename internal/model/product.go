package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryPharmacy Category = "Pharmacy"
	CategoryHygiene  Category = "Hygiene"
	CategoryCleaning Category = "Cleaning"
	CategoryFood     Category = "Food"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryPharmacy, CategoryHygiene, CategoryCleaning, CategoryFood}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ExpiringWindow is how close to its expiration date a product is flagged.
const ExpiringWindow = 7 * 24 * time.Hour

type ExpirationStatus string

const (
	ExpirationNone     ExpirationStatus = ""
	ExpirationOK       ExpirationStatus = "ok"
	ExpirationExpiring ExpirationStatus = "expiring"
	ExpirationExpired  ExpirationStatus = "expired"
)

type Product struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	Name           string     `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Category       Category   `gorm:"type:varchar(20);not null;index" json:"category" validate:"required,enum"`
	Quantity       int        `gorm:"not null;default:0" json:"quantity" validate:"min=0"`
	MinStock       int        `gorm:"not null;default:0" json:"min_stock" validate:"min=0"`
	Unit           string     `gorm:"type:varchar(20)" json:"unit"`
	ExpirationDate *time.Time `gorm:"type:date" json:"expiration_date,omitempty"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// Hook Before Create untuk generate UUID kalau belum ada
func (p *Product) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

func (p Product) Key() uuid.UUID { return p.ID }

func (p Product) Stamp() time.Time { return p.UpdatedAt }

// IsLowStock reports whether the product is at or below its reorder threshold.
func (p Product) IsLowStock() bool {
	return p.Quantity <= p.MinStock
}

func (p Product) IsOutOfStock() bool {
	return p.Quantity == 0
}

// ExpirationStatus classifies the expiration date against now. Dates are
// compared as calendar days in UTC.
func (p Product) ExpirationStatus(now time.Time) ExpirationStatus {
	if p.ExpirationDate == nil {
		return ExpirationNone
	}
	today := truncateDay(now)
	exp := truncateDay(*p.ExpirationDate)
	switch {
	case exp.Before(today):
		return ExpirationExpired
	case exp.Sub(today) < ExpiringWindow:
		return ExpirationExpiring
	default:
		return ExpirationOK
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ProductPatch carries the fields of a partial update. Nil fields are left alone.
type ProductPatch struct {
	Name           *string    `json:"name"`
	Category       *Category  `json:"category"`
	Quantity       *int       `json:"quantity"`
	MinStock       *int       `json:"min_stock"`
	Unit           *string    `json:"unit"`
	ExpirationDate *time.Time `json:"expiration_date"`
	ClearExpiry    bool       `json:"clear_expiration_date"`
}

// Apply merges the patch into a copy of p.
func (patch ProductPatch) Apply(p Product) Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.MinStock != nil {
		p.MinStock = *patch.MinStock
	}
	if patch.Unit != nil {
		p.Unit = *patch.Unit
	}
	if patch.ExpirationDate != nil {
		d := *patch.ExpirationDate
		p.ExpirationDate = &d
	}
	if patch.ClearExpiry {
		p.ExpirationDate = nil
	}
	return p
}
