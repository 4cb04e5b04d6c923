package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"go-stock-resi/internal/model"

	"github.com/google/uuid"
)

// notification is the payload built by stock_resi_notify.
type notification struct {
	Table string          `json:"table"`
	Op    string          `json:"op"`
	ID    uuid.UUID       `json:"id"`
	Row   json.RawMessage `json:"row"`
}

// productRow mirrors row_to_json output for the products table.
type productRow struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Quantity       int       `json:"quantity"`
	MinStock       int       `json:"min_stock"`
	Unit           string    `json:"unit"`
	ExpirationDate *string   `json:"expiration_date"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type transactionRow struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Type      string    `json:"type"`
	Quantity  int       `json:"quantity"`
	Date      time.Time `json:"date"`
	Notes     *string   `json:"notes"`
	UserName  *string   `json:"user_name"`
}

func (r productRow) toModel() (model.Product, error) {
	p := model.Product{
		ID:        r.ID,
		Name:      r.Name,
		Category:  model.Category(r.Category),
		Quantity:  r.Quantity,
		MinStock:  r.MinStock,
		Unit:      r.Unit,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.ExpirationDate != nil && *r.ExpirationDate != "" {
		d, err := time.Parse(time.DateOnly, *r.ExpirationDate)
		if err != nil {
			return p, fmt.Errorf("expiration_date: %w", err)
		}
		p.ExpirationDate = &d
	}
	return p, nil
}

func (r transactionRow) toModel() model.Transaction {
	t := model.Transaction{
		ID:        r.ID,
		ProductID: r.ProductID,
		Type:      model.TransactionType(r.Type),
		Quantity:  r.Quantity,
		Date:      r.Date.UTC(),
	}
	if r.Notes != nil {
		t.Notes = *r.Notes
	}
	if r.UserName != nil {
		t.User = *r.UserName
	}
	return t
}

// decodeNotification turns a NOTIFY payload into a change set.
func decodeNotification(payload string) (model.ChangeSet, error) {
	var cs model.ChangeSet

	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return cs, fmt.Errorf("decode notification: %w", err)
	}

	var kind model.ChangeKind
	switch n.Op {
	case "INSERT":
		kind = model.ChangeInserted
	case "UPDATE":
		kind = model.ChangeUpdated
	case "DELETE":
		kind = model.ChangeDeleted
	default:
		return cs, fmt.Errorf("unknown operation %q", n.Op)
	}

	switch n.Table {
	case "products":
		ch := model.Change[model.Product]{Kind: kind, ID: n.ID}
		if kind != model.ChangeDeleted {
			var row productRow
			if err := json.Unmarshal(n.Row, &row); err != nil {
				return cs, fmt.Errorf("decode product row: %w", err)
			}
			p, err := row.toModel()
			if err != nil {
				return cs, err
			}
			ch.Entity = p
		}
		cs.Products = append(cs.Products, ch)

	case "transactions":
		ch := model.Change[model.Transaction]{Kind: kind, ID: n.ID}
		if kind != model.ChangeDeleted {
			var row transactionRow
			if err := json.Unmarshal(n.Row, &row); err != nil {
				return cs, fmt.Errorf("decode transaction row: %w", err)
			}
			ch.Entity = row.toModel()
		}
		cs.Transactions = append(cs.Transactions, ch)

	default:
		return cs, fmt.Errorf("unknown table %q", n.Table)
	}
	return cs, nil
}
