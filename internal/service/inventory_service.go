package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-stock-resi/internal/model"
	"go-stock-resi/internal/repository"
	"go-stock-resi/internal/state"
	"go-stock-resi/internal/ws"
	"go-stock-resi/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InventoryService interface {
	// Start loads the snapshot and follows backend changes until ctx is done.
	Start(ctx context.Context) error
	Load(ctx context.Context) error

	AddProduct(ctx context.Context, session model.Session, input ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, session model.Session, id uuid.UUID, patch model.ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, session model.Session, id uuid.UUID) error
	RecordMovement(ctx context.Context, session model.Session, movement model.Movement) (*model.Transaction, error)
	ClearAll(ctx context.Context, session model.Session) error

	GetAllProducts() []model.Product
	GetProduct(id uuid.UUID) (*model.Product, error)
	SearchProducts(filter ProductFilter) []model.Product
	GetAllTransactions() []model.Transaction
	GetTransactionByID(id uuid.UUID) (*model.Transaction, error)
}

// Broadcaster pushes state changes to connected clients.
type Broadcaster interface {
	Publish(evt ws.Event)
}

type ProductInput struct {
	Name           string         `json:"name"`
	Category       model.Category `json:"category"`
	Quantity       int            `json:"quantity"`
	MinStock       int            `json:"min_stock"`
	Unit           string         `json:"unit"`
	ExpirationDate *time.Time     `json:"expiration_date"`
}

type ProductFilter struct {
	Query        string
	Category     model.Category
	LowStockOnly bool
}

type Option func(*inventoryService)

// WithFallbackUser sets the name recorded for anonymous sessions.
func WithFallbackUser(name string) Option {
	return func(s *inventoryService) { s.fallbackUser = name }
}

func WithClock(now func() time.Time) Option {
	return func(s *inventoryService) { s.now = now }
}

type inventoryService struct {
	backend      repository.Backend
	store        *state.Store
	hub          Broadcaster
	logger       *zap.Logger
	fallbackUser string
	now          func() time.Time

	// opMu serialises mutations so a movement is checked against the
	// quantity it will overwrite.
	opMu sync.Mutex
}

func NewInventoryService(backend repository.Backend, hub Broadcaster, logger *zap.Logger, opts ...Option) InventoryService {
	s := &inventoryService{
		backend:      backend,
		store:        state.NewStore(),
		hub:          hub,
		logger:       logger.Named("inventory"),
		fallbackUser: model.DefaultFallbackUser,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *inventoryService) Start(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}
	err := s.backend.Subscribe(ctx, func(cs model.ChangeSet) { s.applyRemote(ctx, cs) })
	if err != nil {
		return &PersistenceError{Op: "subscribe", Err: err}
	}
	s.logger.Info("inventory state loaded",
		zap.String("backend", s.backend.Name()),
		zap.Int("products", len(s.store.Products())),
		zap.Int("transactions", len(s.store.Transactions())),
	)
	return nil
}

func (s *inventoryService) Load(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.load(ctx)
}

func (s *inventoryService) load(ctx context.Context) error {
	products, err := s.backend.Products().FindAll(ctx)
	if err != nil {
		return &PersistenceError{Op: "load products", Err: err}
	}
	transactions, err := s.backend.Transactions().FindAll(ctx)
	if err != nil {
		return &PersistenceError{Op: "load transactions", Err: err}
	}
	s.store.Reset(products, transactions)
	return nil
}

func (s *inventoryService) AddProduct(ctx context.Context, session model.Session, input ProductInput) (*model.Product, error) {
	product := model.Product{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(input.Name),
		Category:       input.Category,
		Quantity:       input.Quantity,
		MinStock:       input.MinStock,
		Unit:           strings.TrimSpace(input.Unit),
		ExpirationDate: normalizeDate(input.ExpirationDate),
	}
	if err := validationFailure(validator.ValidateStruct(&product)); err != nil {
		return nil, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	product.UpdatedAt = s.stamp(time.Time{})
	if err := s.backend.Products().Create(ctx, &product); err != nil {
		return nil, &PersistenceError{Op: "add product", Err: err}
	}
	s.store.Apply(model.ChangeSet{Products: []model.Change[model.Product]{model.Inserted(product)}})

	user := session.DisplayName(s.fallbackUser)
	s.publish(productEvent("product_created", product, user, fmt.Sprintf("%s created product '%s'", user, product.Name)))
	return &product, nil
}

func (s *inventoryService) UpdateProduct(ctx context.Context, session model.Session, id uuid.UUID, patch model.ProductPatch) (*model.Product, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current, ok := s.store.Product(id)
	if !ok {
		return nil, &NotFoundError{Entity: "product", ID: id}
	}

	updated := patch.Apply(current)
	updated.ID = current.ID
	updated.Name = strings.TrimSpace(updated.Name)
	updated.Unit = strings.TrimSpace(updated.Unit)
	updated.ExpirationDate = normalizeDate(updated.ExpirationDate)
	if err := validationFailure(validator.ValidateStruct(&updated)); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.stamp(current.UpdatedAt)

	if err := s.backend.Products().Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.store.RemoveProduct(id)
			return nil, &NotFoundError{Entity: "product", ID: id}
		}
		return nil, &PersistenceError{Op: "update product", Err: err}
	}
	s.store.Apply(model.ChangeSet{Products: []model.Change[model.Product]{model.Updated(updated)}})

	user := session.DisplayName(s.fallbackUser)
	s.publish(productEvent("product_updated", updated, user, fmt.Sprintf("%s updated product '%s'", user, updated.Name)))
	return &updated, nil
}

// DeleteProduct removes the product and, in cascade, its ledger rows. The
// snapshot is updated before the backend confirms; a failed write reloads it.
func (s *inventoryService) DeleteProduct(ctx context.Context, session model.Session, id uuid.UUID) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	product, ok := s.store.Product(id)
	if !ok {
		return &NotFoundError{Entity: "product", ID: id}
	}
	s.store.RemoveProduct(id)

	err := s.backend.Transactions().DeleteByProduct(ctx, id)
	if err == nil {
		err = s.backend.Products().Delete(ctx, id)
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("delete product failed, reloading state", zap.String("product_id", id.String()), zap.Error(err))
		if rerr := s.load(context.WithoutCancel(ctx)); rerr != nil {
			s.logger.Error("reload after failed delete", zap.Error(rerr))
		}
		return &PersistenceError{Op: "delete product", Err: err}
	}

	user := session.DisplayName(s.fallbackUser)
	s.publish(ws.Event{
		Type:      eventType,
		Action:    "product_deleted",
		ProductID: id.String(),
		User:      user,
		Message:   fmt.Sprintf("%s deleted product '%s'", user, product.Name),
	})
	return nil
}

// RecordMovement is the only path that adjusts stock by a delta.
func (s *inventoryService) RecordMovement(ctx context.Context, session model.Session, movement model.Movement) (*model.Transaction, error) {
	movement.Notes = strings.TrimSpace(movement.Notes)
	if err := validationFailure(validator.ValidateStruct(&movement)); err != nil {
		return nil, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	product, ok := s.store.Product(movement.ProductID)
	if !ok {
		return nil, &NotFoundError{Entity: "product", ID: movement.ProductID}
	}

	if movement.Type.Overflows(product.Quantity, movement.Quantity) {
		return nil, &ValidationError{Field: "quantity", Reason: "is too large"}
	}
	newStock := product.Quantity + movement.Type.Delta(movement.Quantity)
	if newStock < 0 {
		return nil, &InsufficientStockError{ProductID: product.ID, Available: product.Quantity, Requested: movement.Quantity}
	}

	now := s.stamp(time.Time{})
	txn := model.Transaction{
		ID:        uuid.New(),
		ProductID: product.ID,
		Type:      movement.Type,
		Quantity:  movement.Quantity,
		Date:      now,
		Notes:     movement.Notes,
		User:      session.DisplayName(s.fallbackUser),
	}
	updatedAt := s.stamp(product.UpdatedAt)

	var updated model.Product
	if applier, ok := s.backend.(repository.MovementApplier); ok {
		stored, err := applier.ApplyMovement(ctx, &txn, updatedAt)
		if err != nil {
			return nil, s.movementFailure(product, movement, err)
		}
		updated = *stored
	} else {
		updated = product
		updated.Quantity = newStock
		updated.UpdatedAt = updatedAt

		if err := s.backend.Products().Update(ctx, &updated); err != nil {
			return nil, s.movementFailure(product, movement, err)
		}
		s.store.Apply(model.ChangeSet{Products: []model.Change[model.Product]{model.Updated(updated)}})

		if err := s.backend.Transactions().Create(ctx, &txn); err != nil {
			s.logger.Error("stock adjusted but ledger entry was not written",
				zap.String("product_id", product.ID.String()),
				zap.String("type", string(txn.Type)),
				zap.Int("quantity", txn.Quantity),
				zap.Int("new_stock", updated.Quantity),
				zap.Error(err),
			)
			s.publish(productEvent("product_updated", updated, txn.User,
				fmt.Sprintf("%s changed stock of '%s' without a ledger entry", txn.User, updated.Name)))
			return nil, &PersistenceError{Op: "record movement", Err: err, Partial: true}
		}
	}

	s.store.Apply(model.ChangeSet{
		Products:     []model.Change[model.Product]{model.Updated(updated)},
		Transactions: []model.Change[model.Transaction]{model.Inserted(txn)},
	})

	s.publish(movementEvent(txn, updated))
	return &txn, nil
}

func (s *inventoryService) movementFailure(product model.Product, movement model.Movement, err error) error {
	var stockErr *repository.StockError
	switch {
	case errors.As(err, &stockErr):
		// Someone else moved stock first; the snapshot catches up via the feed.
		return &InsufficientStockError{ProductID: product.ID, Available: stockErr.Available, Requested: movement.Quantity}
	case errors.Is(err, repository.ErrStockOverflow):
		return &ValidationError{Field: "quantity", Reason: "is too large"}
	case errors.Is(err, repository.ErrNotFound):
		s.store.RemoveProduct(product.ID)
		return &NotFoundError{Entity: "product", ID: product.ID}
	default:
		return &PersistenceError{Op: "record movement", Err: err}
	}
}

// ClearAll wipes the ledger and then the catalog. It cannot be undone.
func (s *inventoryService) ClearAll(ctx context.Context, session model.Session) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.backend.Transactions().DeleteAll(ctx); err != nil {
		return &PersistenceError{Op: "clear transactions", Err: err}
	}
	if err := s.backend.Products().DeleteAll(ctx); err != nil {
		if rerr := s.load(context.WithoutCancel(ctx)); rerr != nil {
			s.logger.Error("reload after failed clear", zap.Error(rerr))
		}
		return &PersistenceError{Op: "clear products", Err: err, Partial: true}
	}
	s.store.Clear()

	user := session.DisplayName(s.fallbackUser)
	s.logger.Warn("all inventory data cleared", zap.String("user", user))
	s.publish(ws.Event{Type: eventType, Action: "data_cleared", User: user, Message: user + " cleared all data"})
	return nil
}

func (s *inventoryService) GetAllProducts() []model.Product {
	return s.store.Products()
}

func (s *inventoryService) GetProduct(id uuid.UUID) (*model.Product, error) {
	p, ok := s.store.Product(id)
	if !ok {
		return nil, &NotFoundError{Entity: "product", ID: id}
	}
	return &p, nil
}

// SearchProducts matches the query against name or category, case-insensitively.
func (s *inventoryService) SearchProducts(filter ProductFilter) []model.Product {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	result := []model.Product{}
	for _, p := range s.store.Products() {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.LowStockOnly && !p.IsLowStock() {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(string(p.Category)), query) {
			continue
		}
		result = append(result, p)
	}
	return result
}

func (s *inventoryService) GetAllTransactions() []model.Transaction {
	return s.store.Transactions()
}

func (s *inventoryService) GetTransactionByID(id uuid.UUID) (*model.Transaction, error) {
	t, ok := s.store.Transaction(id)
	if !ok {
		return nil, &NotFoundError{Entity: "transaction", ID: id}
	}
	return &t, nil
}

// applyRemote folds pushed changes into the snapshot. It waits for any
// local mutation to finish, so echoes of our own writes are absorbed by the
// reducer and not rebroadcast.
func (s *inventoryService) applyRemote(ctx context.Context, cs model.ChangeSet) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if cs.Resync {
		if err := s.load(ctx); err != nil {
			s.logger.Error("reload after change feed gap", zap.Error(err))
			return
		}
		s.logger.Info("inventory state reloaded after change feed gap")
		s.publish(ws.Event{Type: eventType, Action: "state_reloaded"})
		return
	}

	applied := s.store.Apply(cs)
	for _, ch := range applied.Products {
		s.publish(syncEvent("product", string(ch.Kind), ch.ID, ch.Entity))
	}
	for _, ch := range applied.Transactions {
		s.publish(syncEvent("transaction", string(ch.Kind), ch.ID, ch.Entity))
	}
}

// stamp returns the current time at storage precision, strictly after prev.
func (s *inventoryService) stamp(prev time.Time) time.Time {
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t
}

func (s *inventoryService) publish(evt ws.Event) {
	if s.hub != nil {
		s.hub.Publish(evt)
	}
}

// normalizeDate keeps the calendar day as written, at UTC midnight.
func normalizeDate(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}
