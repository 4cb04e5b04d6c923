package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go-stock-resi/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

var frozen = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type InventoryServiceSuite struct {
	suite.Suite
	ctx     context.Context
	backend *fakeBackend
	hub     *recordingHub
	svc     InventoryService
	ana     model.Session
}

func (s *InventoryServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = newFakeBackend()
	s.hub = &recordingHub{}
	s.ana = model.Session{UserName: "Ana"}
	s.svc = NewInventoryService(s.backend, s.hub, zap.NewNop(), WithClock(func() time.Time { return frozen }))
	s.Require().NoError(s.svc.Load(s.ctx))
}

func (s *InventoryServiceSuite) addMilk() *model.Product {
	p, err := s.svc.AddProduct(s.ctx, s.ana, ProductInput{
		Name: "Milk", Category: model.CategoryFood, Quantity: 2, MinStock: 3, Unit: "L",
	})
	s.Require().NoError(err)
	return p
}

func (s *InventoryServiceSuite) move(id uuid.UUID, typ model.TransactionType, qty int) (*model.Transaction, error) {
	return s.svc.RecordMovement(s.ctx, s.ana, model.Movement{ProductID: id, Type: typ, Quantity: qty})
}

func (s *InventoryServiceSuite) quantity(id uuid.UUID) int {
	p, err := s.svc.GetProduct(id)
	s.Require().NoError(err)
	return p.Quantity
}

func (s *InventoryServiceSuite) TestMilkScenario() {
	milk := s.addMilk()
	s.True(milk.IsLowStock())

	txn, err := s.move(milk.ID, model.TxIn, 5)
	s.Require().NoError(err)
	s.Equal("Ana", txn.User)
	s.Equal(7, s.quantity(milk.ID))

	_, err = s.move(milk.ID, model.TxOut, 10)
	var stockErr *InsufficientStockError
	s.Require().ErrorAs(err, &stockErr)
	s.Equal(7, stockErr.Available)
	s.Equal(10, stockErr.Requested)
	s.Equal(7, s.quantity(milk.ID))

	ledger := s.svc.GetAllTransactions()
	s.Require().Len(ledger, 1)
	s.Equal(model.TxIn, ledger[0].Type)
	s.Equal(5, ledger[0].Quantity)
	s.Equal(1, s.backend.ledgerLen())

	stored, _ := s.backend.storedProduct(milk.ID)
	s.Equal(7, stored.Quantity)
}

func (s *InventoryServiceSuite) TestInAndOutRoundTrip() {
	milk := s.addMilk()

	_, err := s.move(milk.ID, model.TxIn, 4)
	s.Require().NoError(err)
	_, err = s.move(milk.ID, model.TxOut, 4)
	s.Require().NoError(err)

	s.Equal(2, s.quantity(milk.ID))
	ledger := s.svc.GetAllTransactions()
	s.Require().Len(ledger, 2)
	s.Equal(model.TxOut, ledger[0].Type, "most recent first")
	s.Equal(model.TxIn, ledger[1].Type)
}

func (s *InventoryServiceSuite) TestOutDownToZeroIsAllowed() {
	milk := s.addMilk()
	_, err := s.move(milk.ID, model.TxOut, 2)
	s.Require().NoError(err)

	p, _ := s.svc.GetProduct(milk.ID)
	s.True(p.IsOutOfStock())
}

func (s *InventoryServiceSuite) TestMovementValidation() {
	milk := s.addMilk()
	cases := map[string]model.Movement{
		"zero quantity":  {ProductID: milk.ID, Type: model.TxIn, Quantity: 0},
		"negative":       {ProductID: milk.ID, Type: model.TxOut, Quantity: -1},
		"unknown type":   {ProductID: milk.ID, Type: "MOVE", Quantity: 1},
		"missing target": {Type: model.TxIn, Quantity: 1},
	}
	for name, m := range cases {
		_, err := s.svc.RecordMovement(s.ctx, s.ana, m)
		var vErr *ValidationError
		s.ErrorAs(err, &vErr, name)
	}
	s.Empty(s.svc.GetAllTransactions())
}

func (s *InventoryServiceSuite) TestInboundOverflowIsValidationError() {
	milk := s.addMilk()

	_, err := s.move(milk.ID, model.TxIn, math.MaxInt)
	var vErr *ValidationError
	s.Require().ErrorAs(err, &vErr)
	s.Equal("quantity", vErr.Field)
	s.Equal(2, s.quantity(milk.ID))
	s.Empty(s.svc.GetAllTransactions())
}

func (s *InventoryServiceSuite) TestMovementOnUnknownProduct() {
	_, err := s.move(uuid.New(), model.TxIn, 1)
	var nf *NotFoundError
	s.ErrorAs(err, &nf)
}

func (s *InventoryServiceSuite) TestAddProductValidation() {
	cases := map[string]ProductInput{
		"blank name":       {Name: "  ", Category: model.CategoryFood},
		"unknown category": {Name: "Soap", Category: "Toys"},
		"negative qty":     {Name: "Soap", Category: model.CategoryHygiene, Quantity: -1},
		"negative min":     {Name: "Soap", Category: model.CategoryHygiene, MinStock: -2},
	}
	for name, in := range cases {
		_, err := s.svc.AddProduct(s.ctx, s.ana, in)
		var vErr *ValidationError
		s.ErrorAs(err, &vErr, name)
	}
	s.Empty(s.svc.GetAllProducts())
}

func (s *InventoryServiceSuite) TestUpdateStampIsStrictlyLater() {
	milk := s.addMilk()
	qty := 9

	updated, err := s.svc.UpdateProduct(s.ctx, s.ana, milk.ID, model.ProductPatch{Quantity: &qty})
	s.Require().NoError(err)
	s.True(updated.UpdatedAt.After(milk.UpdatedAt))
	s.Equal(9, updated.Quantity)
	s.Equal("Milk", updated.Name)
	s.Equal(9, s.quantity(milk.ID))
}

func (s *InventoryServiceSuite) TestUpdateRejectsNegativeQuantity() {
	milk := s.addMilk()
	qty := -1
	_, err := s.svc.UpdateProduct(s.ctx, s.ana, milk.ID, model.ProductPatch{Quantity: &qty})
	var vErr *ValidationError
	s.Require().ErrorAs(err, &vErr)
	s.Equal("quantity", vErr.Field)
	s.Equal(2, s.quantity(milk.ID))
}

func (s *InventoryServiceSuite) TestUpdateClearsExpiry() {
	exp := time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC)
	p, err := s.svc.AddProduct(s.ctx, s.ana, ProductInput{
		Name: "Aspirin", Category: model.CategoryPharmacy, Quantity: 10, ExpirationDate: &exp,
	})
	s.Require().NoError(err)
	s.Require().NotNil(p.ExpirationDate)
	s.Equal(0, p.ExpirationDate.Hour())

	updated, err := s.svc.UpdateProduct(s.ctx, s.ana, p.ID, model.ProductPatch{ClearExpiry: true})
	s.Require().NoError(err)
	s.Nil(updated.ExpirationDate)
}

func (s *InventoryServiceSuite) TestExpiryKeepsCalendarDayOfOffset() {
	exp := time.Date(2026, 5, 1, 0, 0, 0, 0, time.FixedZone("WIB", 7*60*60))
	p, err := s.svc.AddProduct(s.ctx, s.ana, ProductInput{
		Name: "Yogurt", Category: model.CategoryFood, Quantity: 1, ExpirationDate: &exp,
	})
	s.Require().NoError(err)
	s.Require().NotNil(p.ExpirationDate)
	s.Equal("2026-05-01", p.ExpirationDate.Format(time.DateOnly))
	s.Equal(time.UTC, p.ExpirationDate.Location())

	late := time.Date(2026, 6, 30, 22, 0, 0, 0, time.FixedZone("", -5*60*60))
	updated, err := s.svc.UpdateProduct(s.ctx, s.ana, p.ID, model.ProductPatch{ExpirationDate: &late})
	s.Require().NoError(err)
	s.Equal("2026-06-30", updated.ExpirationDate.Format(time.DateOnly))
}

func (s *InventoryServiceSuite) TestDeleteCascades() {
	milk := s.addMilk()
	soap, err := s.svc.AddProduct(s.ctx, s.ana, ProductInput{Name: "Soap", Category: model.CategoryHygiene, Quantity: 1})
	s.Require().NoError(err)
	_, err = s.move(milk.ID, model.TxIn, 1)
	s.Require().NoError(err)
	_, err = s.move(soap.ID, model.TxIn, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.DeleteProduct(s.ctx, s.ana, milk.ID))

	s.Len(s.svc.GetAllProducts(), 1)
	ledger := s.svc.GetAllTransactions()
	s.Require().Len(ledger, 1)
	s.Equal(soap.ID, ledger[0].ProductID)
	s.Equal(1, s.backend.ledgerLen())

	var nf *NotFoundError
	s.ErrorAs(s.svc.DeleteProduct(s.ctx, s.ana, milk.ID), &nf)
}

func (s *InventoryServiceSuite) TestDeleteFailureRestoresSnapshot() {
	milk := s.addMilk()
	_, err := s.move(milk.ID, model.TxIn, 1)
	s.Require().NoError(err)
	s.backend.failWith("transactions.deleteByProduct", errStoreDown)

	err = s.svc.DeleteProduct(s.ctx, s.ana, milk.ID)
	var pErr *PersistenceError
	s.Require().ErrorAs(err, &pErr)
	s.ErrorIs(err, errStoreDown)

	s.Len(s.svc.GetAllProducts(), 1)
	s.Len(s.svc.GetAllTransactions(), 1)
}

func (s *InventoryServiceSuite) TestPartialMovementIsReported() {
	milk := s.addMilk()
	s.backend.failWith("transactions.create", errStoreDown)

	_, err := s.move(milk.ID, model.TxIn, 3)
	var pErr *PersistenceError
	s.Require().ErrorAs(err, &pErr)
	s.True(pErr.Partial)

	stored, _ := s.backend.storedProduct(milk.ID)
	s.Equal(5, stored.Quantity)
	s.Equal(5, s.quantity(milk.ID), "snapshot follows what was committed")
	s.Empty(s.svc.GetAllTransactions())
}

func (s *InventoryServiceSuite) TestFailedProductWriteChangesNothing() {
	milk := s.addMilk()
	s.backend.failWith("products.update", errStoreDown)

	_, err := s.move(milk.ID, model.TxIn, 3)
	var pErr *PersistenceError
	s.Require().ErrorAs(err, &pErr)
	s.False(pErr.Partial)
	s.Equal(2, s.quantity(milk.ID))
	s.Zero(s.backend.ledgerLen())
}

func (s *InventoryServiceSuite) TestClearAll() {
	milk := s.addMilk()
	_, err := s.move(milk.ID, model.TxIn, 1)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.ClearAll(s.ctx, s.ana))

	s.Equal([]model.Product{}, s.svc.GetAllProducts())
	s.Equal([]model.Transaction{}, s.svc.GetAllTransactions())
	s.Zero(s.backend.ledgerLen())
	s.Contains(s.hub.actions(), "data_cleared")
}

func (s *InventoryServiceSuite) TestAnonymousSessionUsesFallback() {
	milk := s.addMilk()
	txn, err := s.svc.RecordMovement(s.ctx, model.Session{}, model.Movement{ProductID: milk.ID, Type: model.TxIn, Quantity: 1})
	s.Require().NoError(err)
	s.Equal(model.DefaultFallbackUser, txn.User)

	svc := NewInventoryService(s.backend, nil, zap.NewNop(), WithFallbackUser("Household"))
	s.Require().NoError(svc.Load(s.ctx))
	txn, err = svc.RecordMovement(s.ctx, model.Session{UserName: "  "}, model.Movement{ProductID: milk.ID, Type: model.TxIn, Quantity: 1})
	s.Require().NoError(err)
	s.Equal("Household", txn.User)
}

func (s *InventoryServiceSuite) TestSearchProducts() {
	s.addMilk()
	_, err := s.svc.AddProduct(s.ctx, s.ana, ProductInput{Name: "Bleach", Category: model.CategoryCleaning, Quantity: 8, MinStock: 1})
	s.Require().NoError(err)

	s.Len(s.svc.SearchProducts(ProductFilter{Query: "MIL"}), 1)
	s.Len(s.svc.SearchProducts(ProductFilter{Query: "clean"}), 1)
	s.Len(s.svc.SearchProducts(ProductFilter{Category: model.CategoryFood}), 1)
	low := s.svc.SearchProducts(ProductFilter{LowStockOnly: true})
	s.Require().Len(low, 1)
	s.Equal("Milk", low[0].Name)
	s.Len(s.svc.SearchProducts(ProductFilter{}), 2)
	s.Empty(s.svc.SearchProducts(ProductFilter{Query: "rice"}))
}

func (s *InventoryServiceSuite) TestRemoteChangesAreApplied() {
	s.Require().NoError(s.svc.Start(s.ctx))
	milk := s.addMilk()

	remote := model.Product{ID: uuid.New(), Name: "Rice", Category: model.CategoryFood, Quantity: 4, UpdatedAt: frozen}
	newer := *milk
	newer.Quantity = 11
	newer.UpdatedAt = milk.UpdatedAt.Add(time.Second)

	s.backend.push(model.ChangeSet{Products: []model.Change[model.Product]{
		model.Inserted(remote),
		model.Updated(newer),
		model.Inserted(*milk),
	}})

	s.Len(s.svc.GetAllProducts(), 2)
	s.Equal(11, s.quantity(milk.ID))
	s.Equal([]string{"product_created", "product_inserted", "product_updated"}, s.hub.actions())

	s.backend.push(model.ChangeSet{Products: []model.Change[model.Product]{model.Deleted[model.Product](remote.ID)}})
	_, err := s.svc.GetProduct(remote.ID)
	var nf *NotFoundError
	s.ErrorAs(err, &nf)
}

func (s *InventoryServiceSuite) TestResyncReloadsFromBackend() {
	s.Require().NoError(s.svc.Start(s.ctx))
	milk := s.addMilk()

	// Written elsewhere while the feed was down.
	s.backend.mu.Lock()
	s.backend.products[0].Quantity = 9
	s.backend.products = append(s.backend.products, model.Product{ID: uuid.New(), Name: "Rice", Category: model.CategoryFood, Quantity: 4})
	s.backend.mu.Unlock()

	s.backend.push(model.ChangeSet{Resync: true})

	s.Equal(9, s.quantity(milk.ID))
	s.Len(s.svc.GetAllProducts(), 2)
	s.Equal([]string{"product_created", "state_reloaded"}, s.hub.actions())
}

func (s *InventoryServiceSuite) TestStartFailsWhenSubscribeFails() {
	s.backend.failWith("subscribe", errStoreDown)
	err := s.svc.Start(s.ctx)
	var pErr *PersistenceError
	s.ErrorAs(err, &pErr)
}

func TestInventoryService(t *testing.T) {
	suite.Run(t, new(InventoryServiceSuite))
}

func TestAtomicBackendCommitsMovementOnce(t *testing.T) {
	ctx := context.Background()
	backend := &atomicBackend{fakeBackend: newFakeBackend()}
	svc := NewInventoryService(backend, nil, zap.NewNop())
	require.NoError(t, svc.Load(ctx))

	milk, err := svc.AddProduct(ctx, model.Session{}, ProductInput{Name: "Milk", Category: model.CategoryFood, Quantity: 2})
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, model.Session{}, model.Movement{ProductID: milk.ID, Type: model.TxIn, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.applied)

	p, err := svc.GetProduct(milk.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Quantity)
	assert.Len(t, svc.GetAllTransactions(), 1)
}

func TestAtomicBackendRefusalIsInsufficientStock(t *testing.T) {
	ctx := context.Background()
	backend := &atomicBackend{fakeBackend: newFakeBackend()}
	svc := NewInventoryService(backend, nil, zap.NewNop())
	require.NoError(t, svc.Load(ctx))

	milk, err := svc.AddProduct(ctx, model.Session{}, ProductInput{Name: "Milk", Category: model.CategoryFood, Quantity: 5})
	require.NoError(t, err)

	// Another device drained the stock behind our snapshot.
	backend.mu.Lock()
	backend.products[0].Quantity = 1
	backend.mu.Unlock()

	_, err = svc.RecordMovement(ctx, model.Session{}, model.Movement{ProductID: milk.ID, Type: model.TxOut, Quantity: 3})
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 1, stockErr.Available)
	assert.Zero(t, backend.ledgerLen())
}

func TestEarlyEchoOfMovementIsNotRebroadcast(t *testing.T) {
	ctx := context.Background()
	backend := &atomicBackend{fakeBackend: newFakeBackend()}
	hub := &recordingHub{}
	svc := NewInventoryService(backend, hub, zap.NewNop())
	require.NoError(t, svc.Start(ctx))

	milk, err := svc.AddProduct(ctx, model.Session{}, ProductInput{Name: "Milk", Category: model.CategoryFood, Quantity: 2})
	require.NoError(t, err)

	backend.echo = true
	_, err = svc.RecordMovement(ctx, model.Session{}, model.Movement{ProductID: milk.ID, Type: model.TxIn, Quantity: 5})
	require.NoError(t, err)
	<-backend.echoed

	assert.Equal(t, []string{"product_created", "movement_recorded"}, hub.actions())
	p, err := svc.GetProduct(milk.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Quantity)
	assert.Len(t, svc.GetAllTransactions(), 1)
}

func TestAtomicBackendOverflowIsValidationError(t *testing.T) {
	ctx := context.Background()
	backend := &atomicBackend{fakeBackend: newFakeBackend()}
	svc := NewInventoryService(backend, nil, zap.NewNop())
	require.NoError(t, svc.Load(ctx))

	milk, err := svc.AddProduct(ctx, model.Session{}, ProductInput{Name: "Milk", Category: model.CategoryFood, Quantity: 1})
	require.NoError(t, err)

	// Stock grew on another device behind our snapshot.
	backend.mu.Lock()
	backend.products[0].Quantity = math.MaxInt - 1
	backend.mu.Unlock()

	_, err = svc.RecordMovement(ctx, model.Session{}, model.Movement{ProductID: milk.ID, Type: model.TxIn, Quantity: 5})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "quantity", vErr.Field)
	assert.Zero(t, backend.ledgerLen())
}
