package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soukhq/souk-backend/internal/audit"
	"github.com/soukhq/souk-backend/internal/inventory"
	"github.com/soukhq/souk-backend/pkg/db/models"
	"github.com/soukhq/souk-backend/pkg/enums"
	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
	"github.com/soukhq/souk-backend/pkg/logger"
	"github.com/soukhq/souk-backend/pkg/outbox"
	"github.com/soukhq/souk-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  is_listed INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'uncompleted',
  total_amount NUMERIC NOT NULL,
  address TEXT,
  payment_method TEXT NOT NULL,
  fulfilled_at DATETIME,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
		`CREATE TABLE IF NOT EXISTS audit_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_name TEXT NOT NULL,
  actor_id TEXT NOT NULL,
  actor_role TEXT NOT NULL,
  description TEXT,
  ip_address TEXT,
  metadata TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		for _, table := range []string{
			"audit_events", "outbox_events", "order_items", "orders",
			"product_variants", "products",
		} {
			db.Exec("DELETE FROM " + table)
		}
	})
	return db
}

func newOrdersService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	return newOrdersServiceWithRepo(t, db, NewRepository(db))
}

func newOrdersServiceWithRepo(t *testing.T, db *gorm.DB, repo Repository) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})

	inv, err := inventory.NewService(logg)
	require.NoError(t, err)
	auditor, err := audit.NewService(audit.NewRepository(db), logg)
	require.NoError(t, err)
	ob := outbox.NewService(outbox.NewRepository(db), logg)

	svc, err := NewService(
		repo,
		inv,
		ob,
		auditor,
		gormTxRunner{db: db},
		nil,
		logg,
	)
	require.NoError(t, err)
	return svc
}

// staleOrderRepo serves reads from a fixed snapshot while delegating writes,
// standing in for a read that landed before a concurrent transaction committed.
type staleOrderRepo struct {
	Repository
	snapshot models.Order
}

func (r *staleOrderRepo) WithTx(tx *gorm.DB) Repository {
	return &staleOrderRepo{Repository: r.Repository.WithTx(tx), snapshot: r.snapshot}
}

func (r *staleOrderRepo) FindOrderWithItems(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order := r.snapshot
	return &order, nil
}

func seedVariant(t *testing.T, db *gorm.DB, productID uuid.UUID, stock int) uuid.UUID {
	t.Helper()
	variantID := uuid.New()
	require.NoError(t, db.Exec(
		"INSERT INTO product_variants (id, product_id, name, price_cents, stock) VALUES (?, ?, ?, ?, ?)",
		variantID.String(), productID.String(), "Matte Black", 1000, stock,
	).Error)
	return variantID
}

type seededItem struct {
	variantID uuid.UUID
	quantity  int
}

func seedOrder(t *testing.T, db *gorm.DB, buyerID, sellerID uuid.UUID, status enums.OrderStatus, items ...seededItem) uuid.UUID {
	t.Helper()
	orderID := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO orders (id, buyer_id, seller_id, status, total_amount, payment_method, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		orderID.String(), buyerID.String(), sellerID.String(), string(status), "10.00", "card",
	).Error)
	for _, item := range items {
		require.NoError(t, db.Exec(
			"INSERT INTO order_items (id, order_id, variant_id, quantity, unit_price) VALUES (?, ?, ?, ?, ?)",
			uuid.New().String(), orderID.String(), item.variantID.String(), item.quantity, "10.00",
		).Error)
	}
	return orderID
}

func orderStatus(t *testing.T, db *gorm.DB, orderID uuid.UUID) string {
	t.Helper()
	var status string
	require.NoError(t, db.Raw(
		"SELECT status FROM orders WHERE id = ?", orderID.String(),
	).Scan(&status).Error)
	return status
}

func stockOf(t *testing.T, db *gorm.DB, variantID uuid.UUID) int {
	t.Helper()
	var stock int
	require.NoError(t, db.Raw(
		"SELECT stock FROM product_variants WHERE id = ?", variantID.String(),
	).Scan(&stock).Error)
	return stock
}

func TestMarkFulfilledCompletesOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	sellerID := uuid.New()
	orderID := seedOrder(t, db, uuid.New(), sellerID, enums.OrderStatusUncompleted)

	order, err := svc.MarkFulfilled(context.Background(), MarkFulfilledInput{
		SellerID: sellerID,
		OrderID:  orderID,
		Action:   ActionShip,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	require.NotNil(t, order.FulfilledAt)
	assert.Equal(t, "completed", orderStatus(t, db, orderID))

	var eventType string
	require.NoError(t, db.Raw("SELECT event_type FROM outbox_events").Scan(&eventType).Error)
	assert.Equal(t, "order_completed", eventType)

	var auditName string
	require.NoError(t, db.Raw("SELECT event_name FROM audit_events").Scan(&auditName).Error)
	assert.Equal(t, "ORDER_SHIPPED", auditName)
}

func TestMarkFulfilledRejectsTerminalStates(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	sellerID := uuid.New()

	for _, status := range []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusCanceled} {
		for _, action := range []Action{ActionShip, ActionComplete} {
			orderID := seedOrder(t, db, uuid.New(), sellerID, status)
			_, err := svc.MarkFulfilled(context.Background(), MarkFulfilledInput{
				SellerID: sellerID,
				OrderID:  orderID,
				Action:   action,
			})
			require.Error(t, err, "status %s action %s", status, action)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
			assert.Equal(t, string(status), orderStatus(t, db, orderID))
		}
	}
}

func TestMarkFulfilledForeignSellerLooksMissing(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	orderID := seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusUncompleted)

	_, err := svc.MarkFulfilled(context.Background(), MarkFulfilledInput{
		SellerID: uuid.New(),
		OrderID:  orderID,
		Action:   ActionComplete,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	assert.Equal(t, "uncompleted", orderStatus(t, db, orderID))
}

func TestCancelRestoresStockExactlyOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	buyerID := uuid.New()
	productID := uuid.New()
	v1 := seedVariant(t, db, productID, 3)
	v2 := seedVariant(t, db, productID, 0)
	orderID := seedOrder(t, db, buyerID, uuid.New(), enums.OrderStatusUncompleted,
		seededItem{variantID: v1, quantity: 2},
		seededItem{variantID: v2, quantity: 5},
	)

	order, err := svc.Cancel(context.Background(), CancelInput{BuyerID: buyerID, OrderID: orderID})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, order.Status)
	require.NotNil(t, order.CanceledAt)

	assert.Equal(t, 5, stockOf(t, db, v1))
	assert.Equal(t, 5, stockOf(t, db, v2))

	var eventType string
	require.NoError(t, db.Raw("SELECT event_type FROM outbox_events").Scan(&eventType).Error)
	assert.Equal(t, "order_canceled", eventType)

	// A second cancel is rejected and restores nothing.
	_, err = svc.Cancel(context.Background(), CancelInput{BuyerID: buyerID, OrderID: orderID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Equal(t, 5, stockOf(t, db, v1))
	assert.Equal(t, 5, stockOf(t, db, v2))
}

func TestCancelForeignBuyerLooksMissing(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	v := seedVariant(t, db, uuid.New(), 1)
	orderID := seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusUncompleted,
		seededItem{variantID: v, quantity: 2},
	)

	_, err := svc.Cancel(context.Background(), CancelInput{BuyerID: uuid.New(), OrderID: orderID})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	assert.Equal(t, 1, stockOf(t, db, v))
	assert.Equal(t, "uncompleted", orderStatus(t, db, orderID))
}

func TestAdminSetStatusBypassesGuardsWithoutStock(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	v := seedVariant(t, db, uuid.New(), 7)
	orderID := seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusCanceled,
		seededItem{variantID: v, quantity: 3},
	)

	order, err := svc.AdminSetStatus(context.Background(), AdminSetStatusInput{
		AdminID: uuid.New(),
		OrderID: orderID,
		Status:  enums.OrderStatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	assert.Equal(t, "completed", orderStatus(t, db, orderID))

	// Overrides never touch the stock ledger.
	assert.Equal(t, 7, stockOf(t, db, v))

	var auditName string
	require.NoError(t, db.Raw("SELECT event_name FROM audit_events").Scan(&auditName).Error)
	assert.Equal(t, "ORDER_STATUS_OVERRIDDEN", auditName)
}

func TestListBuyerOrdersPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	buyerID := uuid.New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		orderID := uuid.New()
		require.NoError(t, db.Exec(
			`INSERT INTO orders (id, buyer_id, seller_id, status, total_amount, payment_method, created_at)
			 VALUES (?, ?, ?, 'uncompleted', '10.00', 'card', ?)`,
			orderID.String(), buyerID.String(), uuid.New().String(), base.Add(time.Duration(i)*time.Hour),
		).Error)
		ids = append(ids, orderID)
	}

	page, err := svc.ListBuyerOrders(context.Background(), buyerID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)

	// Newest first.
	assert.Equal(t, ids[2], page.Orders[0].ID)
	assert.Equal(t, ids[1], page.Orders[1].ID)

	rest, err := svc.ListBuyerOrders(context.Background(), buyerID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Equal(t, ids[0], rest.Orders[0].ID)
	assert.Empty(t, rest.NextCursor)
}

func TestListSellerOrdersIsolatesSellers(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	sellerID := uuid.New()
	seedOrder(t, db, uuid.New(), sellerID, enums.OrderStatusUncompleted)
	seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusUncompleted)

	page, err := svc.ListSellerOrders(context.Background(), sellerID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, sellerID, page.Orders[0].SellerID)
}

func TestBuyerHasCompletedProduct(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	buyerID := uuid.New()
	productID := uuid.New()
	v := seedVariant(t, db, productID, 10)

	// Uncompleted orders do not open the review gate.
	seedOrder(t, db, buyerID, uuid.New(), enums.OrderStatusUncompleted, seededItem{variantID: v, quantity: 1})

	ok, err := svc.BuyerHasCompletedProduct(context.Background(), buyerID, productID)
	require.NoError(t, err)
	assert.False(t, ok)

	seedOrder(t, db, buyerID, uuid.New(), enums.OrderStatusCompleted, seededItem{variantID: v, quantity: 1})

	ok, err = svc.BuyerHasCompletedProduct(context.Background(), buyerID, productID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Another buyer never inherits the gate.
	ok, err = svc.BuyerHasCompletedProduct(context.Background(), uuid.New(), productID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetBuyerOrderOwnership(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	buyerID := uuid.New()
	v := seedVariant(t, db, uuid.New(), 1)
	orderID := seedOrder(t, db, buyerID, uuid.New(), enums.OrderStatusUncompleted,
		seededItem{variantID: v, quantity: 1},
	)

	order, err := svc.GetBuyerOrder(context.Background(), buyerID, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, order.ID)
	assert.Len(t, order.Items, 1)

	_, err = svc.GetBuyerOrder(context.Background(), uuid.New(), orderID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCancelStaleReadDoesNotRestoreStockTwice(t *testing.T) {
	db := setupOrdersTestDB(t)

	buyerID := uuid.New()
	variantID := seedVariant(t, db, uuid.New(), 5)
	// The racing cancel already committed: order closed, stock restored.
	orderID := seedOrder(t, db, buyerID, uuid.New(), enums.OrderStatusCanceled,
		seededItem{variantID: variantID, quantity: 3})

	stale := &staleOrderRepo{
		Repository: NewRepository(db),
		snapshot: models.Order{
			ID:      orderID,
			BuyerID: buyerID,
			Status:  enums.OrderStatusUncompleted,
			Items:   []models.OrderItem{{OrderID: orderID, VariantID: variantID, Quantity: 3}},
		},
	}
	svc := newOrdersServiceWithRepo(t, db, stale)

	_, err := svc.Cancel(context.Background(), CancelInput{BuyerID: buyerID, OrderID: orderID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	assert.Equal(t, 5, stockOf(t, db, variantID))
	assert.Equal(t, "canceled", orderStatus(t, db, orderID))
}

func TestMarkFulfilledStaleReadCannotCompleteCanceledOrder(t *testing.T) {
	db := setupOrdersTestDB(t)

	sellerID := uuid.New()
	orderID := seedOrder(t, db, uuid.New(), sellerID, enums.OrderStatusCanceled)

	stale := &staleOrderRepo{
		Repository: NewRepository(db),
		snapshot: models.Order{
			ID:       orderID,
			SellerID: sellerID,
			Status:   enums.OrderStatusUncompleted,
		},
	}
	svc := newOrdersServiceWithRepo(t, db, stale)

	_, err := svc.MarkFulfilled(context.Background(), MarkFulfilledInput{
		SellerID: sellerID,
		OrderID:  orderID,
		Action:   ActionComplete,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	assert.Equal(t, "canceled", orderStatus(t, db, orderID))
}
