package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soukhq/souk-backend/internal/audit"
	"github.com/soukhq/souk-backend/internal/cart"
	"github.com/soukhq/souk-backend/internal/catalog"
	"github.com/soukhq/souk-backend/internal/inventory"
	"github.com/soukhq/souk-backend/pkg/db/models"
	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
	"github.com/soukhq/souk-backend/pkg/logger"
	"github.com/soukhq/souk-backend/pkg/outbox"
	"github.com/soukhq/souk-backend/pkg/types"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  is_selected INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, variant_id)
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
			"cart_items", "carts", "product_variants", "products",
		} {
			db.Exec("DELETE FROM " + table)
		}
	})
	return db
}

func newCheckoutService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})

	inv, err := inventory.NewService(logg)
	require.NoError(t, err)
	auditor, err := audit.NewService(audit.NewRepository(db), logg)
	require.NoError(t, err)
	ob := outbox.NewService(outbox.NewRepository(db), logg)

	svc, err := NewService(
		NewRepository(db),
		cart.NewRepository(db),
		catalog.NewRepository(db),
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

func seedListedVariant(t *testing.T, db *gorm.DB, sellerID uuid.UUID, priceCents, stock int, listed bool) uuid.UUID {
	t.Helper()
	productID := uuid.New()
	variantID := uuid.New()
	require.NoError(t, db.Exec(
		"INSERT INTO products (id, seller_id, name, is_listed) VALUES (?, ?, ?, ?)",
		productID.String(), sellerID.String(), "Walnut Desk Organizer", listed,
	).Error)
	require.NoError(t, db.Exec(
		"INSERT INTO product_variants (id, product_id, name, price_cents, stock) VALUES (?, ?, ?, ?, ?)",
		variantID.String(), productID.String(), "1g", priceCents, stock,
	).Error)
	return variantID
}

func seedCart(t *testing.T, db *gorm.DB, buyerID uuid.UUID) uuid.UUID {
	t.Helper()
	cartID := uuid.New()
	require.NoError(t, db.Exec(
		"INSERT INTO carts (id, buyer_id) VALUES (?, ?)",
		cartID.String(), buyerID.String(),
	).Error)
	return cartID
}

func seedCartItem(t *testing.T, db *gorm.DB, cartID, variantID uuid.UUID, qty int, unitPrice string, selected bool) uuid.UUID {
	t.Helper()
	itemID := uuid.New()
	require.NoError(t, db.Exec(
		"INSERT INTO cart_items (id, cart_id, variant_id, quantity, unit_price, is_selected) VALUES (?, ?, ?, ?, ?, ?)",
		itemID.String(), cartID.String(), variantID.String(), qty, unitPrice, selected,
	).Error)
	return itemID
}

func variantStock(t *testing.T, db *gorm.DB, variantID uuid.UUID) int {
	t.Helper()
	var stock int
	require.NoError(t, db.Raw(
		"SELECT stock FROM product_variants WHERE id = ?", variantID.String(),
	).Scan(&stock).Error)
	return stock
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Table(table).Count(&count).Error)
	return count
}

func testAddress() types.Address {
	return types.Address{
		Line1:      "600 Harrison St",
		City:       "San Francisco",
		State:      "CA",
		PostalCode: "94107",
	}
}

func TestExecutePartitionsOrdersBySeller(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)

	buyerID := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()
	vA1 := seedListedVariant(t, db, sellerA, 1000, 10, true)
	vA2 := seedListedVariant(t, db, sellerA, 2500, 10, true)
	vB1 := seedListedVariant(t, db, sellerB, 500, 10, true)

	cartID := seedCart(t, db, buyerID)
	seedCartItem(t, db, cartID, vA1, 2, "10.00", true)
	seedCartItem(t, db, cartID, vA2, 1, "25.00", true)
	seedCartItem(t, db, cartID, vB1, 4, "5.00", true)

	orders, err := svc.Execute(context.Background(), buyerID, Input{
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	bySeller := map[uuid.UUID]models.Order{}
	for _, o := range orders {
		bySeller[o.SellerID] = o
	}
	orderA, ok := bySeller[sellerA]
	require.True(t, ok, "missing order for seller A")
	orderB, ok := bySeller[sellerB]
	require.True(t, ok, "missing order for seller B")

	assert.True(t, orderA.TotalAmount.Equal(decimal.RequireFromString("45.00")),
		"seller A total %s", orderA.TotalAmount)
	assert.True(t, orderB.TotalAmount.Equal(decimal.RequireFromString("20.00")),
		"seller B total %s", orderB.TotalAmount)
	assert.Len(t, orderA.Items, 2)
	assert.Len(t, orderB.Items, 1)

	// Stock left the shelf inside the same transaction.
	assert.Equal(t, 8, variantStock(t, db, vA1))
	assert.Equal(t, 9, variantStock(t, db, vA2))
	assert.Equal(t, 6, variantStock(t, db, vB1))

	// The consumed items are gone and the events trailed behind the commit.
	assert.EqualValues(t, 0, countRows(t, db, "cart_items"))
	assert.EqualValues(t, 2, countRows(t, db, "orders"))
	assert.EqualValues(t, 3, countRows(t, db, "order_items"))

	var eventType string
	require.NoError(t, db.Raw("SELECT event_type FROM outbox_events").Scan(&eventType).Error)
	assert.Equal(t, "order_created", eventType)

	var auditName string
	require.NoError(t, db.Raw("SELECT event_name FROM audit_events").Scan(&auditName).Error)
	assert.Equal(t, "ORDER_CREATED", auditName)
}

func TestExecuteAbortsAllPartitionsOnShortfall(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)

	buyerID := uuid.New()
	vOK := seedListedVariant(t, db, uuid.New(), 1000, 10, true)
	vShort := seedListedVariant(t, db, uuid.New(), 1000, 1, true)

	cartID := seedCart(t, db, buyerID)
	seedCartItem(t, db, cartID, vOK, 2, "10.00", true)
	seedCartItem(t, db, cartID, vShort, 3, "10.00", true)

	_, err := svc.Execute(context.Background(), buyerID, Input{
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// Nothing moved: the healthy partition rolled back with the failing one.
	assert.Equal(t, 10, variantStock(t, db, vOK))
	assert.Equal(t, 1, variantStock(t, db, vShort))
	assert.EqualValues(t, 2, countRows(t, db, "cart_items"))
	assert.EqualValues(t, 0, countRows(t, db, "orders"))
	assert.EqualValues(t, 0, countRows(t, db, "outbox_events"))
	assert.EqualValues(t, 0, countRows(t, db, "audit_events"))
}

func TestExecuteRejectsUnlistedProduct(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)

	buyerID := uuid.New()
	variantID := seedListedVariant(t, db, uuid.New(), 1000, 10, false)
	cartID := seedCart(t, db, buyerID)
	seedCartItem(t, db, cartID, variantID, 1, "10.00", true)

	_, err := svc.Execute(context.Background(), buyerID, Input{
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, 10, variantStock(t, db, variantID))
}

func TestExecuteExplicitItemIDsAreStrict(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)

	buyerID := uuid.New()
	variantID := seedListedVariant(t, db, uuid.New(), 1000, 10, true)
	cartID := seedCart(t, db, buyerID)
	ownID := seedCartItem(t, db, cartID, variantID, 1, "10.00", true)

	// One id belongs to another buyer's cart.
	otherBuyer := uuid.New()
	otherVariant := seedListedVariant(t, db, uuid.New(), 1000, 10, true)
	otherCart := seedCart(t, db, otherBuyer)
	foreignID := seedCartItem(t, db, otherCart, otherVariant, 1, "10.00", true)

	_, err := svc.Execute(context.Background(), buyerID, Input{
		ItemIDs:         []uuid.UUID{ownID, foreignID},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	missing, ok := details["missing_cart_item_ids"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{foreignID.String()}, missing)

	assert.Equal(t, 10, variantStock(t, db, variantID))
	assert.EqualValues(t, 0, countRows(t, db, "orders"))
}

func TestExecuteExplicitIDsOverrideSelection(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)

	buyerID := uuid.New()
	sellerID := uuid.New()
	deselected := seedListedVariant(t, db, sellerID, 1000, 10, true)
	selected := seedListedVariant(t, db, sellerID, 1000, 10, true)

	cartID := seedCart(t, db, buyerID)
	targetID := seedCartItem(t, db, cartID, deselected, 2, "10.00", false)
	bystanderID := seedCartItem(t, db, cartID, selected, 1, "10.00", true)

	orders, err := svc.Execute(context.Background(), buyerID, Input{
		ItemIDs:         []uuid.UUID{targetID},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, deselected, orders[0].Items[0].VariantID)

	// The selected-but-unrequested line survives untouched.
	var remaining string
	require.NoError(t, db.Raw("SELECT id FROM cart_items").Scan(&remaining).Error)
	assert.Equal(t, bystanderID.String(), remaining)
	assert.Equal(t, 10, variantStock(t, db, selected))
}

func TestExecuteEmptySelectionRejected(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)

	buyerID := uuid.New()
	variantID := seedListedVariant(t, db, uuid.New(), 1000, 10, true)
	cartID := seedCart(t, db, buyerID)
	seedCartItem(t, db, cartID, variantID, 1, "10.00", false)

	_, err := svc.Execute(context.Background(), buyerID, Input{
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestExecuteRequiresPaymentAndAddress(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db)

	_, err := svc.Execute(context.Background(), uuid.New(), Input{
		ShippingAddress: testAddress(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Execute(context.Background(), uuid.New(), Input{
		PaymentMethod: "card",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
