package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  is_listed INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	variants := `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(variants).Error)
	t.Cleanup(func() {
		db.Exec("DELETE FROM product_variants")
		db.Exec("DELETE FROM products")
	})
	return db
}

func seedProductWithVariant(t *testing.T, db *gorm.DB, sellerID uuid.UUID, listed bool, stock int) (uuid.UUID, uuid.UUID) {
	t.Helper()
	productID := uuid.New()
	variantID := uuid.New()
	require.NoError(t, db.Exec(
		"INSERT INTO products (id, seller_id, name, is_listed) VALUES (?, ?, ?, ?)",
		productID.String(), sellerID.String(), "Ceramic Mug", listed,
	).Error)
	require.NoError(t, db.Exec(
		"INSERT INTO product_variants (id, product_id, name, price_cents, stock) VALUES (?, ?, ?, ?, ?)",
		variantID.String(), productID.String(), "Matte Black", 4500, stock,
	).Error)
	return productID, variantID
}

func TestFindVariantWithProductJoinsProductFields(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	sellerID := uuid.New()
	productID, variantID := seedProductWithVariant(t, db, sellerID, true, 12)

	detail, err := repo.FindVariantWithProduct(context.Background(), variantID)
	require.NoError(t, err)

	assert.Equal(t, variantID, detail.VariantID)
	assert.Equal(t, productID, detail.ProductID)
	assert.Equal(t, sellerID, detail.SellerID)
	assert.Equal(t, "Ceramic Mug", detail.ProductName)
	assert.Equal(t, "Matte Black", detail.VariantName)
	assert.Equal(t, 4500, detail.PriceCents)
	assert.Equal(t, 12, detail.Stock)
	assert.True(t, detail.IsListed)
}

func TestFindVariantsWithProductBatches(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	_, v1 := seedProductWithVariant(t, db, uuid.New(), true, 5)
	_, v2 := seedProductWithVariant(t, db, uuid.New(), false, 9)

	details, err := repo.FindVariantsWithProduct(context.Background(), []uuid.UUID{v1, v2})
	require.NoError(t, err)
	require.Len(t, details, 2)

	empty, err := repo.FindVariantsWithProduct(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestServiceFindVariantMapsMissingToNotFound(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	_, err = svc.FindVariant(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestProductExists(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	productID, _ := seedProductWithVariant(t, db, uuid.New(), true, 1)

	exists, err := repo.ProductExists(context.Background(), productID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ProductExists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestServiceEnsureProduct(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	productID, _ := seedProductWithVariant(t, db, uuid.New(), true, 1)
	require.NoError(t, svc.EnsureProduct(context.Background(), productID))

	err = svc.EnsureProduct(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
