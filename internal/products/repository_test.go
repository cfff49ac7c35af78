package products

import (
	"context"
	"fmt"
	"testing"

	"github.com/bozorchi/shop-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// a named shared-cache database keeps every pooled connection on the
	// same tables while isolating tests from each other
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	productsTable := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT,
  price TEXT NOT NULL DEFAULT '0',
  discount_percent INTEGER NOT NULL DEFAULT 0,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  sales_count INTEGER NOT NULL DEFAULT 0,
  view_count INTEGER NOT NULL DEFAULT 0,
  images TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	variantsTable := `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  color TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL DEFAULT '0',
  discount_percent INTEGER NOT NULL DEFAULT 0,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  sales_count INTEGER NOT NULL DEFAULT 0,
  images TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(productsTable).Error)
	require.NoError(t, db.Exec(variantsTable).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		Name:          "Thermos",
		Price:         decimal.NewFromInt(100),
		StockQuantity: stock,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestCreateAndFindWithVariants(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := &models.Product{
		ID:              uuid.New(),
		Name:            "Jacket",
		Price:           decimal.NewFromInt(250),
		DiscountPercent: 20,
		StockQuantity:   10,
		Variants: []models.ProductVariant{
			{ID: uuid.New(), Color: "black", Price: decimal.NewFromInt(260), StockQuantity: 4},
			{ID: uuid.New(), Color: "green", Price: decimal.NewFromInt(255), StockQuantity: 6},
		},
	}

	_, err := repo.Create(ctx, product)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, found.Variants, 2)
	assert.True(t, found.DiscountedPrice().Equal(decimal.NewFromInt(200)))
}

func TestListFiltersByCategory(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shoes := "shoes"
	hats := "hats"
	require.NoError(t, db.Create(&models.Product{ID: uuid.New(), Name: "Boot", Category: &shoes, Price: decimal.NewFromInt(10)}).Error)
	require.NoError(t, db.Create(&models.Product{ID: uuid.New(), Name: "Cap", Category: &hats, Price: decimal.NewFromInt(5)}).Error)

	items, total, err := repo.List(ctx, ListParams{Category: &shoes, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Boot", items[0].Name)
}

func TestDecrementStockConditional(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, 5)

	ok, err := repo.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok, "remaining stock of 2 cannot cover a request for 3")

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.StockQuantity)
	assert.Equal(t, 1, reloaded.SalesCount)
}

func TestIncrementViewCount(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, 1)
	require.NoError(t, repo.IncrementViewCount(ctx, product.ID))
	require.NoError(t, repo.IncrementViewCount(ctx, product.ID))

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.ViewCount)
}

func TestDeleteMissingProduct(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)

	err := repo.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
