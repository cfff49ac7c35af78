package orders

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/internal/products"
	"github.com/bozorchi/shop-backend/pkg/db"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	"github.com/bozorchi/shop-backend/pkg/enums"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// a named shared-cache database keeps every pooled connection on the
	// same tables while isolating tests from each other
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
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
);`,
		`CREATE TABLE IF NOT EXISTS product_variants (
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
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL DEFAULT 1,
  selling_price TEXT NOT NULL DEFAULT '0',
  paid INTEGER NOT NULL DEFAULT 0,
  payment_method_online INTEGER NOT NULL DEFAULT 0,
  location TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'received_pending',
  canceled INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newOrderService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := setupOrdersTestDB(t)
	client := db.NewWithConn(conn)
	svc, err := NewService(client, NewRepository(conn), products.NewRepository(conn), nil)
	require.NoError(t, err)
	return svc, conn
}

func seedOrderProduct(t *testing.T, conn *gorm.DB, price int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		Name:          "Lamp",
		Price:         decimal.NewFromInt(price),
		StockQuantity: stock,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func orderActor() *actors.Actor {
	return &actors.Actor{User: &models.User{ID: uuid.New(), TokenVersion: 1}}
}

func adminActor() *actors.Actor {
	return &actors.Actor{Admin: &models.Admin{ID: uuid.New(), TokenVersion: 1}}
}

func TestCreateOrderDecrementsStock(t *testing.T) {
	svc, conn := newOrderService(t)
	actor := orderActor()
	ctx := context.Background()

	product := seedOrderProduct(t, conn, 120, 10)

	order, err := svc.Create(ctx, actor, CreateOrderRequest{
		ProductID: product.ID,
		Quantity:  3,
		Location:  "Tashkent, Chilonzor 9",
	})
	require.NoError(t, err)
	assert.True(t, order.SellingPrice.Equal(decimal.NewFromInt(360)))
	assert.Equal(t, enums.OrderStatusReceivedPending, order.Status)
	assert.False(t, order.Canceled)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 7, reloaded.StockQuantity)
	assert.Equal(t, 1, reloaded.SalesCount)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	svc, conn := newOrderService(t)
	actor := orderActor()
	ctx := context.Background()

	product := seedOrderProduct(t, conn, 50, 5)

	_, err := svc.Create(ctx, actor, CreateOrderRequest{
		ProductID: product.ID,
		Quantity:  3,
		Location:  "somewhere",
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, actor, CreateOrderRequest{
		ProductID: product.ID,
		Quantity:  4,
		Location:  "somewhere",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 4, details["requested_quantity"])
	assert.Equal(t, 2, details["available_quantity"])

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.StockQuantity, "failed order must not touch stock")

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "failed order must not persist a row")
}

func TestCreateOrderConcurrentStockRace(t *testing.T) {
	svc, conn := newOrderService(t)
	ctx := context.Background()

	product := seedOrderProduct(t, conn, 50, 5)

	// sqlite allows one writer at a time; a single connection keeps the
	// racing transactions from tripping over file locks
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, orderActor(), CreateOrderRequest{
				ProductID: product.ID,
				Quantity:  3,
				Location:  "somewhere",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
		rejected++
	}
	assert.Equal(t, 1, succeeded, "exactly one order wins the remaining stock")
	assert.Equal(t, 1, rejected)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.StockQuantity, "stock never goes negative")

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateOrderForVariant(t *testing.T) {
	svc, conn := newOrderService(t)
	actor := orderActor()
	ctx := context.Background()

	product := seedOrderProduct(t, conn, 100, 0)
	variant := &models.ProductVariant{
		ID:            uuid.New(),
		ProductID:     product.ID,
		Color:         "red",
		Price:         decimal.NewFromInt(110),
		StockQuantity: 4,
	}
	require.NoError(t, conn.Create(variant).Error)

	order, err := svc.Create(ctx, actor, CreateOrderRequest{
		ProductID: product.ID,
		VariantID: &variant.ID,
		Quantity:  2,
		Location:  "pickup point 4",
	})
	require.NoError(t, err)
	assert.True(t, order.SellingPrice.Equal(decimal.NewFromInt(220)))

	var reloaded models.ProductVariant
	require.NoError(t, conn.First(&reloaded, "id = ?", variant.ID).Error)
	assert.Equal(t, 2, reloaded.StockQuantity)
	assert.Equal(t, 1, reloaded.SalesCount)
}

func TestUpdateStatusTransitions(t *testing.T) {
	svc, conn := newOrderService(t)
	actor := orderActor()
	ctx := context.Background()

	product := seedOrderProduct(t, conn, 10, 10)
	order, err := svc.Create(ctx, actor, CreateOrderRequest{ProductID: product.ID, Quantity: 1, Location: "x"})
	require.NoError(t, err)

	// skipping an intermediate state is allowed
	updated, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusRequest{Status: "delivering"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivering, updated.Status)

	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusRequest{Status: "processing"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusRequest{Status: "received_pending"})
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusRequest{Status: "teleported"})
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, conn := newOrderService(t)
	owner := orderActor()
	stranger := orderActor()
	ctx := context.Background()

	product := seedOrderProduct(t, conn, 10, 10)
	order, err := svc.Create(ctx, owner, CreateOrderRequest{ProductID: product.ID, Quantity: 1, Location: "x"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, stranger, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	fromAdmin, err := svc.Get(ctx, adminActor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fromAdmin.ID)

	fromOwner, err := svc.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fromOwner.ID)
}

func TestListMineEmptyPage(t *testing.T) {
	svc, conn := newOrderService(t)
	actor := orderActor()
	ctx := context.Background()

	product := seedOrderProduct(t, conn, 10, 10)
	_, err := svc.Create(ctx, actor, CreateOrderRequest{ProductID: product.ID, Quantity: 1, Location: "x"})
	require.NoError(t, err)

	page, err := svc.ListMine(ctx, actor, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)

	_, err = svc.ListMine(ctx, actor, pagination.Params{Page: 5, Limit: 10})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCancelIsOrthogonalToStatus(t *testing.T) {
	svc, conn := newOrderService(t)
	actor := orderActor()
	ctx := context.Background()

	product := seedOrderProduct(t, conn, 10, 10)
	order, err := svc.Create(ctx, actor, CreateOrderRequest{ProductID: product.ID, Quantity: 1, Location: "x"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusRequest{Status: "processing"})
	require.NoError(t, err)

	canceled, err := svc.Cancel(ctx, actor, order.ID)
	require.NoError(t, err)
	assert.True(t, canceled.Canceled)
	assert.Equal(t, enums.OrderStatusProcessing, canceled.Status, "cancellation leaves status untouched")

	again, err := svc.Cancel(ctx, actor, order.ID)
	require.NoError(t, err)
	assert.True(t, again.Canceled)
}

func TestDeleteOrder(t *testing.T) {
	svc, conn := newOrderService(t)
	actor := orderActor()
	ctx := context.Background()

	product := seedOrderProduct(t, conn, 10, 10)
	order, err := svc.Create(ctx, actor, CreateOrderRequest{ProductID: product.ID, Quantity: 1, Location: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, order.ID))

	err = svc.Delete(ctx, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
