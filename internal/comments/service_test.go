package comments

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/internal/products"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/pagination"
)

func setupCommentsTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS comments (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  text TEXT NOT NULL,
  rating INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE(product_id, user_id)
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newCommentService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := setupCommentsTestDB(t)
	svc, err := NewService(NewRepository(conn), products.NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func seedCommentProduct(t *testing.T, conn *gorm.DB) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		Name:          "Blender",
		Price:         decimal.NewFromInt(70),
		StockQuantity: 3,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func commentActor() *actors.Actor {
	return &actors.Actor{User: &models.User{ID: uuid.New(), TokenVersion: 1}}
}

func TestCreateCommentOncePerProduct(t *testing.T) {
	svc, conn := newCommentService(t)
	actor := commentActor()
	ctx := context.Background()

	product := seedCommentProduct(t, conn)

	created, err := svc.Create(ctx, actor, product.ID, CreateRequest{Comment: "works great", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, "works great", created.Comment)
	assert.Equal(t, actor.ID(), created.UserID)

	_, err = svc.Create(ctx, actor, product.ID, CreateRequest{Comment: "second thoughts", Rating: 2})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// the same user may still review a different product
	other := seedCommentProduct(t, conn)
	_, err = svc.Create(ctx, actor, other.ID, CreateRequest{Comment: "also fine", Rating: 4})
	require.NoError(t, err)
}

func TestCreateCommentUnknownProduct(t *testing.T) {
	svc, _ := newCommentService(t)

	_, err := svc.Create(context.Background(), commentActor(), uuid.New(), CreateRequest{Comment: "lost"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCreateCommentRequiresUserAccount(t *testing.T) {
	svc, conn := newCommentService(t)
	product := seedCommentProduct(t, conn)
	admin := &actors.Actor{Admin: &models.Admin{ID: uuid.New(), TokenVersion: 1}}

	_, err := svc.Create(context.Background(), admin, product.ID, CreateRequest{Comment: "from the office"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestListCommentsPaginates(t *testing.T) {
	svc, conn := newCommentService(t)
	ctx := context.Background()

	product := seedCommentProduct(t, conn)
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, commentActor(), product.ID, CreateRequest{Comment: "review", Rating: i})
		require.NoError(t, err)
	}

	page, err := svc.ListForProduct(ctx, product.ID, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Comments, 2)
	assert.EqualValues(t, 3, page.Meta.TotalItems)
	assert.Equal(t, 2, page.Meta.TotalPages)
}

func TestDeleteCommentOwnership(t *testing.T) {
	svc, conn := newCommentService(t)
	author := commentActor()
	ctx := context.Background()

	product := seedCommentProduct(t, conn)
	created, err := svc.Create(ctx, author, product.ID, CreateRequest{Comment: "mine"})
	require.NoError(t, err)

	err = svc.Delete(ctx, commentActor(), created.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	admin := &actors.Actor{Admin: &models.Admin{ID: uuid.New(), TokenVersion: 1}}
	require.NoError(t, svc.Delete(ctx, admin, created.ID))

	err = svc.Delete(ctx, author, created.ID)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
