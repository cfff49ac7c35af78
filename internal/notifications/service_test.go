package notifications

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/pkg/db"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/pagination"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// a named shared-cache database keeps every pooled connection on the
	// same tables while isolating tests from each other
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  sender_id TEXT NOT NULL,
  recipient_id TEXT,
  for_all_users INTEGER NOT NULL DEFAULT 0,
  view_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS notification_views (
  id TEXT PRIMARY KEY,
  notification_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  viewed_at DATETIME,
  UNIQUE (notification_id, user_id)
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newNotificationService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := setupNotificationsTestDB(t)
	svc, err := NewService(db.NewWithConn(conn), NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func workerActor() *actors.Actor {
	return &actors.Actor{User: &models.User{ID: uuid.New(), TokenVersion: 1, IsWorker: true}}
}

func plainUser() *actors.Actor {
	return &actors.Actor{User: &models.User{ID: uuid.New(), TokenVersion: 1}}
}

func TestCreateRequiresWorker(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, plainUser(), CreateRequest{
		Title:       "Sale",
		Message:     "Everything half off",
		ForAllUsers: true,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCreateRejectsAmbiguousAudience(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()
	recipient := uuid.New()

	// both targeted and broadcast
	_, err := svc.Create(ctx, workerActor(), CreateRequest{
		Title:       "Hi",
		Message:     "Hello",
		RecipientID: &recipient,
		ForAllUsers: true,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	// neither
	_, err = svc.Create(ctx, workerActor(), CreateRequest{Title: "Hi", Message: "Hello"})
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestListMergesTargetedAndBroadcast(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()
	sender := workerActor()
	reader := plainUser()
	other := plainUser()

	_, err := svc.Create(ctx, sender, CreateRequest{Title: "For you", Message: "m", RecipientID: &reader.User.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, sender, CreateRequest{Title: "For everyone", Message: "m", ForAllUsers: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, sender, CreateRequest{Title: "For someone else", Message: "m", RecipientID: &other.User.ID})
	require.NoError(t, err)

	page, err := svc.List(ctx, reader, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, int64(2), page.Meta.TotalItems)

	titles := []string{page.Notifications[0].Title, page.Notifications[1].Title}
	assert.Contains(t, titles, "For you")
	assert.Contains(t, titles, "For everyone")
}

func TestMarkViewedCountsOncePerUser(t *testing.T) {
	svc, conn := newNotificationService(t)
	ctx := context.Background()
	sender := workerActor()
	first := plainUser()
	second := plainUser()

	created, err := svc.Create(ctx, sender, CreateRequest{Title: "Broadcast", Message: "m", ForAllUsers: true})
	require.NoError(t, err)

	require.NoError(t, svc.MarkViewed(ctx, first, created.ID))
	require.NoError(t, svc.MarkViewed(ctx, first, created.ID))
	require.NoError(t, svc.MarkViewed(ctx, second, created.ID))

	var reloaded models.Notification
	require.NoError(t, conn.First(&reloaded, "id = ?", created.ID).Error)
	assert.Equal(t, 2, reloaded.ViewCount)

	var views int64
	require.NoError(t, conn.Model(&models.NotificationView{}).Count(&views).Error)
	assert.Equal(t, int64(2), views)
}

func TestMarkViewedForbidsOtherRecipients(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()
	sender := workerActor()
	recipient := plainUser()
	stranger := plainUser()

	created, err := svc.Create(ctx, sender, CreateRequest{Title: "Private", Message: "m", RecipientID: &recipient.User.ID})
	require.NoError(t, err)

	err = svc.MarkViewed(ctx, stranger, created.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	require.NoError(t, svc.MarkViewed(ctx, recipient, created.ID))
}

func TestDeleteNotification(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, workerActor(), CreateRequest{Title: "Old", Message: "m", ForAllUsers: true})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	err = svc.Delete(ctx, created.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
