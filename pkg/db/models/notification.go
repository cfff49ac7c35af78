package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a staff-authored message. RecipientID is nil for
// broadcasts, which are visible to every user.
type Notification struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string     `gorm:"column:title;not null"`
	Message     string     `gorm:"column:message;not null"`
	SenderID    uuid.UUID  `gorm:"column:sender_id;type:uuid;not null"`
	RecipientID *uuid.UUID `gorm:"column:recipient_id;type:uuid;index"`
	ForAllUsers bool       `gorm:"column:for_all_users;not null;default:false"`
	ViewCount   int        `gorm:"column:view_count;not null;default:0"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// NotificationView records that a user has seen a notification; broadcasts
// accumulate one row per viewer.
type NotificationView struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	NotificationID uuid.UUID `gorm:"column:notification_id;type:uuid;not null;uniqueIndex:idx_notification_viewer"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_notification_viewer"`
	ViewedAt       time.Time `gorm:"column:viewed_at;autoCreateTime"`
}
