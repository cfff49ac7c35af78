package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a buyer's review of a product. A user writes at most one
// comment per product, enforced by a unique (product_id, user_id) index.
type Comment struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_comment_author"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_comment_author"`
	Text      string    `gorm:"column:text;not null"`
	Rating    int       `gorm:"column:rating;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
