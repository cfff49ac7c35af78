package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin is the platform operator identity. Admins are stored apart from
// users: they carry no cart and no gender/worker attributes, only
// credentials and a token version of their own.
type Admin struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FirstName    string     `gorm:"column:first_name;not null"`
	LastName     string     `gorm:"column:last_name;not null"`
	Phone        string     `gorm:"column:phone;type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	TokenVersion int        `gorm:"column:token_version;not null;default:1"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
