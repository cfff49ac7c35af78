package models

import (
	"time"

	"github.com/bozorchi/shop-backend/pkg/enums"
	"github.com/google/uuid"
)

// User represents a shopper account. Workers are users with the worker flag
// set; they keep their cart and orders while gaining staff operations.
type User struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FirstName    string       `gorm:"column:first_name;not null"`
	LastName     string       `gorm:"column:last_name;not null"`
	Phone        string       `gorm:"column:phone;type:text;not null;uniqueIndex"`
	PasswordHash string       `gorm:"column:password_hash;not null"`
	Gender       enums.Gender `gorm:"column:gender;type:text;not null"`
	IsWorker     bool         `gorm:"column:is_worker;not null;default:false"`
	TokenVersion int          `gorm:"column:token_version;not null;default:1"`
	LastLoginAt  *time.Time   `gorm:"column:last_login_at"`
	CreatedAt    time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
