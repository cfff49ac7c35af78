package models

import (
	"time"

	"github.com/bozorchi/shop-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a single-product purchase. SellingPrice is the full unit price
// times quantity, captured at creation. Canceled is orthogonal to the
// delivery status lifecycle.
type Order struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID           uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	VariantID           *uuid.UUID        `gorm:"column:variant_id;type:uuid"`
	Quantity            int               `gorm:"column:quantity;not null"`
	SellingPrice        decimal.Decimal   `gorm:"column:selling_price;type:numeric(12,2);not null"`
	Paid                bool              `gorm:"column:paid;not null;default:false"`
	PaymentMethodOnline bool              `gorm:"column:payment_method_online;not null;default:false"`
	Location            string            `gorm:"column:location;not null"`
	Status              enums.OrderStatus `gorm:"column:status;type:text;not null;default:'received_pending'"`
	Canceled            bool              `gorm:"column:canceled;not null;default:false"`
	Product             *Product          `gorm:"foreignKey:ProductID"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
