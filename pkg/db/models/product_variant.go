package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ProductVariant carries per-color pricing and stock for variant products.
type ProductVariant struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Color           string          `gorm:"column:color;not null"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercent int             `gorm:"column:discount_percent;not null;default:0"`
	StockQuantity   int             `gorm:"column:stock_quantity;not null;default:0"`
	SalesCount      int             `gorm:"column:sales_count;not null;default:0"`
	Images          pq.StringArray  `gorm:"column:images;type:text[]"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// DiscountedPrice derives price * (1 - discount/100), rounded to cents.
func (v *ProductVariant) DiscountedPrice() decimal.Decimal {
	return discountedPrice(v.Price, v.DiscountPercent)
}

// EffectiveUnitPrice mirrors Product.EffectiveUnitPrice for variants.
func (v *ProductVariant) EffectiveUnitPrice() decimal.Decimal {
	if v.DiscountPercent > 0 {
		return v.DiscountedPrice()
	}
	return v.Price
}
