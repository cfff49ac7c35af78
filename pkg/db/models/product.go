package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a catalog listing. Pricing and stock live either on the product
// itself or on its variants, never both. DiscountPercent is a whole-number
// percentage; the discounted price is always derived, never stored.
type Product struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string           `gorm:"column:name;not null"`
	Description     string           `gorm:"column:description;not null"`
	Category        *string          `gorm:"column:category"`
	Price           decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercent int              `gorm:"column:discount_percent;not null;default:0"`
	StockQuantity   int              `gorm:"column:stock_quantity;not null;default:0"`
	SalesCount      int              `gorm:"column:sales_count;not null;default:0"`
	ViewCount       int              `gorm:"column:view_count;not null;default:0"`
	Images          pq.StringArray   `gorm:"column:images;type:text[]"`
	Variants        []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// HasVariants reports whether pricing/stock is carried by variants.
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// DiscountedPrice derives price * (1 - discount/100), rounded to cents.
func (p *Product) DiscountedPrice() decimal.Decimal {
	return discountedPrice(p.Price, p.DiscountPercent)
}

// EffectiveUnitPrice is the price a buyer actually pays per unit: the
// discounted price when a discount applies, the list price otherwise.
func (p *Product) EffectiveUnitPrice() decimal.Decimal {
	if p.DiscountPercent > 0 {
		return p.DiscountedPrice()
	}
	return p.Price
}

func discountedPrice(price decimal.Decimal, discountPercent int) decimal.Decimal {
	if discountPercent <= 0 {
		return price
	}
	factor := decimal.NewFromInt(int64(100 - discountPercent)).Div(decimal.NewFromInt(100))
	return price.Mul(factor).Round(2)
}
