package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bozorchi/shop-backend/pkg/db/models"
)

// VariantDTO is the transport shape of a product variant.
type VariantDTO struct {
	ID              uuid.UUID       `json:"id"`
	Color           string          `json:"color"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent int             `json:"discount_percent"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	StockQuantity   int             `json:"stock_quantity"`
	SalesCount      int             `json:"sales_count"`
	Images          []string        `json:"images"`
}

// ProductDTO is the transport shape of a catalog product. DiscountedPrice is
// always derived from the list price, never stored.
type ProductDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Category        *string         `json:"category,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent int             `json:"discount_percent"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	StockQuantity   int             `json:"stock_quantity"`
	SalesCount      int             `json:"sales_count"`
	ViewCount       int             `json:"view_count"`
	Images          []string        `json:"images"`
	Variants        []VariantDTO    `json:"variants,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func variantFromModel(v *models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:              v.ID,
		Color:           v.Color,
		Price:           v.Price,
		DiscountPercent: v.DiscountPercent,
		DiscountedPrice: v.DiscountedPrice(),
		StockQuantity:   v.StockQuantity,
		SalesCount:      v.SalesCount,
		Images:          v.Images,
	}
}

// FromModel maps a product model into its transport shape.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}

	variants := make([]VariantDTO, 0, len(p.Variants))
	for i := range p.Variants {
		variants = append(variants, variantFromModel(&p.Variants[i]))
	}

	return &ProductDTO{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Category:        p.Category,
		Price:           p.Price,
		DiscountPercent: p.DiscountPercent,
		DiscountedPrice: p.DiscountedPrice(),
		StockQuantity:   p.StockQuantity,
		SalesCount:      p.SalesCount,
		ViewCount:       p.ViewCount,
		Images:          p.Images,
		Variants:        variants,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
