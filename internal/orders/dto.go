package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bozorchi/shop-backend/internal/products"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	"github.com/bozorchi/shop-backend/pkg/enums"
	"github.com/bozorchi/shop-backend/pkg/pagination"
)

// CreateOrderRequest carries a new order placement.
type CreateOrderRequest struct {
	ProductID           uuid.UUID  `json:"product_id" validate:"required"`
	VariantID           *uuid.UUID `json:"variant_id,omitempty"`
	Quantity            int        `json:"product_quantity" validate:"required,min=1"`
	Paid                bool       `json:"paid"`
	PaymentMethodOnline bool       `json:"payment_method_online"`
	Location            string     `json:"location" validate:"required,max=500"`
}

// UpdateStatusRequest advances an order through its lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderDTO is the transport shape of an order.
type OrderDTO struct {
	ID                  uuid.UUID            `json:"id"`
	UserID              uuid.UUID            `json:"user_id"`
	ProductID           uuid.UUID            `json:"product_id"`
	VariantID           *uuid.UUID           `json:"variant_id,omitempty"`
	Quantity            int                  `json:"quantity"`
	SellingPrice        decimal.Decimal      `json:"selling_price"`
	Paid                bool                 `json:"paid"`
	PaymentMethodOnline bool                 `json:"payment_method_online"`
	Location            string               `json:"location"`
	Status              enums.OrderStatus    `json:"status"`
	Canceled            bool                 `json:"canceled"`
	Product             *products.ProductDTO `json:"product,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// ListResponse is a page of orders with pagination metadata.
type ListResponse struct {
	Orders []OrderDTO      `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

// FromModel maps an order model into its transport shape.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	return &OrderDTO{
		ID:                  o.ID,
		UserID:              o.UserID,
		ProductID:           o.ProductID,
		VariantID:           o.VariantID,
		Quantity:            o.Quantity,
		SellingPrice:        o.SellingPrice,
		Paid:                o.Paid,
		PaymentMethodOnline: o.PaymentMethodOnline,
		Location:            o.Location,
		Status:              o.Status,
		Canceled:            o.Canceled,
		Product:             products.FromModel(o.Product),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}
