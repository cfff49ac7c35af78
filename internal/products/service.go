package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/pkg/db/models"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/logger"
	"github.com/bozorchi/shop-backend/pkg/pagination"
)

// Service defines the behavior needed by the products controller.
type Service interface {
	Create(ctx context.Context, req CreateProductRequest) (*ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateVariantRequest describes one variant on product creation.
type CreateVariantRequest struct {
	Color           string          `json:"color" validate:"required,max=50"`
	Price           decimal.Decimal `json:"price" validate:"required"`
	DiscountPercent int             `json:"discount_percent" validate:"min=0,max=100"`
	StockQuantity   int             `json:"stock_quantity" validate:"min=0"`
	Images          []string        `json:"images"`
}

// CreateProductRequest carries a new catalog entry.
type CreateProductRequest struct {
	Name            string                 `json:"name" validate:"required,max=200"`
	Description     string                 `json:"description" validate:"max=5000"`
	Category        *string                `json:"category,omitempty" validate:"omitempty,max=100"`
	Price           decimal.Decimal        `json:"price" validate:"required"`
	DiscountPercent int                    `json:"discount_percent" validate:"min=0,max=100"`
	StockQuantity   int                    `json:"stock_quantity" validate:"min=0"`
	Images          []string               `json:"images"`
	Variants        []CreateVariantRequest `json:"variants" validate:"dive"`
}

// UpdateProductRequest carries partial product updates.
type UpdateProductRequest struct {
	Name            *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description     *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category        *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	DiscountPercent *int             `json:"discount_percent,omitempty" validate:"omitempty,min=0,max=100"`
	StockQuantity   *int             `json:"stock_quantity,omitempty" validate:"omitempty,min=0"`
	Images          []string         `json:"images,omitempty"`
}

// ListRequest filters and pages the public catalog.
type ListRequest struct {
	Category *string
	Search   string
	Page     int
	Limit    int
}

// ListResponse is a page of products with pagination metadata.
type ListResponse struct {
	Products []ProductDTO    `json:"products"`
	Meta     pagination.Meta `json:"meta"`
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService constructs a products service with the provided dependencies.
func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, req CreateProductRequest) (*ProductDTO, error) {
	if req.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	// stock lives either on the product or on its variants, never both
	if len(req.Variants) > 0 && req.StockQuantity > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product with variants cannot carry its own stock")
	}

	product := &models.Product{
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Price:           req.Price,
		DiscountPercent: req.DiscountPercent,
		StockQuantity:   req.StockQuantity,
		Images:          req.Images,
	}
	for _, v := range req.Variants {
		if v.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant price cannot be negative")
		}
		product.Variants = append(product.Variants, models.ProductVariant{
			Color:           v.Color,
			Price:           v.Price,
			DiscountPercent: v.DiscountPercent,
			StockQuantity:   v.StockQuantity,
			Images:          v.Images,
		})
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	// best effort, a missed increment is not worth failing the read
	if err := s.repo.IncrementViewCount(ctx, id); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"product_id": id.String()}), "increment view count failed")
	}
	product.ViewCount++

	return FromModel(product), nil
}

func (s *service) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	params := pagination.Params{Page: req.Page, Limit: req.Limit}.Normalize()
	items, total, err := s.repo.List(ctx, ListParams{
		Category: req.Category,
		Search:   req.Search,
		Offset:   params.Offset(),
		Limit:    params.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	dtos := make([]ProductDTO, 0, len(items))
	for i := range items {
		dtos = append(dtos, *FromModel(&items[i]))
	}
	return &ListResponse{Products: dtos, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error) {
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = *req.Price
	}
	if req.DiscountPercent != nil {
		updates["discount_percent"] = *req.DiscountPercent
	}
	if req.StockQuantity != nil {
		updates["stock_quantity"] = *req.StockQuantity
	}
	if req.Images != nil {
		updates["images"] = pq.StringArray(req.Images)
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
	}
	return FromModel(product), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}
