package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/internal/products"
	"github.com/bozorchi/shop-backend/pkg/db"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
)

// Service defines the behavior needed by the cart controller.
type Service interface {
	Create(ctx context.Context, actor *actors.Actor) (*CartDTO, error)
	Get(ctx context.Context, actor *actors.Actor) (*CartDTO, error)
	AddItems(ctx context.Context, actor *actors.Actor, req AddItemsRequest) (*CartDTO, error)
	RemoveItem(ctx context.Context, actor *actors.Actor, itemID uuid.UUID) (*CartDTO, error)
}

// AddItemRequest is one line in a batch add.
type AddItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

// AddItemsRequest adds one or more lines to the cart atomically.
type AddItemsRequest struct {
	Items []AddItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CartItemDTO is the transport shape of a cart line. Price is the line
// total at the discounted unit price.
type CartItemDTO struct {
	ID        uuid.UUID            `json:"id"`
	ProductID uuid.UUID            `json:"product_id"`
	VariantID *uuid.UUID           `json:"variant_id,omitempty"`
	Quantity  int                  `json:"quantity"`
	Price     decimal.Decimal      `json:"price"`
	Product   *products.ProductDTO `json:"product,omitempty"`
}

// CartDTO is the transport shape of a cart.
type CartDTO struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []CartItemDTO   `json:"items"`
}

type service struct {
	client   *db.Client
	repo     *Repository
	products *products.Repository
}

// NewService constructs a cart service with the provided dependencies.
func NewService(client *db.Client, repo *Repository, productRepo *products.Repository) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	return &service{client: client, repo: repo, products: productRepo}, nil
}

func requireUser(actor *actors.Actor) (*models.User, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	// the admin account has no cart
	if actor.User == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user account required")
	}
	return actor.User, nil
}

func (s *service) Create(ctx context.Context, actor *actors.Actor) (*CartDTO, error) {
	user, err := requireUser(actor)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByUserID(ctx, user.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	cart, err := s.repo.Create(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return fromCartModel(cart), nil
}

func (s *service) Get(ctx context.Context, actor *actors.Actor) (*CartDTO, error) {
	user, err := requireUser(actor)
	if err != nil {
		return nil, err
	}

	cart, err := s.loadCart(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	// line prices follow current product pricing, stale stored values
	// are corrected on read
	total := decimal.Zero
	for i := range cart.Items {
		item := &cart.Items[i]
		unitPrice, err := s.liveUnitPrice(ctx, item)
		if err != nil {
			return nil, err
		}
		linePrice := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !linePrice.Equal(item.Price) {
			if err := s.repo.UpdateItem(ctx, item.ID, item.Quantity, linePrice); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh cart line")
			}
			item.Price = linePrice
		}
		total = total.Add(linePrice)
	}
	if !total.Equal(cart.TotalPrice) {
		if err := s.repo.UpdateTotal(ctx, cart.ID, total); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh cart total")
		}
		cart.TotalPrice = total
	}

	return fromCartModel(cart), nil
}

// liveUnitPrice returns the discounted unit price a cart line sells at
// right now. Product lines use the preloaded product row.
func (s *service) liveUnitPrice(ctx context.Context, item *models.CartItem) (decimal.Decimal, error) {
	if item.VariantID != nil {
		variant, err := s.products.FindVariantByID(ctx, *item.VariantID)
		if err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
		}
		return variant.EffectiveUnitPrice(), nil
	}
	if item.Product != nil {
		return item.Product.EffectiveUnitPrice(), nil
	}
	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product.EffectiveUnitPrice(), nil
}

func (s *service) AddItems(ctx context.Context, actor *actors.Actor, req AddItemsRequest) (*CartDTO, error) {
	user, err := requireUser(actor)
	if err != nil {
		return nil, err
	}

	cart, err := s.loadCart(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stock := s.products.WithTx(tx)

		for _, line := range req.Items {
			unitPrice, available, err := resolveLine(ctx, stock, line)
			if err != nil {
				return err
			}

			existing := findLine(cart, line.ProductID, line.VariantID)
			newQuantity := line.Quantity
			if existing != nil {
				newQuantity += existing.Quantity
			}
			if newQuantity > available {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
					WithDetails(map[string]any{
						"product_id":         line.ProductID,
						"requested_quantity": newQuantity,
						"available_quantity": available,
					})
			}

			linePrice := unitPrice.Mul(decimal.NewFromInt(int64(newQuantity)))
			if existing != nil {
				if err := repo.UpdateItem(ctx, existing.ID, newQuantity, linePrice); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge cart line")
				}
				existing.Quantity = newQuantity
				existing.Price = linePrice
				continue
			}

			item := &models.CartItem{
				CartID:    cart.ID,
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Quantity:  newQuantity,
				Price:     linePrice,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart line")
			}
			cart.Items = append(cart.Items, *item)
		}

		total := cartTotal(cart)
		if err := repo.UpdateTotal(ctx, cart.ID, total); err != nil {
			return err
		}
		cart.TotalPrice = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fromCartModel(cart), nil
}

func (s *service) RemoveItem(ctx context.Context, actor *actors.Actor, itemID uuid.UUID) (*CartDTO, error) {
	user, err := requireUser(actor)
	if err != nil {
		return nil, err
	}

	cart, err := s.loadCart(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		removed, err := repo.DeleteItem(ctx, cart.ID, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		remaining := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ID != itemID {
				remaining = append(remaining, item)
			}
		}
		cart.Items = remaining

		total := cartTotal(cart)
		if err := repo.UpdateTotal(ctx, cart.ID, total); err != nil {
			return err
		}
		cart.TotalPrice = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fromCartModel(cart), nil
}

func (s *service) loadCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cart, nil
}

// resolveLine returns the discounted unit price and available stock for a
// requested product or variant. The caller picks the repo binding so the
// add path can read through its own transaction.
func resolveLine(ctx context.Context, src *products.Repository, line AddItemRequest) (decimal.Decimal, int, error) {
	product, err := src.FindByID(ctx, line.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return decimal.Zero, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	if line.VariantID == nil {
		return product.EffectiveUnitPrice(), product.StockQuantity, nil
	}

	variant, err := src.FindVariantByID(ctx, *line.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
		}
		return decimal.Zero, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	if variant.ProductID != product.ID {
		return decimal.Zero, 0, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
	}
	return variant.EffectiveUnitPrice(), variant.StockQuantity, nil
}

func findLine(cart *models.Cart, productID uuid.UUID, variantID *uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.ProductID != productID {
			continue
		}
		if (item.VariantID == nil) != (variantID == nil) {
			continue
		}
		if item.VariantID != nil && *item.VariantID != *variantID {
			continue
		}
		return item
	}
	return nil
}

func cartTotal(cart *models.Cart) decimal.Decimal {
	total := decimal.Zero
	for i := range cart.Items {
		total = total.Add(cart.Items[i].Price)
	}
	return total
}

func fromCartModel(cart *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:         cart.ID,
		UserID:     cart.UserID,
		TotalPrice: cart.TotalPrice,
		Items:      make([]CartItemDTO, 0, len(cart.Items)),
	}
	for i := range cart.Items {
		item := &cart.Items[i]
		dto.Items = append(dto.Items, CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Product:   products.FromModel(item.Product),
		})
	}
	return dto
}
