package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/internal/products"
	"github.com/bozorchi/shop-backend/pkg/db"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	"github.com/bozorchi/shop-backend/pkg/enums"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/metrics"
	"github.com/bozorchi/shop-backend/pkg/pagination"
)

// Service defines the behavior needed by the orders controller.
type Service interface {
	Create(ctx context.Context, actor *actors.Actor, req CreateOrderRequest) (*OrderDTO, error)
	Get(ctx context.Context, actor *actors.Actor, id uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, actor *actors.Actor, params pagination.Params) (*ListResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error)
	Cancel(ctx context.Context, actor *actors.Actor, id uuid.UUID) (*OrderDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	client  *db.Client
	repo    *Repository
	stock   *products.Repository
	metrics *metrics.OrderMetrics
}

// NewService constructs an orders service with the provided dependencies.
func NewService(client *db.Client, repo *Repository, stock *products.Repository, orderMetrics *metrics.OrderMetrics) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if stock == nil {
		return nil, fmt.Errorf("product stock source is required")
	}
	return &service{client: client, repo: repo, stock: stock, metrics: orderMetrics}, nil
}

func paymentLabel(online bool) string {
	if online {
		return "online"
	}
	return "cash"
}

func (s *service) Create(ctx context.Context, actor *actors.Actor, req CreateOrderRequest) (*OrderDTO, error) {
	if actor == nil || actor.User == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user account required")
	}

	start := time.Now()
	label := paymentLabel(req.PaymentMethodOnline)

	unitPrice, available, err := s.resolveUnit(ctx, req.ProductID, req.VariantID)
	if err != nil {
		return nil, err
	}
	if req.Quantity > available {
		s.metrics.IncInsufficientStock(label)
		return nil, insufficientStock(req.Quantity, available)
	}

	order := &models.Order{
		UserID:              actor.User.ID,
		ProductID:           req.ProductID,
		VariantID:           req.VariantID,
		Quantity:            req.Quantity,
		SellingPrice:        unitPrice.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Paid:                req.Paid,
		PaymentMethodOnline: req.PaymentMethodOnline,
		Location:            req.Location,
		Status:              enums.OrderStatusReceivedPending,
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		stock := s.stock.WithTx(tx)

		var decremented bool
		var decErr error
		if req.VariantID != nil {
			decremented, decErr = stock.DecrementVariantStock(ctx, *req.VariantID, req.Quantity)
		} else {
			decremented, decErr = stock.DecrementStock(ctx, req.ProductID, req.Quantity)
		}
		if decErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, decErr, "decrement stock")
		}
		// the conditional decrement is the serialization point: a
		// concurrent order that consumed the stock first makes this a
		// zero-row update
		if !decremented {
			s.metrics.IncInsufficientStock(label)
			return insufficientStock(req.Quantity, available)
		}

		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCreated(label)
	s.metrics.ObserveCreateDuration(label, time.Since(start))

	created, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, actor *actors.Actor, id uuid.UUID) (*OrderDTO, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.UserID != actor.ID() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your order")
	}
	return FromModel(order), nil
}

func (s *service) ListMine(ctx context.Context, actor *actors.Actor, params pagination.Params) (*ListResponse, error) {
	if actor == nil || actor.User == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user account required")
	}

	normalized := params.Normalize()
	items, total, err := s.repo.ListByUser(ctx, actor.User.ID, normalized.Offset(), normalized.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no orders on this page")
	}

	dtos := make([]OrderDTO, 0, len(items))
	for i := range items {
		dtos = append(dtos, *FromModel(&items[i]))
	}
	return &ListResponse{Orders: dtos, Meta: pagination.NewMeta(normalized, total)}, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error) {
	status, err := enums.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	// the initial state is assigned at creation, never re-entered
	if status == enums.OrderStatusReceivedPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot reset an order to its initial status")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	order.Status = status
	return FromModel(order), nil
}

func (s *service) Cancel(ctx context.Context, actor *actors.Actor, id uuid.UUID) (*OrderDTO, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsWorker() && order.UserID != actor.ID() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your order")
	}
	if order.Canceled {
		return FromModel(order), nil
	}

	if err := s.repo.SetCanceled(ctx, id, true); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
	}
	order.Canceled = true
	s.metrics.IncCanceled(paymentLabel(order.PaymentMethodOnline))
	return FromModel(order), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete order")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// resolveUnit returns the list unit price and currently visible stock.
func (s *service) resolveUnit(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (decimal.Decimal, int, error) {
	product, err := s.stock.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return decimal.Zero, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	if variantID == nil {
		return product.Price, product.StockQuantity, nil
	}

	variant, err := s.stock.FindVariantByID(ctx, *variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
		}
		return decimal.Zero, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	if variant.ProductID != product.ID {
		return decimal.Zero, 0, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
	}
	return variant.Price, variant.StockQuantity, nil
}

func insufficientStock(requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"requested_quantity": requested,
			"available_quantity": available,
		})
}
