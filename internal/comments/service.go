package comments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/internal/products"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/pagination"
)

// Service defines product review operations.
type Service interface {
	Create(ctx context.Context, actor *actors.Actor, productID uuid.UUID, req CreateRequest) (*CommentDTO, error)
	ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ListResponse, error)
	Delete(ctx context.Context, actor *actors.Actor, id uuid.UUID) error
}

// CreateRequest carries a new review for a product.
type CreateRequest struct {
	Comment string `json:"comment" validate:"required,min=1,max=600"`
	Rating  int    `json:"rating" validate:"min=0,max=5"`
}

// CommentDTO is the transport shape of a comment.
type CommentDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	Comment   string    `json:"comment"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// ListResponse is a page of comments with pagination metadata.
type ListResponse struct {
	Comments []CommentDTO    `json:"comments"`
	Meta     pagination.Meta `json:"meta"`
}

type service struct {
	repo     *Repository
	products *products.Repository
}

// NewService wires comment dependencies.
func NewService(repo *Repository, productRepo *products.Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("comments repository required")
	}
	if productRepo == nil {
		return nil, errors.New("products repository required")
	}
	return &service{repo: repo, products: productRepo}, nil
}

func (s *service) Create(ctx context.Context, actor *actors.Actor, productID uuid.UUID, req CreateRequest) (*CommentDTO, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.User == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user account required")
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	exists, err := s.repo.ExistsForAuthor(ctx, productID, actor.ID())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing comment")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "you already commented on this product")
	}

	comment := &models.Comment{
		ProductID: productID,
		UserID:    actor.ID(),
		Text:      req.Comment,
		Rating:    req.Rating,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create comment")
	}
	return fromModel(comment), nil
}

func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ListResponse, error) {
	params = params.Normalize()

	items, total, err := s.repo.ListForProduct(ctx, productID, params.Offset(), params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list comments")
	}

	out := make([]CommentDTO, 0, len(items))
	for i := range items {
		out = append(out, *fromModel(&items[i]))
	}
	return &ListResponse{Comments: out, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Delete(ctx context.Context, actor *actors.Actor, id uuid.UUID) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	comment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load comment")
	}
	if actor.Admin == nil && comment.UserID != actor.ID() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not your comment")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete comment")
	}
	return nil
}

func fromModel(comment *models.Comment) *CommentDTO {
	return &CommentDTO{
		ID:        comment.ID,
		ProductID: comment.ProductID,
		UserID:    comment.UserID,
		Comment:   comment.Text,
		Rating:    comment.Rating,
		CreatedAt: comment.CreatedAt,
	}
}
