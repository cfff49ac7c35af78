package taxonomy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/pagination"
)

// Service defines category and tag curation operations.
type Service interface {
	CreateCategory(ctx context.Context, actor *actors.Actor, req CreateCategoryRequest) (*CategoryDTO, error)
	ListCategories(ctx context.Context, req ListRequest) (*CategoryListResponse, error)
	TopCategories(ctx context.Context) ([]CategoryDTO, error)
	UpdateCategory(ctx context.Context, actor *actors.Actor, id uuid.UUID, req UpdateCategoryRequest) error
	DeleteCategory(ctx context.Context, actor *actors.Actor, id uuid.UUID) error

	CreateTag(ctx context.Context, actor *actors.Actor, req CreateTagRequest) (*TagDTO, error)
	ListTags(ctx context.Context, req ListRequest) (*TagListResponse, error)
	UpdateTag(ctx context.Context, actor *actors.Actor, id uuid.UUID, req CreateTagRequest) error
	DeleteTag(ctx context.Context, actor *actors.Actor, id uuid.UUID) error
}

// CreateCategoryRequest carries a new catalog grouping.
type CreateCategoryRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=20"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,max=500"`
	Top      bool    `json:"top"`
}

// UpdateCategoryRequest carries partial category updates.
type UpdateCategoryRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=20"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,max=500"`
	Top      *bool   `json:"top,omitempty"`
}

// CreateTagRequest carries a tag name, with or without its leading '#'.
type CreateTagRequest struct {
	Name string `json:"name" validate:"required,min=2,max=20"`
}

// ListRequest filters and pages a taxonomy listing.
type ListRequest struct {
	Search string
	Page   int
	Limit  int
}

// CategoryDTO is the transport shape of a category.
type CategoryDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ImageURL  *string   `json:"image_url,omitempty"`
	Top       bool      `json:"top"`
	CreatedAt time.Time `json:"created_at"`
}

// TagDTO is the transport shape of a tag.
type TagDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryListResponse is a page of categories with pagination metadata.
type CategoryListResponse struct {
	Categories []CategoryDTO   `json:"categories"`
	Meta       pagination.Meta `json:"meta"`
}

// TagListResponse is a page of tags with pagination metadata.
type TagListResponse struct {
	Tags []TagDTO        `json:"tags"`
	Meta pagination.Meta `json:"meta"`
}

type service struct {
	repo *Repository
}

// NewService wires taxonomy dependencies.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("taxonomy repository required")
	}
	return &service{repo: repo}, nil
}

func requireAdmin(actor *actors.Actor) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.Admin == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	return nil
}

func (s *service) CreateCategory(ctx context.Context, actor *actors.Actor, req CreateCategoryRequest) (*CategoryDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:      req.Name,
		ImageURL:  req.ImageURL,
		Top:       req.Top,
		CreatedBy: actor.ID(),
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return categoryFromModel(category), nil
}

func (s *service) ListCategories(ctx context.Context, req ListRequest) (*CategoryListResponse, error) {
	params := pagination.Params{Page: req.Page, Limit: req.Limit}.Normalize()

	items, total, err := s.repo.ListCategories(ctx, req.Search, params.Offset(), params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}

	out := make([]CategoryDTO, 0, len(items))
	for i := range items {
		out = append(out, *categoryFromModel(&items[i]))
	}
	return &CategoryListResponse{Categories: out, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) TopCategories(ctx context.Context) ([]CategoryDTO, error) {
	items, err := s.repo.TopCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list top categories")
	}

	out := make([]CategoryDTO, 0, len(items))
	for i := range items {
		out = append(out, *categoryFromModel(&items[i]))
	}
	return out, nil
}

func (s *service) UpdateCategory(ctx context.Context, actor *actors.Actor, id uuid.UUID, req UpdateCategoryRequest) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.Top != nil {
		updates["top"] = *req.Top
	}
	if len(updates) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.UpdateCategory(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update category")
	}
	return nil
}

func (s *service) DeleteCategory(ctx context.Context, actor *actors.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category")
	}
	return nil
}

func (s *service) CreateTag(ctx context.Context, actor *actors.Actor, req CreateTagRequest) (*TagDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	tag := &models.Tag{
		Name:      tagName(req.Name),
		CreatedBy: actor.ID(),
	}
	if err := s.repo.CreateTag(ctx, tag); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create tag")
	}
	return tagFromModel(tag), nil
}

func (s *service) ListTags(ctx context.Context, req ListRequest) (*TagListResponse, error) {
	params := pagination.Params{Page: req.Page, Limit: req.Limit}.Normalize()

	items, total, err := s.repo.ListTags(ctx, req.Search, params.Offset(), params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tags")
	}

	out := make([]TagDTO, 0, len(items))
	for i := range items {
		out = append(out, *tagFromModel(&items[i]))
	}
	return &TagListResponse{Tags: out, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) UpdateTag(ctx context.Context, actor *actors.Actor, id uuid.UUID, req CreateTagRequest) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if err := s.repo.UpdateTag(ctx, id, tagName(req.Name)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tag not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update tag")
	}
	return nil
}

func (s *service) DeleteTag(ctx context.Context, actor *actors.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if err := s.repo.DeleteTag(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tag not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete tag")
	}
	return nil
}

// tagName normalizes a tag to its stored '#'-prefixed form.
func tagName(name string) string {
	return "#" + strings.TrimPrefix(name, "#")
}

func categoryFromModel(category *models.Category) *CategoryDTO {
	return &CategoryDTO{
		ID:        category.ID,
		Name:      category.Name,
		ImageURL:  category.ImageURL,
		Top:       category.Top,
		CreatedAt: category.CreatedAt,
	}
}

func tagFromModel(tag *models.Tag) *TagDTO {
	return &TagDTO{
		ID:        tag.ID,
		Name:      tag.Name,
		CreatedAt: tag.CreatedAt,
	}
}
