package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	"github.com/bozorchi/shop-backend/pkg/enums"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service defines the behavior needed by the users controller.
type Service interface {
	Get(ctx context.Context, actor *actors.Actor, id uuid.UUID) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, actor *actors.Actor, req UpdateProfileRequest) (*UserDTO, error)
	List(ctx context.Context, params pagination.Params) (*ListResponse, error)
	SetWorker(ctx context.Context, id uuid.UUID, isWorker bool) error
}

// ProfileResponse wraps a profile with an ownership hint for clients.
type ProfileResponse struct {
	User   *UserDTO `json:"user"`
	IsYour bool     `json:"is_your"`
}

// UpdateProfileRequest carries the mutable profile fields.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Gender    *string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
}

// ListResponse is a page of users with pagination metadata.
type ListResponse struct {
	Users []UserDTO       `json:"users"`
	Meta  pagination.Meta `json:"meta"`
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]models.User, int64, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetWorker(ctx context.Context, id uuid.UUID, isWorker bool) error
}

type service struct {
	users userStore
}

// NewService constructs a users service with the provided dependencies.
func NewService(users userStore) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &service{users: users}, nil
}

func (s *service) Get(ctx context.Context, actor *actors.Actor, id uuid.UUID) (*ProfileResponse, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	if actor.ID() != id && !actor.IsWorker() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot view another profile")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	return &ProfileResponse{User: FromModel(user), IsYour: actor.ID() == id}, nil
}

func (s *service) UpdateProfile(ctx context.Context, actor *actors.Actor, req UpdateProfileRequest) (*UserDTO, error) {
	if actor == nil || actor.User == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user account required")
	}

	updates := map[string]any{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Gender != nil {
		gender, err := enums.ParseGender(*req.Gender)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gender")
		}
		updates["gender"] = gender
	}

	if len(updates) == 0 {
		return FromModel(actor.User), nil
	}

	if err := s.users.UpdateProfile(ctx, actor.User.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}

	user, err := s.users.FindByID(ctx, actor.User.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload profile")
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResponse, error) {
	normalized := params.Normalize()
	users, total, err := s.users.List(ctx, normalized.Offset(), normalized.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	dtos := make([]UserDTO, 0, len(users))
	for i := range users {
		dtos = append(dtos, *FromModel(&users[i]))
	}
	return &ListResponse{Users: dtos, Meta: pagination.NewMeta(normalized, total)}, nil
}

func (s *service) SetWorker(ctx context.Context, id uuid.UUID, isWorker bool) error {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if err := s.users.SetWorker(ctx, id, isWorker); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set worker flag")
	}
	return nil
}
