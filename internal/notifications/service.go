package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/pkg/db"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/pagination"
)

// Service defines notification authoring and delivery operations.
type Service interface {
	Create(ctx context.Context, actor *actors.Actor, req CreateRequest) (*NotificationDTO, error)
	List(ctx context.Context, actor *actors.Actor, params pagination.Params) (*ListResponse, error)
	MarkViewed(ctx context.Context, actor *actors.Actor, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateRequest authors a notification. RecipientID empty with ForAllUsers
// set means a broadcast; exactly one of the two must be chosen.
type CreateRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Message     string     `json:"message" validate:"required,max=2000"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	ForAllUsers bool       `json:"for_all_users"`
}

// NotificationDTO is the transport shape of a notification.
type NotificationDTO struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	SenderID    uuid.UUID  `json:"sender_id"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	ForAllUsers bool       `json:"for_all_users"`
	ViewCount   int        `json:"view_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListResponse is a page of notifications with pagination metadata.
type ListResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Meta          pagination.Meta   `json:"meta"`
}

type service struct {
	client *db.Client
	repo   *Repository
}

// NewService wires notification dependencies.
func NewService(client *db.Client, repo *Repository) (Service, error) {
	if client == nil {
		return nil, errors.New("db client required")
	}
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	return &service{client: client, repo: repo}, nil
}

func (s *service) Create(ctx context.Context, actor *actors.Actor, req CreateRequest) (*NotificationDTO, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsWorker() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	if req.ForAllUsers == (req.RecipientID != nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "choose a recipient or mark the notification for all users")
	}

	notification := &models.Notification{
		Title:       req.Title,
		Message:     req.Message,
		SenderID:    actor.ID(),
		RecipientID: req.RecipientID,
		ForAllUsers: req.ForAllUsers,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create notification")
	}
	return fromModel(notification), nil
}

func (s *service) List(ctx context.Context, actor *actors.Actor, params pagination.Params) (*ListResponse, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.User == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only user accounts receive notifications")
	}
	params = params.Normalize()

	items, total, err := s.repo.ListForUser(ctx, actor.ID(), params.Offset(), params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}

	out := make([]NotificationDTO, 0, len(items))
	for i := range items {
		out = append(out, *fromModel(&items[i]))
	}
	return &ListResponse{Notifications: out, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) MarkViewed(ctx context.Context, actor *actors.Actor, id uuid.UUID) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.User == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only user accounts receive notifications")
	}

	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load notification")
	}
	if !notification.ForAllUsers && (notification.RecipientID == nil || *notification.RecipientID != actor.ID()) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not your notification")
	}

	viewed, err := s.repo.HasViewed(ctx, id, actor.ID())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check notification view")
	}
	if viewed {
		// already counted, marking twice is a no-op
		return nil
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		view := &models.NotificationView{NotificationID: id, UserID: actor.ID()}
		if err := repo.CreateView(ctx, view); err != nil {
			return err
		}
		return repo.IncrementViewCount(ctx, id)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification viewed")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete notification")
	}
	return nil
}

func fromModel(n *models.Notification) *NotificationDTO {
	return &NotificationDTO{
		ID:          n.ID,
		Title:       n.Title,
		Message:     n.Message,
		SenderID:    n.SenderID,
		RecipientID: n.RecipientID,
		ForAllUsers: n.ForAllUsers,
		ViewCount:   n.ViewCount,
		CreatedAt:   n.CreatedAt,
	}
}
