package actors

import (
	"context"
	"errors"
	"fmt"

	"github.com/bozorchi/shop-backend/pkg/auth"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type adminSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
}

// Resolver maps token claims back to a live account and enforces the
// token version check.
type Resolver struct {
	users  userSource
	admins adminSource
}

// NewResolver constructs an actor resolver over the user and admin stores.
func NewResolver(users userSource, admins adminSource) (*Resolver, error) {
	if users == nil {
		return nil, fmt.Errorf("user source is required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin source is required")
	}
	return &Resolver{users: users, admins: admins}, nil
}

// Resolve loads the account behind the claims. A deleted account yields
// NOT_FOUND and a stale token version yields FORBIDDEN, so revocation
// works without any token state on the server.
func (r *Resolver) Resolve(ctx context.Context, claims *auth.TokenClaims) (*Actor, error) {
	if claims == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	actor, err := r.lookup(ctx, claims.ActorID)
	if err != nil {
		return nil, err
	}

	if actor.TokenVersion() != claims.TokenVersion {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "token revoked")
	}
	return actor, nil
}

func (r *Resolver) lookup(ctx context.Context, id uuid.UUID) (*Actor, error) {
	user, err := r.users.FindByID(ctx, id)
	if err == nil {
		return &Actor{User: user}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	admin, err := r.admins.FindByID(ctx, id)
	if err == nil {
		return &Actor{Admin: admin}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load admin")
	}

	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
}
