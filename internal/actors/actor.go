package actors

import (
	"github.com/bozorchi/shop-backend/pkg/db/models"
	"github.com/google/uuid"
)

// Kind identifies which account table an actor was resolved from.
type Kind string

const (
	KindUser  Kind = "user"
	KindAdmin Kind = "admin"
)

// Actor is the authenticated principal behind a request. Exactly one of
// User or Admin is set.
type Actor struct {
	User  *models.User
	Admin *models.Admin
}

// Kind reports whether the actor is a user or the admin.
func (a *Actor) Kind() Kind {
	if a.Admin != nil {
		return KindAdmin
	}
	return KindUser
}

// ID returns the actor's account identifier.
func (a *Actor) ID() uuid.UUID {
	if a.Admin != nil {
		return a.Admin.ID
	}
	if a.User != nil {
		return a.User.ID
	}
	return uuid.Nil
}

// TokenVersion returns the current revocation counter for the account.
func (a *Actor) TokenVersion() int {
	if a.Admin != nil {
		return a.Admin.TokenVersion
	}
	if a.User != nil {
		return a.User.TokenVersion
	}
	return 0
}

// IsAdmin reports whether the actor is the admin account.
func (a *Actor) IsAdmin() bool {
	return a.Admin != nil
}

// IsWorker reports whether the actor holds staff capability. The admin
// always does; users do when flagged as workers.
func (a *Actor) IsWorker() bool {
	if a.Admin != nil {
		return true
	}
	return a.User != nil && a.User.IsWorker
}

// Phone returns the actor's phone number.
func (a *Actor) Phone() string {
	if a.Admin != nil {
		return a.Admin.Phone
	}
	if a.User != nil {
		return a.User.Phone
	}
	return ""
}
