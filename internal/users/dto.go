package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/bozorchi/shop-backend/pkg/db/models"
	"github.com/bozorchi/shop-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID    `json:"id"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	Phone       string       `json:"phone"`
	Gender      enums.Gender `json:"gender,omitempty"`
	IsWorker    bool         `json:"is_worker"`
	LastLoginAt *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	FirstName    string
	LastName     string
	Phone        string
	PasswordHash string
	Gender       enums.Gender
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Gender:      u.Gender,
		IsWorker:    u.IsWorker,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Phone:        c.Phone,
		PasswordHash: c.PasswordHash,
		Gender:       c.Gender,
		TokenVersion: 1,
	}
}
