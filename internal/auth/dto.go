package auth

import (
	"github.com/bozorchi/shop-backend/internal/users"
)

// RegisterRequest starts a phone registration. Nothing is persisted until
// the verification code comes back.
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,min=3,max=50"`
	LastName  string `json:"last_name" validate:"required,min=3,max=50"`
	Phone     string `json:"phone" validate:"required,phone"`
	Password  string `json:"password" validate:"required,min=6,max=15"`
	Gender    string `json:"gender" validate:"omitempty,oneof=male female"`
}

// RegisterResponse acknowledges the pending registration. The code itself
// travels over SMS, not over this response.
type RegisterResponse struct {
	Phone     string `json:"phone"`
	ExpiresIn int    `json:"expires_in_seconds"`
}

// VerifyRequest completes a registration with the SMS code.
type VerifyRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	Code  string `json:"code" validate:"required,min=4,max=8"`
}

// LoginRequest carries phone credentials.
type LoginRequest struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest rotates the actor's password. Every outstanding
// token is revoked as a side effect.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=15"`
}

// TokenPair is the dual-token grant returned by every credential flow.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse bundles a token pair with the resolved account.
type AuthResponse struct {
	TokenPair
	User    *users.UserDTO `json:"user,omitempty"`
	IsAdmin bool           `json:"is_admin,omitempty"`
}

// pendingRegistration is the payload parked in redis between register and
// verify. The password is stored already hashed.
type pendingRegistration struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"password_hash"`
	Gender       string `json:"gender,omitempty"`
}
