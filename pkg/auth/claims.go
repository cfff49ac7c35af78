package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPayload captures the data stamped into every issued token.
type TokenPayload struct {
	ActorID      uuid.UUID
	TokenVersion int
}

// TokenClaims is the typed claim set shared by access and refresh tokens.
// TokenVersion pins the token to the credential generation it was minted
// under; bumping the actor's version invalidates every outstanding token.
type TokenClaims struct {
	ActorID      uuid.UUID `json:"id"`
	TokenVersion int       `json:"version"`
	jwt.RegisteredClaims
}
