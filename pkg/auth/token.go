package auth

import (
	"fmt"
	"time"

	"github.com/bozorchi/shop-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintAccessToken issues a short-lived JWT signed with the access secret.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload TokenPayload) (string, error) {
	return mint(cfg.AccessSecret, cfg.Issuer, now, cfg.AccessTTL(), payload)
}

// MintRefreshToken issues a long-lived JWT signed with the refresh secret.
func MintRefreshToken(cfg config.JWTConfig, now time.Time, payload TokenPayload) (string, error) {
	return mint(cfg.RefreshSecret, cfg.Issuer, now, cfg.RefreshTTL(), payload)
}

func mint(secret, issuer string, now time.Time, ttl time.Duration, payload TokenPayload) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("jwt ttl must be positive")
	}
	if payload.ActorID == uuid.Nil {
		return "", fmt.Errorf("actor id is required")
	}
	if payload.TokenVersion < 1 {
		return "", fmt.Errorf("token version must be at least 1")
	}

	claims := TokenClaims{
		ActorID:      payload.ActorID,
		TokenVersion: payload.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates an access token string and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*TokenClaims, error) {
	return parse(cfg.AccessSecret, cfg.Issuer, tokenString)
}

// ParseRefreshToken validates a refresh token string and returns typed claims.
func ParseRefreshToken(cfg config.JWTConfig, tokenString string) (*TokenClaims, error) {
	return parse(cfg.RefreshSecret, cfg.Issuer, tokenString)
}

func parse(secret, issuer, tokenString string) (*TokenClaims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, err
	}

	if claims.ActorID == uuid.Nil {
		return nil, fmt.Errorf("token missing actor id")
	}
	if claims.TokenVersion < 1 {
		return nil, fmt.Errorf("token missing version")
	}

	return claims, nil
}
