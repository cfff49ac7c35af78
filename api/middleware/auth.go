package middleware

import (
	"net/http"
	"strings"

	"github.com/bozorchi/shop-backend/api/responses"
	"github.com/bozorchi/shop-backend/internal/actors"
	pkgAuth "github.com/bozorchi/shop-backend/pkg/auth"
	"github.com/bozorchi/shop-backend/pkg/config"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/logger"
)

// Authenticate validates a bearer access token, resolves the actor behind
// it and seeds the request context. A missing token is UNAUTHORIZED while
// a bad or revoked one is FORBIDDEN.
func Authenticate(cfg config.JWTConfig, resolver *actors.Resolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid token"))
				return
			}

			actor, err := resolver.Resolve(r.Context(), claims)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"actor_id":   actor.ID().String(),
					"actor_kind": string(actor.Kind()),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
