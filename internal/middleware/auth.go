package middleware

import (
	"context"
	"net/http"
	"strings"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/auth"
	"parcel-backend/internal/models"
	"parcel-backend/pkg/utils"
)

type contextKey string

const ActorKey contextKey = "actor"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate validates the bearer token and stores the caller in the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.actorFromRequest(r)
		if err != nil {
			utils.Error(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ActorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) actorFromRequest(r *http.Request) (models.Actor, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		// Browsers cannot set headers on websocket upgrades.
		if token := r.URL.Query().Get("token"); token != "" && isUpgrade(r) {
			authHeader = "Bearer " + token
		} else {
			return models.Actor{}, apperr.New(apperr.KindUnauthorized, "Authorization header required")
		}
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return models.Actor{}, apperr.New(apperr.KindUnauthorized, "Invalid authorization format")
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return models.Actor{}, apperr.New(apperr.KindUnauthorized, "Invalid or expired token")
	}
	return claims.Actor(), nil
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// GetActorFromContext extracts the authenticated caller
func GetActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(models.Actor)
	return actor, ok
}

// WithActor returns a context carrying actor. Used by tests and internal jobs.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// RequireRole ensures the authenticated caller has one of the allowed roles.
// It must run after Authenticate.
func RequireRole(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActorFromContext(r.Context())
			if !ok {
				utils.Error(w, apperr.New(apperr.KindUnauthorized, "Authentication required"))
				return
			}
			for _, role := range allowedRoles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.Error(w, apperr.Forbidden("Insufficient permissions"))
		})
	}
}
