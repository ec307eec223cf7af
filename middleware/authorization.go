package middleware

import (
	"context"
	"net/http"

	"github.com/pastagem/pastagem-api/utils"
	"go.uber.org/zap"
)

// RequireRole is a middleware that requires a specific role.
// It must run after the gate has attached a principal.
func RequireRole(role string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			principal := GetPrincipalFromContext(ctx)
			if principal == nil {
				logger.Error("principal not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !principal.HasRole(role) {
				logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("required_role", role),
					zap.Strings("roles", principal.Roles))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IsOwner reports whether the request principal is the resource owner,
// matching the owner's external identity against the token subject.
func IsOwner(ctx context.Context, ownerSubject string) bool {
	principal := GetPrincipalFromContext(ctx)
	if principal == nil || principal.Subject == "" {
		return false
	}
	return principal.Subject == ownerSubject
}
