package handlers

import (
	"net/http"

	"github.com/pastagem/pastagem-api/middleware"
	"github.com/pastagem/pastagem-api/utils"
)

// CurrentUserResponse is the response body for GET /api/me
type CurrentUserResponse struct {
	Sub      string                 `json:"sub"`
	Email    string                 `json:"email,omitempty"`
	Username string                 `json:"username,omitempty"`
	Roles    []string               `json:"roles"`
	Claims   map[string]interface{} `json:"claims"`
}

// GetCurrentUserHandler returns the authenticated principal and its verified claims
func GetCurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		_ = utils.WriteOK(w, CurrentUserResponse{
			Sub:      principal.Subject,
			Email:    principal.Email(),
			Username: principal.Username(),
			Roles:    principal.Roles,
			Claims:   principal.Claims,
		})
	}
}
