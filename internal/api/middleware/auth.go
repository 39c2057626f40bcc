package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/service"
)

// Context keys
type contextKey string

const (
	OrganizationKey contextKey = "organization"
	RequestIDKey    contextKey = "request_id"
)

// Authenticator resolves a bearer token to an organization
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Organization, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate validates the bearer token and loads its organization
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authentication")
			return
		}

		org, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrOrganizationNotActive) {
				writeError(w, http.StatusForbidden, "Organization account is not active")
				return
			}
			if errors.Is(err, service.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			RequestLogger(r.Context()).Error().Err(err).Msg("authentication failed")
			writeError(w, http.StatusInternalServerError, "Authentication failed")
			return
		}

		ctx := context.WithValue(r.Context(), OrganizationKey, org)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOrganization extracts the authenticated organization from context
func GetOrganization(ctx context.Context) *domain.Organization {
	if org, ok := ctx.Value(OrganizationKey).(*domain.Organization); ok {
		return org
	}
	return nil
}

// WithOrganization stores an organization in the context
func WithOrganization(ctx context.Context, org *domain.Organization) context.Context {
	return context.WithValue(ctx, OrganizationKey, org)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error": "` + message + `"}`))
}
