package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/folio/folio/internal/api/middleware"
	"github.com/folio/folio/internal/domain"
)

// TokenIssuer exchanges client credentials for an access token
type TokenIssuer interface {
	ValidateOAuthCredentials(ctx context.Context, clientID, clientSecret string) (*domain.Organization, error)
	GenerateToken(org *domain.Organization) (*domain.OAuthTokenResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth TokenIssuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth TokenIssuer) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Token handles POST /api/v1/oauth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req domain.OAuthTokenRequest

	// Support both JSON and form-urlencoded
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid form data")
			return
		}
		req.GrantType = r.FormValue("grant_type")
		req.ClientID = r.FormValue("client_id")
		req.ClientSecret = r.FormValue("client_secret")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.GrantType != "client_credentials" {
		respondError(w, http.StatusBadRequest, "Only client_credentials grant type is supported")
		return
	}

	if req.ClientID == "" || req.ClientSecret == "" {
		respondError(w, http.StatusBadRequest, "client_id and client_secret are required")
		return
	}

	org, err := h.auth.ValidateOAuthCredentials(r.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	tokenResp, err := h.auth.GenerateToken(org)
	if err != nil {
		middleware.RequestLogger(r.Context()).Error().Err(err).Msg("failed to sign token")
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, tokenResp)
}
