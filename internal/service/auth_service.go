package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/folio/folio/internal/domain"
)

// TokenLifetime is how long an issued access token stays valid
const TokenLifetime = time.Hour

// OrganizationLookup finds organizations for authentication
type OrganizationLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	FindByOAuthClientID(ctx context.Context, clientID string) (*domain.Organization, error)
}

// AuthService handles authentication logic
type AuthService struct {
	organizations OrganizationLookup
	jwtSecret     []byte
}

// NewAuthService creates a new auth service
func NewAuthService(organizations OrganizationLookup, jwtSecret string) *AuthService {
	return &AuthService{
		organizations: organizations,
		jwtSecret:     []byte(jwtSecret),
	}
}

type organizationClaims struct {
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	jwt.RegisteredClaims
}

// GenerateToken generates a JWT token for the given organization
func (s *AuthService) GenerateToken(org *domain.Organization) (*domain.OAuthTokenResponse, error) {
	now := time.Now()
	claims := organizationClaims{
		OrganizationID:   org.ID.String(),
		OrganizationName: org.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &domain.OAuthTokenResponse{
		AccessToken: signedToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(TokenLifetime.Seconds()),
	}, nil
}

// ValidateToken validates a JWT token and returns the organization ID
func (s *AuthService) ValidateToken(tokenString string) (uuid.UUID, error) {
	var claims organizationClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredentials
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidCredentials
	}

	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	return orgID, nil
}

// Authenticate resolves a bearer token to an active organization
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*domain.Organization, error) {
	orgID, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	org, err := s.organizations.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrInvalidCredentials
	}
	if !org.IsActive {
		return nil, ErrOrganizationNotActive
	}
	return org, nil
}

// ValidateOAuthCredentials validates OAuth client credentials
func (s *AuthService) ValidateOAuthCredentials(ctx context.Context, clientID, clientSecret string) (*domain.Organization, error) {
	org, err := s.organizations.FindByOAuthClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if org == nil || !org.IsActive || org.OAuthSecretHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(org.OAuthSecretHash), []byte(clientSecret)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return org, nil
}

// HashSecret creates a bcrypt hash of a client secret
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateSecret generates a random client secret
func GenerateSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
