package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrganizationKind changes validation rules for some organizations
type OrganizationKind string

const (
	OrganizationStandard OrganizationKind = "standard"
	OrganizationPharmacy OrganizationKind = "pharmacy"
)

// Organization is the tenant that owns branches, catalog, recipients and documents
type Organization struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Kind            OrganizationKind `json:"kind" db:"kind"`
	OAuthClientID   string           `json:"oauth_client_id" db:"oauth_client_id"`
	OAuthSecretHash string           `json:"-" db:"oauth_secret_hash"`
	IsActive        bool             `json:"is_active" db:"is_active"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`

	// Draft defaults
	DefaultBranchID     *uuid.UUID      `json:"default_branch_id,omitempty" db:"default_branch_id"`
	DefaultClientID     *uuid.UUID      `json:"default_client_id,omitempty" db:"default_client_id"`
	DefaultResolutionID *uuid.UUID      `json:"default_resolution_id,omitempty" db:"default_resolution_id"`
	DefaultPriceListID  *uuid.UUID      `json:"default_price_list_id,omitempty" db:"default_price_list_id"`
	TaxIncluded         bool            `json:"tax_included" db:"tax_included"`
	RetentionRate       decimal.Decimal `json:"retention_rate" db:"retention_rate"`
}

// IsPharmacy reports whether pharma line extensions are enforced
func (o *Organization) IsPharmacy() bool {
	return o.Kind == OrganizationPharmacy
}

// OAuthTokenRequest represents an OAuth token request
type OAuthTokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// OAuthTokenResponse represents an OAuth token response
type OAuthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
