package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/repository"
)

// ProvisionRequest describes a new organization
type ProvisionRequest struct {
	Name       string
	Kind       domain.OrganizationKind
	ClientID   string
	BranchName string
}

// ProvisionResult carries the credentials of a provisioned organization.
// ClientSecret is only ever available here.
type ProvisionResult struct {
	Organization *domain.Organization
	BranchID     uuid.UUID
	ClientSecret string
}

// ProvisionService creates organizations with their first branch and credentials
type ProvisionService struct {
	db *sqlx.DB
}

// NewProvisionService creates a new provision service
func NewProvisionService(db *sqlx.DB) *ProvisionService {
	return &ProvisionService{db: db}
}

// Provision creates the organization, its main branch and OAuth client credentials
func (s *ProvisionService) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	if req.Name == "" || req.ClientID == "" {
		return nil, fmt.Errorf("name and client ID are required")
	}
	if req.Kind == "" {
		req.Kind = domain.OrganizationStandard
	}
	if req.BranchName == "" {
		req.BranchName = "Main"
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate client secret: %w", err)
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash client secret: %w", err)
	}

	org := &domain.Organization{
		ID:              uuid.New(),
		Name:            req.Name,
		Kind:            req.Kind,
		OAuthClientID:   req.ClientID,
		OAuthSecretHash: hash,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
		RetentionRate:   decimal.Zero,
	}
	branch := &domain.Branch{ID: uuid.New(), OrganizationID: org.ID, Name: req.BranchName}

	err = repository.WithTx(ctx, s.db, nil, func(tx *sqlx.Tx) error {
		orgs := repository.NewOrganizationRepository(tx)
		if err := orgs.Create(ctx, org); err != nil {
			return err
		}
		if err := repository.NewCatalogRepository(tx).CreateBranch(ctx, branch); err != nil {
			return err
		}
		org.DefaultBranchID = &branch.ID
		return orgs.UpdateDefaults(ctx, org)
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("client ID %q is already registered: %w", req.ClientID, err)
		}
		return nil, err
	}

	return &ProvisionResult{Organization: org, BranchID: branch.ID, ClientSecret: secret}, nil
}
