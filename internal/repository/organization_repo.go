package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/folio/folio/internal/domain"
)

// OrganizationRepository handles organization persistence
type OrganizationRepository struct {
	q Querier
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(q Querier) *OrganizationRepository {
	return &OrganizationRepository{q: q}
}

const organizationColumns = `
	id, name, kind, oauth_client_id, oauth_secret_hash, is_active, created_at,
	default_branch_id, default_client_id, default_resolution_id, default_price_list_id,
	tax_included, retention_rate
`

// FindByID finds an organization by ID
func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	return r.findOne(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = ?`, id)
}

// FindByOAuthClientID finds an organization by OAuth client ID
func (r *OrganizationRepository) FindByOAuthClientID(ctx context.Context, clientID string) (*domain.Organization, error) {
	return r.findOne(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE oauth_client_id = ?`, clientID)
}

func (r *OrganizationRepository) findOne(ctx context.Context, query string, arg any) (*domain.Organization, error) {
	var org domain.Organization
	err := sqlx.GetContext(ctx, r.q, &org, r.q.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	return &org, nil
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (` + organizationColumns + `)
		VALUES (:id, :name, :kind, :oauth_client_id, :oauth_secret_hash, :is_active, :created_at,
		        :default_branch_id, :default_client_id, :default_resolution_id, :default_price_list_id,
		        :tax_included, :retention_rate)
	`

	if _, err := sqlx.NamedExecContext(ctx, r.q, query, org); err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// UpdateDefaults stores the draft defaults of an organization
func (r *OrganizationRepository) UpdateDefaults(ctx context.Context, org *domain.Organization) error {
	query := `
		UPDATE organizations
		SET default_branch_id = :default_branch_id,
		    default_client_id = :default_client_id,
		    default_resolution_id = :default_resolution_id,
		    default_price_list_id = :default_price_list_id,
		    tax_included = :tax_included,
		    retention_rate = :retention_rate
		WHERE id = :id
	`

	result, err := sqlx.NamedExecContext(ctx, r.q, query, org)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("organization not found")
	}

	return nil
}
