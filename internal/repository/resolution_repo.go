package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/folio/folio/internal/domain"
)

// ResolutionRepository reads numbering windows
type ResolutionRepository struct {
	q Querier
}

// NewResolutionRepository creates a new resolution repository
func NewResolutionRepository(q Querier) *ResolutionRepository {
	return &ResolutionRepository{q: q}
}

const resolutionColumns = `
	id, organization_id, purpose, prefix, current_count, range_from, range_to,
	valid_from, valid_to, external_correlation_id, external_validation_enabled
`

// FindByID finds a resolution of an organization
func (r *ResolutionRepository) FindByID(ctx context.Context, id, orgID uuid.UUID) (*domain.Resolution, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions WHERE id = ? AND organization_id = ?`

	var res domain.Resolution
	err := sqlx.GetContext(ctx, r.q, &res, r.q.Rebind(query), id, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find resolution: %w", err)
	}

	return &res, nil
}

// FindActive returns the oldest window for a purpose that is valid at now and still has numbers
func (r *ResolutionRepository) FindActive(ctx context.Context, orgID uuid.UUID, purpose string, now time.Time) (*domain.Resolution, error) {
	resolutions, err := r.ListByPurpose(ctx, orgID, purpose)
	if err != nil {
		return nil, err
	}

	for i := range resolutions {
		res := &resolutions[i]
		if res.CurrentCount < res.RangeTo && !now.Before(res.ValidFrom) && !now.After(res.ValidTo) {
			return res, nil
		}
	}
	return nil, nil
}

// ListByPurpose lists an organization's windows for a purpose, oldest first
func (r *ResolutionRepository) ListByPurpose(ctx context.Context, orgID uuid.UUID, purpose string) ([]domain.Resolution, error) {
	query := `SELECT ` + resolutionColumns + `
		FROM resolutions
		WHERE organization_id = ? AND purpose = ?
		ORDER BY valid_from, range_from
	`

	var resolutions []domain.Resolution
	if err := sqlx.SelectContext(ctx, r.q, &resolutions, r.q.Rebind(query), orgID, purpose); err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}

	return resolutions, nil
}
