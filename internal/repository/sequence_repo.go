package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/folio/folio/internal/domain"
)

// SequenceRepository allocates internal document numbers and legal resolution numbers.
// Both allocations are single increment statements; build it on the issuance transaction
// so a rolled back attempt never consumes a number.
type SequenceRepository struct {
	q Querier
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(q Querier) *SequenceRepository {
	return &SequenceRepository{q: q}
}

// NextInternalID increments and returns the per-organization counter of a document type
func (r *SequenceRepository) NextInternalID(ctx context.Context, orgID uuid.UUID, docType domain.DocumentType) (int64, error) {
	query := `
		INSERT INTO internal_sequences (organization_id, document_type, last_value)
		VALUES (?, ?, 1)
		ON CONFLICT (organization_id, document_type)
		DO UPDATE SET last_value = internal_sequences.last_value + 1
		RETURNING last_value
	`

	var next int64
	err := r.q.QueryRowxContext(ctx, r.q.Rebind(query), orgID, string(docType)).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate internal id: %w", err)
	}

	return next, nil
}

// AllocateResolutionNumber takes the next number of a numbering window.
// The increment happens first; the window checks run on the returned row, so a failed
// allocation must abort the enclosing transaction.
func (r *SequenceRepository) AllocateResolutionNumber(ctx context.Context, resolutionID, orgID uuid.UUID, purpose string, now time.Time) (*domain.Allocation, error) {
	query := `
		UPDATE resolutions
		SET current_count = current_count + 1
		WHERE id = ? AND organization_id = ? AND purpose = ?
		RETURNING current_count, range_to, valid_from, valid_to, prefix,
		          external_correlation_id, external_validation_enabled
	`

	var (
		count      int64
		rangeTo    int64
		validFrom  time.Time
		validTo    time.Time
		allocation = domain.Allocation{ResolutionID: resolutionID}
	)
	err := r.q.QueryRowxContext(ctx, r.q.Rebind(query), resolutionID, orgID, purpose).Scan(
		&count,
		&rangeTo,
		&validFrom,
		&validTo,
		&allocation.LegalPrefix,
		&allocation.ExternalCorrelationID,
		&allocation.ExternalValidationEnabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrResolutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to allocate resolution number: %w", err)
	}

	if count > rangeTo {
		return nil, domain.ErrResolutionExhausted
	}
	if now.After(validTo) {
		return nil, domain.ErrResolutionExpired
	}
	if now.Before(validFrom) {
		return nil, domain.ErrResolutionNotYetValid
	}

	allocation.Number = count - 1
	return &allocation, nil
}
