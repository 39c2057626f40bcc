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

// CashierRepository looks up cashier sessions
type CashierRepository struct {
	q Querier
}

// NewCashierRepository creates a new cashier repository
func NewCashierRepository(q Querier) *CashierRepository {
	return &CashierRepository{q: q}
}

// FindOpenSession returns the most recently opened session of a branch that is not closed.
// It is queried fresh on every issuance; nothing caches the open session.
func (r *CashierRepository) FindOpenSession(ctx context.Context, branchID uuid.UUID) (*domain.CashierSession, error) {
	query := `
		SELECT id, branch_id, opened_at, closed_at
		FROM cashier_sessions
		WHERE branch_id = ? AND closed_at IS NULL
		ORDER BY opened_at DESC
		LIMIT 1
	`

	var session domain.CashierSession
	err := sqlx.GetContext(ctx, r.q, &session, r.q.Rebind(query), branchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open cashier session: %w", err)
	}

	return &session, nil
}

// Open starts a new session at a branch
func (r *CashierRepository) Open(ctx context.Context, branchID uuid.UUID, at time.Time) (*domain.CashierSession, error) {
	session := domain.CashierSession{ID: uuid.New(), BranchID: branchID, OpenedAt: at.UTC()}

	query := `INSERT INTO cashier_sessions (id, branch_id, opened_at) VALUES (?, ?, ?)`
	if _, err := r.q.ExecContext(ctx, r.q.Rebind(query), session.ID, session.BranchID, session.OpenedAt); err != nil {
		return nil, fmt.Errorf("failed to open cashier session: %w", err)
	}

	return &session, nil
}

// Close ends a session; closing an already closed session is a no-op
func (r *CashierRepository) Close(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	query := `UPDATE cashier_sessions SET closed_at = ? WHERE id = ? AND closed_at IS NULL`
	if _, err := r.q.ExecContext(ctx, r.q.Rebind(query), at.UTC(), sessionID); err != nil {
		return fmt.Errorf("failed to close cashier session: %w", err)
	}
	return nil
}
