package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/folio/folio/internal/domain"
)

// StockRepository applies mutations to the stock ledger.
// Every write is relative or set-based; quantities are never read back and rewritten.
type StockRepository struct {
	q Querier
}

// NewStockRepository creates a new stock repository
func NewStockRepository(q Querier) *StockRepository {
	return &StockRepository{q: q}
}

// Apply runs a mutation as a single upsert
func (r *StockRepository) Apply(ctx context.Context, m StockMutation) error {
	if m.Empty() {
		return nil
	}

	query, args := m.Upsert()
	if _, err := r.q.ExecContext(ctx, r.q.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to apply stock mutation: %w", err)
	}
	return nil
}

// ApplyTotalReset zeroes the branch and writes the absolute targets
func (r *StockRepository) ApplyTotalReset(ctx context.Context, reset TotalReset) error {
	for _, stmt := range reset.Statements() {
		if _, err := r.q.ExecContext(ctx, r.q.Rebind(stmt.Query), stmt.Args...); err != nil {
			return fmt.Errorf("failed to reset stock: %w", err)
		}
	}
	return nil
}

// ApplyTransfer moves stock between branches and fails with a
// *domain.NegativeStockError when the source ends up below zero
func (r *StockRepository) ApplyTransfer(ctx context.Context, t Transfer) error {
	if err := r.Apply(ctx, t.Source); err != nil {
		return err
	}
	if err := r.Apply(ctx, t.Destination); err != nil {
		return err
	}
	if t.Source.Empty() {
		return nil
	}

	query, args, err := sqlx.In(`
		SELECT product_id FROM stock_ledger
		WHERE branch_id = ? AND product_id IN (?) AND quantity < 0
		ORDER BY product_id
	`, t.Source.BranchID, t.Source.ProductIDs())
	if err != nil {
		return fmt.Errorf("failed to build transfer check: %w", err)
	}

	var negative []uuid.UUID
	if err := sqlx.SelectContext(ctx, r.q, &negative, r.q.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to check transfer stock: %w", err)
	}
	if len(negative) > 0 {
		return &domain.NegativeStockError{BranchID: t.Source.BranchID, ProductIDs: negative}
	}

	return nil
}

// Quantities reads the ledger of a branch for the given products; missing rows are omitted
func (r *StockRepository) Quantities(ctx context.Context, branchID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	result := make(map[uuid.UUID]int64, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT product_id, branch_id, quantity FROM stock_ledger
		WHERE branch_id = ? AND product_id IN (?)
	`, branchID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build stock query: %w", err)
	}

	var entries []domain.StockLedgerEntry
	if err := sqlx.SelectContext(ctx, r.q, &entries, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to read stock: %w", err)
	}
	for _, e := range entries {
		result[e.ProductID] = e.Quantity
	}

	return result, nil
}
