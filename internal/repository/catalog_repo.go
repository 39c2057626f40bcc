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

// CatalogRepository answers organization-scoped existence checks for branches,
// products, recipients and price lists
type CatalogRepository struct {
	q Querier
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(q Querier) *CatalogRepository {
	return &CatalogRepository{q: q}
}

// FindBranch finds a branch of an organization
func (r *CatalogRepository) FindBranch(ctx context.Context, orgID, branchID uuid.UUID) (*domain.Branch, error) {
	query := `SELECT id, organization_id, name FROM branches WHERE id = ? AND organization_id = ?`

	var branch domain.Branch
	err := sqlx.GetContext(ctx, r.q, &branch, r.q.Rebind(query), branchID, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find branch: %w", err)
	}

	return &branch, nil
}

// CreateBranch creates a branch
func (r *CatalogRepository) CreateBranch(ctx context.Context, branch *domain.Branch) error {
	query := `INSERT INTO branches (id, organization_id, name) VALUES (:id, :organization_id, :name)`

	if _, err := sqlx.NamedExecContext(ctx, r.q, query, branch); err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	return nil
}

// FindRecipient finds a client or supplier of an organization
func (r *CatalogRepository) FindRecipient(ctx context.Context, orgID, recipientID uuid.UUID) (*domain.Recipient, error) {
	query := `
		SELECT id, organization_id, kind, name, tax_id, email
		FROM recipients
		WHERE id = ? AND organization_id = ?
	`

	var recipient domain.Recipient
	err := sqlx.GetContext(ctx, r.q, &recipient, r.q.Rebind(query), recipientID, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipient: %w", err)
	}

	return &recipient, nil
}

// FindProducts returns the products of an organization among ids, keyed by id
func (r *CatalogRepository) FindProducts(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	result := make(map[uuid.UUID]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, organization_id, name, price, cost
		FROM products
		WHERE organization_id = ? AND id IN (?)
	`, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build product query: %w", err)
	}

	var products []domain.Product
	if err := sqlx.SelectContext(ctx, r.q, &products, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	for _, p := range products {
		result[p.ID] = p
	}

	return result, nil
}

// PriceUpdate is a catalog price change carried by a purchase document
type PriceUpdate struct {
	ProductID uuid.UUID
	Cost      int64
	SalePrice *int64
}

// UpdatePrices writes new costs, and sale prices where given, onto the catalog
func (r *CatalogRepository) UpdatePrices(ctx context.Context, orgID uuid.UUID, updates []PriceUpdate) error {
	query := r.q.Rebind(`
		UPDATE products
		SET cost = ?, price = COALESCE(?, price)
		WHERE id = ? AND organization_id = ?
	`)

	for _, u := range updates {
		if _, err := r.q.ExecContext(ctx, query, u.Cost, u.SalePrice, u.ProductID, orgID); err != nil {
			return fmt.Errorf("failed to update product prices: %w", err)
		}
	}
	return nil
}

// PriceListPrices returns the prices a price list assigns to products.
// Products the list does not price are omitted.
func (r *CatalogRepository) PriceListPrices(ctx context.Context, orgID, priceListID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	result := make(map[uuid.UUID]int64, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT i.product_id, i.price
		FROM price_list_items i
		JOIN price_lists l ON l.id = i.price_list_id
		WHERE l.organization_id = ? AND l.id = ? AND i.product_id IN (?)
	`, orgID, priceListID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build price list query: %w", err)
	}

	rows, err := r.q.QueryxContext(ctx, r.q.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read price list: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID uuid.UUID
			price     int64
		)
		if err := rows.Scan(&productID, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price list item: %w", err)
		}
		result[productID] = price
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price list items: %w", err)
	}

	return result, nil
}
