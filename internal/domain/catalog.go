package domain

import (
	"time"

	"github.com/google/uuid"
)

// Branch is a physical location holding its own stock
type Branch struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
}

// Product is a catalog entry
type Product struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Price          int64     `json:"price" db:"price"`
	Cost           int64     `json:"cost" db:"cost"`
}

// Recipient is a client or supplier a document is addressed to
type Recipient struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	OrganizationID uuid.UUID     `json:"organization_id" db:"organization_id"`
	Kind           RecipientKind `json:"kind" db:"kind"`
	Name           string        `json:"name" db:"name"`
	TaxID          string        `json:"tax_id" db:"tax_id"`
	Email          *string       `json:"email,omitempty" db:"email"`
}

// CashierSession is a cash register session at a branch; open while ClosedAt is nil
type CashierSession struct {
	ID       uuid.UUID  `json:"id" db:"id"`
	BranchID uuid.UUID  `json:"branch_id" db:"branch_id"`
	OpenedAt time.Time  `json:"opened_at" db:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty" db:"closed_at"`
}

// StockLedgerEntry is the authoritative quantity of a product at a branch
type StockLedgerEntry struct {
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	BranchID  uuid.UUID `json:"branch_id" db:"branch_id"`
	Quantity  int64     `json:"quantity" db:"quantity"`
}
