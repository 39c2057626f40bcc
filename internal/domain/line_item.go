package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is one product line of a draft or an issued document.
// Money fields are integers in the smallest currency unit.
type LineItem struct {
	ID           int64           `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Name         string          `json:"name,omitempty"`
	Quantity     int64           `json:"quantity"` // negative encodes a refund/return line
	Price        int64           `json:"price"`
	Cost         int64           `json:"cost"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	StockAtAdd   int64           `json:"stock_at_add"`

	// SalePrice is propagated to the catalog by purchase-side documents with UpdatePrices set
	SalePrice *int64 `json:"sale_price,omitempty"`

	// Pharmacy organizations only
	Batch        *string    `json:"batch,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	RegistryCode *string    `json:"registry_code,omitempty"`
}

// PaymentForm is a (method, amount) pair of a document
type PaymentForm struct {
	Method string `json:"method"`
	Amount int64  `json:"amount"`
}

// Totals is always derived from line items and tax configuration
type Totals struct {
	Subtotal  int64 `json:"subtotal"`
	Tax       int64 `json:"total_tax"`
	Discount  int64 `json:"total_discount"`
	Retention int64 `json:"total_retention"`
	Refunds   int64 `json:"total_refunds"`
	Total     int64 `json:"total"`
}
