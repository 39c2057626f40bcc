package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentMode selects how an inventory adjustment touches the ledger
type AdjustmentMode string

const (
	// AdjustmentTotal sets listed products to absolute quantities and zeroes the rest of the branch
	AdjustmentTotal AdjustmentMode = "total"
	// AdjustmentPartial applies each line quantity as a signed increment
	AdjustmentPartial AdjustmentMode = "partial"
)

// Draft is the mutable, client-owned representation of a document being assembled.
// Totals is kept for display only and is recomputed at issuance.
type Draft struct {
	OrganizationID uuid.UUID    `json:"organization_id"`
	DocumentType   DocumentType `json:"document_type"`

	BranchID         *uuid.UUID `json:"branch_id,omitempty"`
	TransferBranchID *uuid.UUID `json:"transfer_branch_id,omitempty"`
	RecipientID      *uuid.UUID `json:"recipient_id,omitempty"`
	RecipientEmail   string     `json:"recipient_email,omitempty"`
	PriceListID      *uuid.UUID `json:"price_list_id,omitempty"`
	ResolutionID     *uuid.UUID `json:"resolution_id,omitempty"`

	Lines    []LineItem    `json:"lines"`
	Payments []PaymentForm `json:"payments"`
	Notes    string        `json:"notes,omitempty"`

	TaxIncluded   bool            `json:"tax_included"`
	RetentionRate decimal.Decimal `json:"retention_rate"`

	CorrectionReason  string         `json:"correction_reason,omitempty"`
	OriginDocumentID  *uuid.UUID     `json:"origin_document_id,omitempty"`
	SourceDocumentID  *uuid.UUID     `json:"source_document_id,omitempty"`
	ExternalReference string         `json:"external_reference,omitempty"`
	ReceivedAt        *time.Time     `json:"received_at,omitempty"`
	AdjustmentMode    AdjustmentMode `json:"adjustment_mode,omitempty"`
	UpdatePrices      bool           `json:"update_prices"`

	CorrelationID string `json:"correlation_id,omitempty"`

	Totals             Totals `json:"totals"`
	POSThreshold       int64  `json:"pos_threshold,omitempty"`
	RequiresElectronic bool   `json:"requires_electronic"`
}

// DraftDefaults are the organizational defaults a fresh or reset draft starts from.
// Recipient, resolution and price list are sticky: a reset keeps the last selection.
type DraftDefaults struct {
	OrganizationID uuid.UUID       `json:"organization_id"`
	DocumentType   DocumentType    `json:"document_type"`
	BranchID       *uuid.UUID      `json:"branch_id,omitempty"`
	RecipientID    *uuid.UUID      `json:"recipient_id,omitempty"`
	ResolutionID   *uuid.UUID      `json:"resolution_id,omitempty"`
	PriceListID    *uuid.UUID      `json:"price_list_id,omitempty"`
	TaxIncluded    bool            `json:"tax_included"`
	RetentionRate  decimal.Decimal `json:"retention_rate"`
	AdjustmentMode AdjustmentMode  `json:"adjustment_mode,omitempty"`

	// POSThreshold is the total above which a POS sale must become an electronic invoice
	POSThreshold int64 `json:"pos_threshold"`
}
