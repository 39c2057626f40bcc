package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConfirmationStatus is the tax authority's verdict attached to a document
type ConfirmationStatus string

const (
	ConfirmationAccepted ConfirmationStatus = "accepted"
	ConfirmationPending  ConfirmationStatus = "pending"
)

// Confirmation is the external authority payload written onto a document
type Confirmation struct {
	ValidationID string             `json:"validation_id"`
	QRPayload    string             `json:"qr_payload,omitempty"`
	Status       ConfirmationStatus `json:"status"`
	ConfirmedAt  *time.Time         `json:"confirmed_at,omitempty"`
}

// Document is the immutable record produced by a successful issuance.
// Only Confirmation may change after creation.
type Document struct {
	ID             uuid.UUID    `json:"id"`
	OrganizationID uuid.UUID    `json:"organization_id"`
	DocumentType   DocumentType `json:"document_type"`
	InternalNumber int64        `json:"internal_number"`

	ResolutionID    *uuid.UUID `json:"resolution_id,omitempty"`
	LegalNumber     *int64     `json:"legal_number,omitempty"`
	LegalNumeration *string    `json:"legal_numeration,omitempty"`

	BranchID         uuid.UUID  `json:"branch_id"`
	TransferBranchID *uuid.UUID `json:"transfer_branch_id,omitempty"`
	RecipientID      *uuid.UUID `json:"recipient_id,omitempty"`
	CashierSessionID *uuid.UUID `json:"cashier_session_id,omitempty"`
	OriginDocumentID *uuid.UUID `json:"origin_document_id,omitempty"`
	SourceDocumentID *uuid.UUID `json:"source_document_id,omitempty"`

	CorrectionReason  string         `json:"correction_reason,omitempty"`
	ExternalReference string         `json:"external_reference,omitempty"`
	ReceivedAt        *time.Time     `json:"received_at,omitempty"`
	AdjustmentMode    AdjustmentMode `json:"adjustment_mode,omitempty"`
	Notes             string         `json:"notes,omitempty"`

	TaxIncluded   bool            `json:"tax_included"`
	RetentionRate decimal.Decimal `json:"retention_rate"`
	Totals        Totals          `json:"totals"`
	Lines         []LineItem      `json:"lines"`
	Payments      []PaymentForm   `json:"payments"`

	Confirmation  *Confirmation `json:"confirmation,omitempty"`
	CorrelationID string        `json:"correlation_id"`
	IssuedAt      time.Time     `json:"issued_at"`
}

// IsExternallyConfirmed reports whether the authority accepted the document
func (d *Document) IsExternallyConfirmed() bool {
	return d.Confirmation != nil && d.Confirmation.Status == ConfirmationAccepted
}

// IssuedDocument is the success result of an issuance
type IssuedDocument struct {
	DocumentID      uuid.UUID     `json:"document_id"`
	DocumentType    DocumentType  `json:"document_type"`
	InternalNumber  int64         `json:"internal_number"`
	LegalNumeration *string       `json:"legal_numeration,omitempty"`
	Confirmation    *Confirmation `json:"confirmation,omitempty"`
	Totals          Totals        `json:"totals"`
	CorrelationID   string        `json:"correlation_id"`
}

// IssuanceState tracks an issuance attempt through the orchestrator
type IssuanceState string

const (
	StateDraft                IssuanceState = "draft"
	StateValidating           IssuanceState = "validating"
	StatePersisting           IssuanceState = "persisting"
	StateExternallyConfirming IssuanceState = "externally_confirming"
	StateIssued               IssuanceState = "issued"
	StateAborted              IssuanceState = "aborted"
)

// IssueResponse is the discriminated result rendered to callers
type IssueResponse struct {
	Document      *IssuedDocument `json:"document,omitempty"`
	Error         string          `json:"error,omitempty"`
	Kind          string          `json:"kind,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	Missing       []string        `json:"missing,omitempty"`
	Retryable     bool            `json:"retryable,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// TotalsPreviewRequest asks for totals of an arbitrary set of lines
type TotalsPreviewRequest struct {
	Lines         []LineItem      `json:"lines"`
	TaxIncluded   bool            `json:"tax_included"`
	RetentionRate decimal.Decimal `json:"retention_rate"`
}
