// Package authority talks to the external tax authority that validates documents
package authority

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/folio/folio/internal/domain"
)

// ErrDisabled is returned when validation is required but no authority is configured
var ErrDisabled = errors.New("tax authority integration is disabled")

// IsTimeout reports whether err means the authority did not answer in time,
// either through the client's own timeout or the caller's deadline
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Client is the external validation service
type Client interface {
	Submit(ctx context.Context, payload *Payload) (*SubmitResult, error)
	FetchStatus(ctx context.Context, validationID string) (*domain.Confirmation, error)
	SendNotification(ctx context.Context, confirmation *domain.Confirmation, email string) (bool, error)
}

// Payload is the document as sent for validation
type Payload struct {
	DocumentID     uuid.UUID            `json:"document_id"`
	DocumentType   domain.DocumentType  `json:"document_type"`
	Numeration     string               `json:"numeration"`
	TechnicalKey   string               `json:"technical_key"`
	IssuedAt       time.Time            `json:"issued_at"`
	RecipientTaxID string               `json:"recipient_tax_id,omitempty"`
	TaxIncluded    bool                 `json:"tax_included"`
	Totals         domain.Totals        `json:"totals"`
	Lines          []domain.LineItem    `json:"lines"`
	Payments       []domain.PaymentForm `json:"payments"`

	CorrectionReason   string `json:"correction_reason,omitempty"`
	OriginValidationID string `json:"origin_validation_id,omitempty"`
}

// SubmitResult is the authority's verdict. A rejected document carries the
// authority's reference id and message instead of a confirmation.
type SubmitResult struct {
	Success      bool                 `json:"success"`
	Confirmation *domain.Confirmation `json:"confirmation,omitempty"`
	ReferenceID  string               `json:"reference_id,omitempty"`
	Message      string               `json:"message,omitempty"`
}

// APIError is a non-success HTTP reply that is not a validation verdict
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authority error: %s (status %d)", e.Body, e.StatusCode)
}

// Disabled rejects every submission; used when no authority is configured
type Disabled struct{}

// Submit always fails with ErrDisabled
func (Disabled) Submit(context.Context, *Payload) (*SubmitResult, error) {
	return nil, ErrDisabled
}

// FetchStatus always fails with ErrDisabled
func (Disabled) FetchStatus(context.Context, string) (*domain.Confirmation, error) {
	return nil, ErrDisabled
}

// SendNotification never sends anything
func (Disabled) SendNotification(context.Context, *domain.Confirmation, string) (bool, error) {
	return false, nil
}
