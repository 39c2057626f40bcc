package service

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidCredentials is returned when authentication fails
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrOrganizationNotActive is returned when the organization account is deactivated
	ErrOrganizationNotActive = errors.New("organization account is not active")
)

// Issuance preconditions. None of these has side effects.
var (
	ErrUnknownDocumentType      = errors.New("unknown document type")
	ErrBranchRequired           = errors.New("a branch must be selected")
	ErrBranchNotFound           = errors.New("branch not found")
	ErrTransferNotAllowed       = errors.New("only inventory adjustments can transfer stock")
	ErrInvalidTransferBranch    = errors.New("transfer destination must be another branch of the organization")
	ErrRecipientRequired        = errors.New("a recipient must be selected")
	ErrRecipientNotFound        = errors.New("recipient not found")
	ErrRecipientKindMismatch    = errors.New("recipient kind does not match the document type")
	ErrNoLines                  = errors.New("document has no lines")
	ErrZeroQuantity             = errors.New("line quantity cannot be zero")
	ErrProductsNotFound         = errors.New("products not found")
	ErrPaymentMismatch          = errors.New("payment forms do not add up to the document total")
	ErrCorrectionReasonRequired = errors.New("correction notes require a reason")
	ErrOriginRequired           = errors.New("correction notes require an origin document")
	ErrOriginNotFound           = errors.New("origin document not found")
	ErrOriginNotConfirmed       = errors.New("origin document is not externally confirmed")
	ErrSourceNotAllowed         = errors.New("document type cannot be issued from another document")
	ErrSourceDocumentNotFound   = errors.New("source document not found")
	ErrBatchRequired            = errors.New("batch and expiry date are required on purchase lines")
	ErrPOSThresholdExceeded     = errors.New("total exceeds the point of sale limit, issue an electronic invoice instead")
)

// ErrExternalValidation is wrapped by every failed authority exchange
var ErrExternalValidation = errors.New("external validation failed")

// ErrAuthorityTimeout is wrapped when the authority does not answer within its timeout
var ErrAuthorityTimeout = errors.New("tax authority did not respond in time")

// ErrorKind classifies an issuance failure
type ErrorKind string

const (
	KindPrecondition ErrorKind = "precondition"
	KindContention   ErrorKind = "contention"
	KindExternal     ErrorKind = "external"
	KindTimeout      ErrorKind = "timeout"
	KindInternal     ErrorKind = "internal"
)

// HTTPStatus returns the status code an error kind is rendered with
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindPrecondition:
		return http.StatusUnprocessableEntity
	case KindContention:
		return http.StatusConflict
	case KindExternal:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IssuanceError is the single failure type surfaced by the issuance service
type IssuanceError struct {
	Kind        ErrorKind
	Message     string
	ReferenceID string
	Missing     []string
	Err         error
}

func (e *IssuanceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *IssuanceError) Unwrap() error {
	return e.Err
}

// Is matches another IssuanceError of the same kind
func (e *IssuanceError) Is(target error) bool {
	t, ok := target.(*IssuanceError)
	return ok && t.Kind == e.Kind && t.Message == ""
}

// Retryable reports whether the same request may succeed when sent again
func (e *IssuanceError) Retryable() bool {
	return e.Kind == KindTimeout
}

func preconditionError(err error, missing ...string) *IssuanceError {
	return &IssuanceError{Kind: KindPrecondition, Message: err.Error(), Missing: missing, Err: err}
}
