package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Resolution is a legally granted numbering window
type Resolution struct {
	ID                        uuid.UUID `json:"id" db:"id"`
	OrganizationID            uuid.UUID `json:"organization_id" db:"organization_id"`
	Purpose                   string    `json:"purpose" db:"purpose"`
	Prefix                    string    `json:"prefix" db:"prefix"`
	CurrentCount              int64     `json:"current_count" db:"current_count"`
	RangeFrom                 int64     `json:"range_from" db:"range_from"`
	RangeTo                   int64     `json:"range_to" db:"range_to"`
	ValidFrom                 time.Time `json:"valid_from" db:"valid_from"`
	ValidTo                   time.Time `json:"valid_to" db:"valid_to"`
	ExternalCorrelationID     string    `json:"external_correlation_id" db:"external_correlation_id"`
	ExternalValidationEnabled bool      `json:"external_validation_enabled" db:"external_validation_enabled"`
}

// Allocation is the result of taking one number from a resolution
type Allocation struct {
	ResolutionID              uuid.UUID `json:"resolution_id"`
	Number                    int64     `json:"number"`
	LegalPrefix               string    `json:"legal_prefix"`
	ExternalCorrelationID     string    `json:"external_correlation_id"`
	ExternalValidationEnabled bool      `json:"external_validation_enabled"`
}

// Numeration renders the legal numeration printed on the document
func (a Allocation) Numeration() string {
	return fmt.Sprintf("%s%d", a.LegalPrefix, a.Number)
}
