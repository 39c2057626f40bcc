package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrResolutionNotFound is returned when no resolution matches id, organization and purpose
	ErrResolutionNotFound = errors.New("numbering resolution not found")

	// ErrResolutionExhausted is returned when the numbering window has no numbers left
	ErrResolutionExhausted = errors.New("numbering resolution exhausted")

	// ErrResolutionExpired is returned when the numbering window validity has ended
	ErrResolutionExpired = errors.New("numbering resolution expired")

	// ErrResolutionNotYetValid is returned before the numbering window validity starts
	ErrResolutionNotYetValid = errors.New("numbering resolution is not valid yet")

	// ErrNoOpenCashier is returned when a point of sale document finds no open cashier session
	ErrNoOpenCashier = errors.New("no open cashier session for branch")

	// ErrNegativeStockOnTransfer is returned when a transfer leaves the source branch negative
	ErrNegativeStockOnTransfer = errors.New("transfer leaves negative stock at source branch")

	// ErrRelationExists is returned when the source document already has a document of this type
	ErrRelationExists = errors.New("source document already has a related document of this type")
)

// NegativeStockError lists the products a transfer would leave below zero
type NegativeStockError struct {
	BranchID   uuid.UUID
	ProductIDs []uuid.UUID
}

func (e *NegativeStockError) Error() string {
	ids := make([]string, len(e.ProductIDs))
	for i, id := range e.ProductIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%v: branch %s, products %s", ErrNegativeStockOnTransfer, e.BranchID, strings.Join(ids, ", "))
}

// Is matches ErrNegativeStockOnTransfer
func (e *NegativeStockError) Is(target error) bool {
	return target == ErrNegativeStockOnTransfer
}
