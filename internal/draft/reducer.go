// Package draft holds the pure state machine a client drives while assembling a document.
// Nothing here performs I/O: data the reducer needs (stock, price lists) travels in the actions.
package draft

import (
	"slices"

	"github.com/google/uuid"

	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/totals"
)

// New returns an empty draft seeded from organizational defaults
func New(defaults domain.DraftDefaults) domain.Draft {
	d := domain.Draft{
		OrganizationID: defaults.OrganizationID,
		DocumentType:   defaults.DocumentType,
		BranchID:       defaults.BranchID,
		RecipientID:    defaults.RecipientID,
		ResolutionID:   defaults.ResolutionID,
		PriceListID:    defaults.PriceListID,
		TaxIncluded:    defaults.TaxIncluded,
		RetentionRate:  defaults.RetentionRate,
		AdjustmentMode: defaults.AdjustmentMode,
		POSThreshold:   defaults.POSThreshold,
		Lines:          []domain.LineItem{},
		Payments:       []domain.PaymentForm{},
	}
	refresh(&d, false)
	return d
}

// Duplicate starts a new draft carrying the lines and tax configuration of an issued document
func Duplicate(doc *domain.Document, defaults domain.DraftDefaults) domain.Draft {
	d := New(defaults)
	d.DocumentType = doc.DocumentType
	branchID := doc.BranchID
	d.BranchID = &branchID
	if doc.RecipientID != nil {
		recipientID := *doc.RecipientID
		d.RecipientID = &recipientID
	}
	d.TaxIncluded = doc.TaxIncluded
	d.RetentionRate = doc.RetentionRate
	d.Notes = doc.Notes

	for i, l := range doc.Lines {
		l.ID = int64(i + 1)
		d.Lines = append(d.Lines, l)
	}
	for _, p := range doc.Payments {
		d.Payments = append(d.Payments, domain.PaymentForm{Method: p.Method, Amount: p.Amount})
	}
	refresh(&d, true)
	return d
}

// Reduce applies a to d and returns the new draft. d itself is left untouched.
func Reduce(d domain.Draft, a Action) domain.Draft {
	d.Lines = slices.Clone(d.Lines)
	d.Payments = slices.Clone(d.Payments)
	if d.Lines == nil {
		d.Lines = []domain.LineItem{}
	}
	if d.Payments == nil {
		d.Payments = []domain.PaymentForm{}
	}

	pin := a.apply(&d)
	refresh(&d, pin)
	return d
}

// refresh re-derives totals; with pin set a lone payment form follows the new total
func refresh(d *domain.Draft, pin bool) {
	d.Totals = totals.Compute(d.Lines, totals.ConfigFor(*d))
	d.RequiresElectronic = d.DocumentType == domain.DocumentTypePOSInvoice &&
		totals.RequiresElectronicInvoice(d.Totals.Total, d.POSThreshold)

	if pin && len(d.Payments) == 1 {
		d.Payments[0].Amount = d.Totals.Total
	}
}

func nextLineID(lines []domain.LineItem) int64 {
	var max int64
	for _, l := range lines {
		if l.ID > max {
			max = l.ID
		}
	}
	return max + 1
}

func sameBatch(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func lineIndex(lines []domain.LineItem, id int64) int {
	return slices.IndexFunc(lines, func(l domain.LineItem) bool { return l.ID == id })
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
