package draft

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/folio/folio/internal/domain"
)

// Action is a single draft mutation.
// apply mutates the draft in place and reports whether a lone payment form must be re-pinned.
type Action interface {
	Kind() string
	apply(d *domain.Draft) bool
}

// AddLine appends a line, merging quantity into an existing line of the same product
type AddLine struct {
	Line domain.LineItem `json:"line"`
}

func (AddLine) Kind() string { return "add_line" }

func (a AddLine) apply(d *domain.Draft) bool {
	for i, l := range d.Lines {
		if l.ProductID != a.Line.ProductID || !sameBatch(l.Batch, a.Line.Batch) {
			continue
		}
		d.Lines[i].Quantity += a.Line.Quantity
		if d.Lines[i].Quantity == 0 {
			d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
		}
		return true
	}

	line := a.Line
	line.ID = nextLineID(d.Lines)
	d.Lines = append(d.Lines, line)
	return true
}

// LinePatch holds the fields of a line to overwrite; nil fields are left as they are
type LinePatch struct {
	Name         *string          `json:"name,omitempty"`
	Quantity     *int64           `json:"quantity,omitempty"`
	Price        *int64           `json:"price,omitempty"`
	Cost         *int64           `json:"cost,omitempty"`
	TaxRate      *decimal.Decimal `json:"tax_rate,omitempty"`
	DiscountRate *decimal.Decimal `json:"discount_rate,omitempty"`
	SalePrice    *int64           `json:"sale_price,omitempty"`
	Batch        *string          `json:"batch,omitempty"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	RegistryCode *string          `json:"registry_code,omitempty"`
}

// UpdateLine patches the line with LineID
type UpdateLine struct {
	LineID int64     `json:"line_id"`
	Patch  LinePatch `json:"patch"`
}

func (UpdateLine) Kind() string { return "update_line" }

func (a UpdateLine) apply(d *domain.Draft) bool {
	i := lineIndex(d.Lines, a.LineID)
	if i < 0 {
		return false
	}

	l := &d.Lines[i]
	p := a.Patch
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Quantity != nil {
		l.Quantity = *p.Quantity
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Cost != nil {
		l.Cost = *p.Cost
	}
	if p.TaxRate != nil {
		l.TaxRate = *p.TaxRate
	}
	if p.DiscountRate != nil {
		l.DiscountRate = *p.DiscountRate
	}
	if p.SalePrice != nil {
		v := *p.SalePrice
		l.SalePrice = &v
	}
	if p.Batch != nil {
		v := *p.Batch
		l.Batch = &v
	}
	if p.ExpiresAt != nil {
		v := *p.ExpiresAt
		l.ExpiresAt = &v
	}
	if p.RegistryCode != nil {
		v := *p.RegistryCode
		l.RegistryCode = &v
	}
	return true
}

// RemoveLine drops the line with LineID
type RemoveLine struct {
	LineID int64 `json:"line_id"`
}

func (RemoveLine) Kind() string { return "remove_line" }

func (a RemoveLine) apply(d *domain.Draft) bool {
	i := lineIndex(d.Lines, a.LineID)
	if i < 0 {
		return false
	}
	d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
	return true
}

// SetRecipient selects the client or supplier
type SetRecipient struct {
	RecipientID *uuid.UUID `json:"recipient_id"`
	Email       string     `json:"email,omitempty"`
}

func (SetRecipient) Kind() string { return "set_recipient" }

func (a SetRecipient) apply(d *domain.Draft) bool {
	d.RecipientID = copyID(a.RecipientID)
	d.RecipientEmail = a.Email
	return false
}

// SetBranch selects the branch and re-snapshots every line's stock there
type SetBranch struct {
	BranchID uuid.UUID           `json:"branch_id"`
	Stock    map[uuid.UUID]int64 `json:"stock"`
}

func (SetBranch) Kind() string { return "set_branch" }

func (a SetBranch) apply(d *domain.Draft) bool {
	id := a.BranchID
	d.BranchID = &id
	if d.TransferBranchID != nil && *d.TransferBranchID == id {
		d.TransferBranchID = nil
	}
	for i := range d.Lines {
		d.Lines[i].StockAtAdd = a.Stock[d.Lines[i].ProductID]
	}
	return false
}

// SetPriceList selects a price list and re-prices every line it lists
type SetPriceList struct {
	PriceListID *uuid.UUID          `json:"price_list_id"`
	Prices      map[uuid.UUID]int64 `json:"prices"`
}

func (SetPriceList) Kind() string { return "set_price_list" }

func (a SetPriceList) apply(d *domain.Draft) bool {
	d.PriceListID = copyID(a.PriceListID)
	for i := range d.Lines {
		if price, ok := a.Prices[d.Lines[i].ProductID]; ok {
			d.Lines[i].Price = price
		}
	}
	return true
}

// SetGlobalDiscount overwrites the discount of every line
type SetGlobalDiscount struct {
	Rate decimal.Decimal `json:"rate"`
}

func (SetGlobalDiscount) Kind() string { return "set_global_discount" }

func (a SetGlobalDiscount) apply(d *domain.Draft) bool {
	for i := range d.Lines {
		d.Lines[i].DiscountRate = a.Rate
	}
	return true
}

// AddPayment appends a payment form. A first form with no amount takes the whole total.
type AddPayment struct {
	Payment domain.PaymentForm `json:"payment"`
}

func (AddPayment) Kind() string { return "add_payment" }

func (a AddPayment) apply(d *domain.Draft) bool {
	d.Payments = append(d.Payments, a.Payment)
	return len(d.Payments) == 1 && a.Payment.Amount == 0
}

// RemovePayment drops the payment form at Index; a remaining lone form is re-pinned
type RemovePayment struct {
	Index int `json:"index"`
}

func (RemovePayment) Kind() string { return "remove_payment" }

func (a RemovePayment) apply(d *domain.Draft) bool {
	if a.Index < 0 || a.Index >= len(d.Payments) {
		return false
	}
	d.Payments = append(d.Payments[:a.Index], d.Payments[a.Index+1:]...)
	return true
}

// UpdatePayment replaces the payment form at Index
type UpdatePayment struct {
	Index   int                `json:"index"`
	Payment domain.PaymentForm `json:"payment"`
}

func (UpdatePayment) Kind() string { return "update_payment" }

func (a UpdatePayment) apply(d *domain.Draft) bool {
	if a.Index >= 0 && a.Index < len(d.Payments) {
		d.Payments[a.Index] = a.Payment
	}
	return false
}

// SetRetention sets the retention percentage
type SetRetention struct {
	Rate decimal.Decimal `json:"rate"`
}

func (SetRetention) Kind() string { return "set_retention" }

func (a SetRetention) apply(d *domain.Draft) bool {
	d.RetentionRate = a.Rate
	return true
}

// SetTaxIncluded switches whether unit prices carry tax
type SetTaxIncluded struct {
	TaxIncluded bool `json:"tax_included"`
}

func (SetTaxIncluded) Kind() string { return "set_tax_included" }

func (a SetTaxIncluded) apply(d *domain.Draft) bool {
	d.TaxIncluded = a.TaxIncluded
	return true
}

// SetDocumentType changes the target type.
// A recipient of the wrong kind for the new type is cleared.
type SetDocumentType struct {
	DocumentType domain.DocumentType `json:"document_type"`
}

func (SetDocumentType) Kind() string { return "set_document_type" }

func (a SetDocumentType) apply(d *domain.Draft) bool {
	prev, _ := domain.SpecFor(d.DocumentType)
	next, ok := domain.SpecFor(a.DocumentType)
	if !ok {
		return false
	}
	if prev.Recipient != next.Recipient {
		d.RecipientID = nil
		d.RecipientEmail = ""
	}
	d.DocumentType = a.DocumentType
	return false
}

// SetCorrection sets the reason code and origin document of a correction note
type SetCorrection struct {
	Reason           string     `json:"reason"`
	OriginDocumentID *uuid.UUID `json:"origin_document_id"`
}

func (SetCorrection) Kind() string { return "set_correction" }

func (a SetCorrection) apply(d *domain.Draft) bool {
	d.CorrectionReason = a.Reason
	d.OriginDocumentID = copyID(a.OriginDocumentID)
	return false
}

// SetSourceDocument links the draft to the document it invoices
type SetSourceDocument struct {
	SourceDocumentID *uuid.UUID `json:"source_document_id"`
}

func (SetSourceDocument) Kind() string { return "set_source_document" }

func (a SetSourceDocument) apply(d *domain.Draft) bool {
	d.SourceDocumentID = copyID(a.SourceDocumentID)
	return false
}

// SetExternalReference sets the supplier's own document reference
type SetExternalReference struct {
	Reference string `json:"reference"`
}

func (SetExternalReference) Kind() string { return "set_external_reference" }

func (a SetExternalReference) apply(d *domain.Draft) bool {
	d.ExternalReference = a.Reference
	return false
}

// SetReceivedAt sets the date goods were received
type SetReceivedAt struct {
	ReceivedAt *time.Time `json:"received_at"`
}

func (SetReceivedAt) Kind() string { return "set_received_at" }

func (a SetReceivedAt) apply(d *domain.Draft) bool {
	if a.ReceivedAt == nil {
		d.ReceivedAt = nil
		return false
	}
	at := *a.ReceivedAt
	d.ReceivedAt = &at
	return false
}

// SetAdjustmentMode selects total or partial inventory adjustment
type SetAdjustmentMode struct {
	Mode domain.AdjustmentMode `json:"mode"`
}

func (SetAdjustmentMode) Kind() string { return "set_adjustment_mode" }

func (a SetAdjustmentMode) apply(d *domain.Draft) bool {
	d.AdjustmentMode = a.Mode
	return false
}

// SetTransferDestination turns an inventory adjustment into a transfer, or back with nil
type SetTransferDestination struct {
	BranchID *uuid.UUID `json:"branch_id"`
}

func (SetTransferDestination) Kind() string { return "set_transfer_destination" }

func (a SetTransferDestination) apply(d *domain.Draft) bool {
	if a.BranchID != nil && d.BranchID != nil && *a.BranchID == *d.BranchID {
		return false
	}
	d.TransferBranchID = copyID(a.BranchID)
	return false
}

// SetResolution selects the numbering resolution
type SetResolution struct {
	ResolutionID *uuid.UUID `json:"resolution_id"`
}

func (SetResolution) Kind() string { return "set_resolution" }

func (a SetResolution) apply(d *domain.Draft) bool {
	d.ResolutionID = copyID(a.ResolutionID)
	return false
}

// SetNotes sets free-form notes
type SetNotes struct {
	Notes string `json:"notes"`
}

func (SetNotes) Kind() string { return "set_notes" }

func (a SetNotes) apply(d *domain.Draft) bool {
	d.Notes = a.Notes
	return false
}

// SetUpdatePrices toggles catalog price propagation of purchase documents
type SetUpdatePrices struct {
	UpdatePrices bool `json:"update_prices"`
}

func (SetUpdatePrices) Kind() string { return "set_update_prices" }

func (a SetUpdatePrices) apply(d *domain.Draft) bool {
	d.UpdatePrices = a.UpdatePrices
	return false
}

// Reset discards lines, payments and notes and returns to organizational defaults.
// The recipient, resolution and price list last selected are kept.
type Reset struct {
	Defaults domain.DraftDefaults `json:"defaults"`
}

func (Reset) Kind() string { return "reset" }

func (a Reset) apply(d *domain.Draft) bool {
	defaults := a.Defaults
	if defaults.OrganizationID == uuid.Nil {
		defaults.OrganizationID = d.OrganizationID
	}
	if defaults.DocumentType == "" {
		defaults.DocumentType = d.DocumentType
	}
	if d.RecipientID != nil {
		defaults.RecipientID = d.RecipientID
	}
	if d.ResolutionID != nil {
		defaults.ResolutionID = d.ResolutionID
	}
	if d.PriceListID != nil {
		defaults.PriceListID = d.PriceListID
	}
	if defaults.POSThreshold == 0 {
		defaults.POSThreshold = d.POSThreshold
	}

	*d = New(defaults)
	return false
}
