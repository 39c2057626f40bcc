package draft

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/internal/domain"
)

func testDefaults() domain.DraftDefaults {
	branch := uuid.New()
	client := uuid.New()
	return domain.DraftDefaults{
		OrganizationID: uuid.New(),
		DocumentType:   domain.DocumentTypePOSInvoice,
		BranchID:       &branch,
		RecipientID:    &client,
		TaxIncluded:    true,
		POSThreshold:   1000,
	}
}

func newLine(product uuid.UUID, qty, price int64) domain.LineItem {
	return domain.LineItem{
		ProductID: product,
		Quantity:  qty,
		Price:     price,
		TaxRate:   decimal.NewFromInt(19),
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	defaults := testDefaults()
	d := New(defaults)

	assert.Equal(t, defaults.OrganizationID, d.OrganizationID)
	assert.Equal(t, defaults.BranchID, d.BranchID)
	assert.Equal(t, defaults.RecipientID, d.RecipientID)
	assert.True(t, d.TaxIncluded)
	assert.Empty(t, d.Lines)
	assert.Empty(t, d.Payments)
	assert.Equal(t, domain.Totals{}, d.Totals)
}

func TestReduce_AddLineMergesSameProduct(t *testing.T) {
	product := uuid.New()
	d := New(testDefaults())

	d = Reduce(d, AddLine{Line: newLine(product, 1, 119)})
	d = Reduce(d, AddLine{Line: newLine(product, 2, 119)})
	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 1, 238)})

	require.Len(t, d.Lines, 2)
	assert.Equal(t, int64(3), d.Lines[0].Quantity)
	assert.Equal(t, int64(1), d.Lines[0].ID)
	assert.Equal(t, int64(2), d.Lines[1].ID)
	assert.Equal(t, int64(595), d.Totals.Total)
}

func TestReduce_AddLineMergingToZeroRemovesLine(t *testing.T) {
	product := uuid.New()
	d := Reduce(New(testDefaults()), AddLine{Line: newLine(product, 2, 100)})
	d = Reduce(d, AddLine{Line: newLine(product, -2, 100)})

	assert.Empty(t, d.Lines)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	d := Reduce(New(testDefaults()), AddLine{Line: newLine(uuid.New(), 1, 100)})
	before := d.Lines[0].Quantity

	qty := int64(9)
	_ = Reduce(d, UpdateLine{LineID: d.Lines[0].ID, Patch: LinePatch{Quantity: &qty}})

	assert.Equal(t, before, d.Lines[0].Quantity)
}

func TestReduce_UpdateAndRemoveLine(t *testing.T) {
	d := New(testDefaults())
	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 1, 119)})
	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 1, 119)})

	price := int64(238)
	discount := decimal.NewFromInt(50)
	d = Reduce(d, UpdateLine{LineID: 2, Patch: LinePatch{Price: &price, DiscountRate: &discount}})
	assert.Equal(t, int64(238), d.Lines[1].Price)
	assert.True(t, d.Lines[1].DiscountRate.Equal(discount))
	assert.Equal(t, int64(1), d.Lines[0].Quantity)

	d = Reduce(d, RemoveLine{LineID: 1})
	require.Len(t, d.Lines, 1)
	assert.Equal(t, int64(2), d.Lines[0].ID)

	unchanged := Reduce(d, RemoveLine{LineID: 42})
	assert.Equal(t, d.Lines, unchanged.Lines)
}

func TestReduce_SinglePaymentPinnedToTotal(t *testing.T) {
	d := New(testDefaults())
	d = Reduce(d, AddPayment{Payment: domain.PaymentForm{Method: "cash"}})
	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 1, 119)})
	require.Len(t, d.Payments, 1)
	assert.Equal(t, int64(119), d.Payments[0].Amount)

	d = Reduce(d, SetRetention{Rate: decimal.NewFromInt(10)})
	assert.Equal(t, int64(109), d.Totals.Total)
	assert.Equal(t, int64(109), d.Payments[0].Amount)

	d = Reduce(d, SetTaxIncluded{TaxIncluded: false})
	assert.Equal(t, d.Totals.Total, d.Payments[0].Amount)
}

func TestReduce_MultiplePaymentsLeftAlone(t *testing.T) {
	d := New(testDefaults())
	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 1, 119)})
	d = Reduce(d, AddPayment{Payment: domain.PaymentForm{Method: "cash", Amount: 50}})
	d = Reduce(d, AddPayment{Payment: domain.PaymentForm{Method: "card", Amount: 69}})

	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 1, 119)})
	assert.Equal(t, int64(238), d.Totals.Total)
	assert.Equal(t, int64(50), d.Payments[0].Amount)
	assert.Equal(t, int64(69), d.Payments[1].Amount)

	d = Reduce(d, RemovePayment{Index: 0})
	require.Len(t, d.Payments, 1)
	assert.Equal(t, "card", d.Payments[0].Method)
	assert.Equal(t, int64(238), d.Payments[0].Amount)

	d = Reduce(d, UpdatePayment{Index: 0, Payment: domain.PaymentForm{Method: "transfer", Amount: 200}})
	assert.Equal(t, domain.PaymentForm{Method: "transfer", Amount: 200}, d.Payments[0])
}

func TestReduce_SetBranchResnapshotsStock(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	d := New(testDefaults())
	d = Reduce(d, AddLine{Line: newLine(a, 1, 100)})
	d = Reduce(d, AddLine{Line: newLine(b, 1, 100)})

	branch := uuid.New()
	d = Reduce(d, SetBranch{BranchID: branch, Stock: map[uuid.UUID]int64{a: 12}})

	assert.Equal(t, branch, *d.BranchID)
	assert.Equal(t, int64(12), d.Lines[0].StockAtAdd)
	assert.Equal(t, int64(0), d.Lines[1].StockAtAdd)
}

func TestReduce_SetPriceListReprices(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	d := New(testDefaults())
	d = Reduce(d, AddPayment{Payment: domain.PaymentForm{Method: "cash"}})
	d = Reduce(d, AddLine{Line: newLine(a, 1, 119)})
	d = Reduce(d, AddLine{Line: newLine(b, 1, 119)})

	list := uuid.New()
	d = Reduce(d, SetPriceList{PriceListID: &list, Prices: map[uuid.UUID]int64{a: 238}})

	assert.Equal(t, list, *d.PriceListID)
	assert.Equal(t, int64(238), d.Lines[0].Price)
	assert.Equal(t, int64(119), d.Lines[1].Price)
	assert.Equal(t, int64(357), d.Payments[0].Amount)
}

func TestReduce_SetGlobalDiscount(t *testing.T) {
	d := New(testDefaults())
	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 1, 119)})
	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 1, 119)})

	d = Reduce(d, SetGlobalDiscount{Rate: decimal.NewFromInt(10)})

	for _, l := range d.Lines {
		assert.True(t, l.DiscountRate.Equal(decimal.NewFromInt(10)))
	}
	assert.Equal(t, int64(20), d.Totals.Discount)
}

func TestReduce_SetDocumentTypeClearsMismatchedRecipient(t *testing.T) {
	d := New(testDefaults())
	require.NotNil(t, d.RecipientID)

	d = Reduce(d, SetDocumentType{DocumentType: domain.DocumentTypeElectronicInvoice})
	assert.NotNil(t, d.RecipientID)

	d = Reduce(d, SetDocumentType{DocumentType: domain.DocumentTypePurchaseInvoice})
	assert.Nil(t, d.RecipientID)
	assert.Equal(t, domain.DocumentTypePurchaseInvoice, d.DocumentType)

	same := Reduce(d, SetDocumentType{DocumentType: "bogus"})
	assert.Equal(t, domain.DocumentTypePurchaseInvoice, same.DocumentType)
}

func TestReduce_TransferDestinationMustDifferFromBranch(t *testing.T) {
	d := New(testDefaults())
	d = Reduce(d, SetTransferDestination{BranchID: d.BranchID})
	assert.Nil(t, d.TransferBranchID)

	other := uuid.New()
	d = Reduce(d, SetTransferDestination{BranchID: &other})
	assert.Equal(t, other, *d.TransferBranchID)

	d = Reduce(d, SetBranch{BranchID: other})
	assert.Nil(t, d.TransferBranchID)
}

func TestReduce_DocumentFields(t *testing.T) {
	origin := uuid.New()
	source := uuid.New()
	resolution := uuid.New()
	received := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	d := New(testDefaults())
	d = Reduce(d, SetCorrection{Reason: "2", OriginDocumentID: &origin})
	d = Reduce(d, SetSourceDocument{SourceDocumentID: &source})
	d = Reduce(d, SetExternalReference{Reference: "SUP-991"})
	d = Reduce(d, SetReceivedAt{ReceivedAt: &received})
	d = Reduce(d, SetAdjustmentMode{Mode: domain.AdjustmentPartial})
	d = Reduce(d, SetResolution{ResolutionID: &resolution})
	d = Reduce(d, SetNotes{Notes: "fragile"})
	d = Reduce(d, SetUpdatePrices{UpdatePrices: true})
	d = Reduce(d, SetRecipient{RecipientID: nil, Email: "a@b.co"})

	assert.Equal(t, "2", d.CorrectionReason)
	assert.Equal(t, origin, *d.OriginDocumentID)
	assert.Equal(t, source, *d.SourceDocumentID)
	assert.Equal(t, "SUP-991", d.ExternalReference)
	assert.True(t, received.Equal(*d.ReceivedAt))
	assert.Equal(t, domain.AdjustmentPartial, d.AdjustmentMode)
	assert.Equal(t, resolution, *d.ResolutionID)
	assert.Equal(t, "fragile", d.Notes)
	assert.True(t, d.UpdatePrices)
	assert.Nil(t, d.RecipientID)
	assert.Equal(t, "a@b.co", d.RecipientEmail)
}

func TestReduce_ResetKeepsStickyPreferences(t *testing.T) {
	defaults := testDefaults()
	d := New(defaults)

	client := uuid.New()
	resolution := uuid.New()
	list := uuid.New()
	d = Reduce(d, SetRecipient{RecipientID: &client})
	d = Reduce(d, SetResolution{ResolutionID: &resolution})
	d = Reduce(d, SetPriceList{PriceListID: &list})
	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 2, 119)})
	d = Reduce(d, AddPayment{Payment: domain.PaymentForm{Method: "cash"}})
	d = Reduce(d, SetNotes{Notes: "to discard"})

	once := Reduce(d, Reset{Defaults: defaults})
	twice := Reduce(once, Reset{Defaults: defaults})

	assert.Empty(t, once.Lines)
	assert.Empty(t, once.Payments)
	assert.Empty(t, once.Notes)
	assert.Equal(t, domain.Totals{}, once.Totals)
	assert.Equal(t, defaults.BranchID, once.BranchID)
	assert.Equal(t, client, *once.RecipientID)
	assert.Equal(t, resolution, *once.ResolutionID)
	assert.Equal(t, list, *once.PriceListID)
	assert.Equal(t, once, twice)
}

func TestReduce_RequiresElectronicAboveThreshold(t *testing.T) {
	d := New(testDefaults())
	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 1, 1000)})
	assert.False(t, d.RequiresElectronic)

	d = Reduce(d, AddLine{Line: newLine(uuid.New(), 1, 1)})
	assert.True(t, d.RequiresElectronic)

	d = Reduce(d, SetDocumentType{DocumentType: domain.DocumentTypeElectronicInvoice})
	assert.False(t, d.RequiresElectronic)
}

func TestDuplicate(t *testing.T) {
	recipient := uuid.New()
	doc := &domain.Document{
		DocumentType: domain.DocumentTypeSaleDeliveryNote,
		BranchID:     uuid.New(),
		RecipientID:  &recipient,
		TaxIncluded:  true,
		Notes:        "repeat order",
		Lines: []domain.LineItem{
			{ID: 7, ProductID: uuid.New(), Quantity: 1, Price: 119, TaxRate: decimal.NewFromInt(19)},
			{ID: 9, ProductID: uuid.New(), Quantity: 2, Price: 119, TaxRate: decimal.NewFromInt(19)},
		},
		Payments: []domain.PaymentForm{{Method: "cash", Amount: 1}},
	}

	d := Duplicate(doc, testDefaults())

	assert.Equal(t, domain.DocumentTypeSaleDeliveryNote, d.DocumentType)
	assert.Equal(t, doc.BranchID, *d.BranchID)
	assert.Equal(t, recipient, *d.RecipientID)
	assert.Equal(t, "repeat order", d.Notes)
	require.Len(t, d.Lines, 2)
	assert.Equal(t, int64(1), d.Lines[0].ID)
	assert.Equal(t, int64(2), d.Lines[1].ID)
	assert.Equal(t, int64(357), d.Totals.Total)
	assert.Equal(t, int64(357), d.Payments[0].Amount)
	assert.Nil(t, d.OriginDocumentID)
}
