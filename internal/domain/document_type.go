package domain

// DocumentType identifies one of the issuable document variants
type DocumentType string

const (
	DocumentTypePOSInvoice           DocumentType = "pos_invoice"
	DocumentTypeElectronicInvoice    DocumentType = "electronic_invoice"
	DocumentTypeSaleDeliveryNote     DocumentType = "sale_delivery_note"
	DocumentTypePurchaseOrder        DocumentType = "purchase_order"
	DocumentTypePurchaseDeliveryNote DocumentType = "purchase_delivery_note"
	DocumentTypePurchaseInvoice      DocumentType = "purchase_invoice"
	DocumentTypeCreditNote           DocumentType = "credit_note"
	DocumentTypeDebitNote            DocumentType = "debit_note"
	DocumentTypeInventoryAdjustment  DocumentType = "inventory_adjustment"
	DocumentTypeQuote                DocumentType = "quote"
)

// StockEffect describes how a document type moves the stock ledger
type StockEffect int

const (
	StockNone StockEffect = iota
	StockSubtract
	StockAdd
	StockCorrectionDelta // note quantities minus origin quantities
	StockAdjustment      // total reset, signed increments or transfer
)

// RecipientKind is the counterpart a document type is addressed to
type RecipientKind string

const (
	RecipientNone     RecipientKind = ""
	RecipientClient   RecipientKind = "client"
	RecipientSupplier RecipientKind = "supplier"
)

// Resolution purposes
const (
	PurposePOS               = "pos"
	PurposeElectronicInvoice = "electronic_invoice"
	PurposeCreditNote        = "credit_note"
	PurposeDebitNote         = "debit_note"
)

// DocumentSpec is the per-type configuration driving the shared issuance steps
type DocumentSpec struct {
	Type DocumentType
	Name string

	Stock StockEffect

	// ResolutionPurpose is empty when the type only gets an internal number
	ResolutionPurpose string

	// ExternalValidation applies when the allocated resolution is enabled for it
	ExternalValidation bool

	Recipient         RecipientKind
	RecipientOptional bool

	Payable         bool
	RequiresCashier bool
	Correction      bool
	PurchaseSide    bool

	// SourceType is the document type this one may be issued from (e.g. invoicing a delivery note)
	SourceType DocumentType
}

var documentSpecs = map[DocumentType]DocumentSpec{
	DocumentTypePOSInvoice: {
		Type:              DocumentTypePOSInvoice,
		Name:              "Point of sale invoice",
		Stock:             StockSubtract,
		ResolutionPurpose: PurposePOS,
		Recipient:         RecipientClient,
		RecipientOptional: true,
		Payable:           true,
		RequiresCashier:   true,
	},
	DocumentTypeElectronicInvoice: {
		Type:               DocumentTypeElectronicInvoice,
		Name:               "Electronic invoice",
		Stock:              StockSubtract,
		ResolutionPurpose:  PurposeElectronicInvoice,
		ExternalValidation: true,
		Recipient:          RecipientClient,
		Payable:            true,
		SourceType:         DocumentTypeSaleDeliveryNote,
	},
	DocumentTypeSaleDeliveryNote: {
		Type:      DocumentTypeSaleDeliveryNote,
		Name:      "Sale delivery note",
		Stock:     StockSubtract,
		Recipient: RecipientClient,
	},
	DocumentTypePurchaseOrder: {
		Type:         DocumentTypePurchaseOrder,
		Name:         "Purchase order",
		Stock:        StockNone,
		Recipient:    RecipientSupplier,
		PurchaseSide: true,
	},
	DocumentTypePurchaseDeliveryNote: {
		Type:         DocumentTypePurchaseDeliveryNote,
		Name:         "Purchase delivery note",
		Stock:        StockAdd,
		Recipient:    RecipientSupplier,
		PurchaseSide: true,
		SourceType:   DocumentTypePurchaseOrder,
	},
	DocumentTypePurchaseInvoice: {
		Type:         DocumentTypePurchaseInvoice,
		Name:         "Purchase invoice",
		Stock:        StockAdd,
		Recipient:    RecipientSupplier,
		Payable:      true,
		PurchaseSide: true,
		SourceType:   DocumentTypePurchaseDeliveryNote,
	},
	DocumentTypeCreditNote: {
		Type:               DocumentTypeCreditNote,
		Name:               "Credit note",
		Stock:              StockCorrectionDelta,
		ResolutionPurpose:  PurposeCreditNote,
		ExternalValidation: true,
		Recipient:          RecipientClient,
		Payable:            true,
		Correction:         true,
	},
	DocumentTypeDebitNote: {
		Type:               DocumentTypeDebitNote,
		Name:               "Debit note",
		Stock:              StockCorrectionDelta,
		ResolutionPurpose:  PurposeDebitNote,
		ExternalValidation: true,
		Recipient:          RecipientClient,
		Payable:            true,
		Correction:         true,
	},
	DocumentTypeInventoryAdjustment: {
		Type:  DocumentTypeInventoryAdjustment,
		Name:  "Inventory adjustment",
		Stock: StockAdjustment,
	},
	DocumentTypeQuote: {
		Type:      DocumentTypeQuote,
		Name:      "Quote",
		Stock:     StockNone,
		Recipient: RecipientClient,
	},
}

// SpecFor returns the configuration for a document type
func SpecFor(t DocumentType) (DocumentSpec, bool) {
	spec, ok := documentSpecs[t]
	return spec, ok
}

// Valid reports whether t is a known document type
func (t DocumentType) Valid() bool {
	_, ok := documentSpecs[t]
	return ok
}

// DocumentTypes lists every issuable document type in a stable order
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypePOSInvoice,
		DocumentTypeElectronicInvoice,
		DocumentTypeSaleDeliveryNote,
		DocumentTypePurchaseOrder,
		DocumentTypePurchaseDeliveryNote,
		DocumentTypePurchaseInvoice,
		DocumentTypeCreditNote,
		DocumentTypeDebitNote,
		DocumentTypeInventoryAdjustment,
		DocumentTypeQuote,
	}
}
