package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/draft"
)

// DraftStore persists draft snapshots between edits
type DraftStore interface {
	Load(ctx context.Context, orgID uuid.UUID, docType domain.DocumentType) (*domain.Draft, error)
	Save(ctx context.Context, d *domain.Draft) error
	Delete(ctx context.Context, orgID uuid.UUID, docType domain.DocumentType) error
}

// StockLookup reads ledger quantities at a branch
type StockLookup interface {
	Quantities(ctx context.Context, branchID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// PriceListLookup reads the prices a price list assigns
type PriceListLookup interface {
	PriceListPrices(ctx context.Context, orgID, priceListID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// DraftService feeds reducer actions with the data they carry and snapshots the result
type DraftService struct {
	store        DraftStore
	stock        StockLookup
	prices       PriceListLookup
	documents    DocumentLookup
	posThreshold int64
}

// NewDraftService creates a new draft service
func NewDraftService(store DraftStore, stock StockLookup, prices PriceListLookup, documents DocumentLookup, posThreshold int64) *DraftService {
	return &DraftService{
		store:        store,
		stock:        stock,
		prices:       prices,
		documents:    documents,
		posThreshold: posThreshold,
	}
}

// Defaults returns the organizational defaults for a document type
func (s *DraftService) Defaults(org *domain.Organization, docType domain.DocumentType) (domain.DraftDefaults, error) {
	spec, ok := domain.SpecFor(docType)
	if !ok {
		return domain.DraftDefaults{}, preconditionError(ErrUnknownDocumentType)
	}

	defaults := domain.DraftDefaults{
		OrganizationID: org.ID,
		DocumentType:   docType,
		BranchID:       org.DefaultBranchID,
		PriceListID:    org.DefaultPriceListID,
		TaxIncluded:    org.TaxIncluded,
		RetentionRate:  org.RetentionRate,
		POSThreshold:   s.posThreshold,
	}
	if spec.Recipient == domain.RecipientClient {
		defaults.RecipientID = org.DefaultClientID
	}
	// the organization default resolution is the point of sale one
	if spec.ResolutionPurpose == domain.PurposePOS {
		defaults.ResolutionID = org.DefaultResolutionID
	}
	if spec.Stock == domain.StockAdjustment {
		defaults.AdjustmentMode = domain.AdjustmentTotal
	}
	return defaults, nil
}

// Current returns the stored draft, or a fresh one built from defaults
func (s *DraftService) Current(ctx context.Context, org *domain.Organization, docType domain.DocumentType) (domain.Draft, error) {
	defaults, err := s.Defaults(org, docType)
	if err != nil {
		return domain.Draft{}, err
	}

	stored, err := s.store.Load(ctx, org.ID, docType)
	if err != nil {
		return domain.Draft{}, err
	}
	if stored == nil {
		return draft.New(defaults), nil
	}
	return *stored, nil
}

// Apply runs one action against the current draft and stores the result
func (s *DraftService) Apply(ctx context.Context, org *domain.Organization, docType domain.DocumentType, action draft.Action) (domain.Draft, error) {
	current, err := s.Current(ctx, org, docType)
	if err != nil {
		return domain.Draft{}, err
	}

	action, err = s.enrich(ctx, org, current, action)
	if err != nil {
		return domain.Draft{}, err
	}

	next := draft.Reduce(current, action)
	if err := s.store.Save(ctx, &next); err != nil {
		return domain.Draft{}, err
	}
	// a draft switched to another type moves to that type's slot
	if next.DocumentType != docType {
		if err := s.store.Delete(ctx, org.ID, docType); err != nil {
			return domain.Draft{}, err
		}
	}
	return next, nil
}

// Discard resets the draft to organizational defaults. The recipient, resolution
// and price list last selected survive.
func (s *DraftService) Discard(ctx context.Context, org *domain.Organization, docType domain.DocumentType) (domain.Draft, error) {
	return s.Apply(ctx, org, docType, draft.Reset{})
}

// Duplicate replaces the draft of docType with a copy of an issued document
func (s *DraftService) Duplicate(ctx context.Context, org *domain.Organization, docType domain.DocumentType, documentID uuid.UUID) (domain.Draft, error) {
	defaults, err := s.Defaults(org, docType)
	if err != nil {
		return domain.Draft{}, err
	}

	doc, err := s.documents.FindByID(ctx, org.ID, documentID)
	if err != nil {
		return domain.Draft{}, err
	}
	if doc == nil {
		return domain.Draft{}, ErrNotFound
	}

	d := draft.Duplicate(doc, defaults)
	if d.DocumentType != docType {
		d = draft.Reduce(d, draft.SetDocumentType{DocumentType: docType})
	}
	if err := s.store.Save(ctx, &d); err != nil {
		return domain.Draft{}, err
	}
	return d, nil
}

// enrich fills in the lookups an action carries so the reducer stays pure
func (s *DraftService) enrich(ctx context.Context, org *domain.Organization, d domain.Draft, action draft.Action) (draft.Action, error) {
	switch a := action.(type) {
	case draft.AddLine:
		if d.BranchID != nil && a.Line.StockAtAdd == 0 {
			qty, err := s.stock.Quantities(ctx, *d.BranchID, []uuid.UUID{a.Line.ProductID})
			if err != nil {
				return nil, err
			}
			a.Line.StockAtAdd = qty[a.Line.ProductID]
		}
		return a, nil

	case draft.SetBranch:
		if a.Stock == nil {
			stock, err := s.stock.Quantities(ctx, a.BranchID, lineProducts(d.Lines))
			if err != nil {
				return nil, err
			}
			a.Stock = stock
		}
		return a, nil

	case draft.SetPriceList:
		if a.PriceListID != nil && a.Prices == nil {
			prices, err := s.prices.PriceListPrices(ctx, org.ID, *a.PriceListID, lineProducts(d.Lines))
			if err != nil {
				return nil, err
			}
			a.Prices = prices
		}
		return a, nil

	case draft.Reset:
		if a.Defaults.OrganizationID == uuid.Nil {
			defaults, err := s.Defaults(org, d.DocumentType)
			if err != nil {
				return nil, err
			}
			a.Defaults = defaults
		}
		return a, nil
	}
	return action, nil
}

func lineProducts(lines []domain.LineItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	return ids
}
