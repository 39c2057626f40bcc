package handlers

import (
	"net/http"

	"github.com/folio/folio/internal/domain"
)

// DocumentTypeView describes how a document type is issued
type DocumentTypeView struct {
	Type               domain.DocumentType  `json:"type"`
	Name               string               `json:"name"`
	Stock              string               `json:"stock"`
	ResolutionPurpose  string               `json:"resolution_purpose,omitempty"`
	ExternalValidation bool                 `json:"external_validation"`
	Recipient          domain.RecipientKind `json:"recipient,omitempty"`
	RecipientOptional  bool                 `json:"recipient_optional"`
	Payable            bool                 `json:"payable"`
	RequiresCashier    bool                 `json:"requires_cashier"`
	Correction         bool                 `json:"correction"`
	SourceType         domain.DocumentType  `json:"source_type,omitempty"`
}

var stockEffectNames = map[domain.StockEffect]string{
	domain.StockNone:            "none",
	domain.StockSubtract:        "subtract",
	domain.StockAdd:             "add",
	domain.StockCorrectionDelta: "correction_delta",
	domain.StockAdjustment:      "adjustment",
}

// ListDocumentTypes handles GET /api/v1/document-types
func ListDocumentTypes(w http.ResponseWriter, r *http.Request) {
	types := domain.DocumentTypes()
	views := make([]DocumentTypeView, 0, len(types))
	for _, t := range types {
		spec, _ := domain.SpecFor(t)
		views = append(views, DocumentTypeView{
			Type:               spec.Type,
			Name:               spec.Name,
			Stock:              stockEffectNames[spec.Stock],
			ResolutionPurpose:  spec.ResolutionPurpose,
			ExternalValidation: spec.ExternalValidation,
			Recipient:          spec.Recipient,
			RecipientOptional:  spec.RecipientOptional,
			Payable:            spec.Payable,
			RequiresCashier:    spec.RequiresCashier,
			Correction:         spec.Correction,
			SourceType:         spec.SourceType,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"document_types": views,
	})
}
