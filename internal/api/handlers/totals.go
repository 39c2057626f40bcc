package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/totals"
)

// TotalsResponse is a totals preview
type TotalsResponse struct {
	Totals             domain.Totals `json:"totals"`
	Payments           int64         `json:"payments"`
	RequiresElectronic bool          `json:"requires_electronic"`
}

// TotalsHandler previews totals without touching any store
type TotalsHandler struct {
	posThreshold int64
}

// NewTotalsHandler creates a new totals handler
func NewTotalsHandler(posThreshold int64) *TotalsHandler {
	return &TotalsHandler{posThreshold: posThreshold}
}

type totalsRequest struct {
	domain.TotalsPreviewRequest
	Payments []domain.PaymentForm `json:"payments"`
}

// Preview handles POST /api/v1/totals
func (h *TotalsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t := totals.Compute(req.Lines, totals.Config{
		TaxIncluded:   req.TaxIncluded,
		RetentionRate: req.RetentionRate,
	})

	respondJSON(w, http.StatusOK, TotalsResponse{
		Totals:             t,
		Payments:           totals.SumPayments(req.Payments),
		RequiresElectronic: totals.RequiresElectronicInvoice(t.Total, h.posThreshold),
	})
}
