package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/folio/folio/internal/api/middleware"
	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/service"
)

// Issuer issues a finalized draft
type Issuer interface {
	Issue(ctx context.Context, org *domain.Organization, d domain.Draft) (*domain.IssuedDocument, error)
}

// DocumentFinder loads issued documents
type DocumentFinder interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Document, error)
}

// DocumentHandler handles document issuance HTTP requests
type DocumentHandler struct {
	issuer    Issuer
	documents DocumentFinder
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(issuer Issuer, documents DocumentFinder) *DocumentHandler {
	return &DocumentHandler{issuer: issuer, documents: documents}
}

// Issue handles POST /api/v1/documents/{type}
func (h *DocumentHandler) Issue(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrganization(r.Context())

	var d domain.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	d.OrganizationID = org.ID
	d.DocumentType = domain.DocumentType(chi.URLParam(r, "type"))
	if d.CorrelationID == "" {
		d.CorrelationID = r.Header.Get("X-Correlation-ID")
	}
	if d.CorrelationID == "" {
		d.CorrelationID = middleware.GetRequestID(r.Context())
	}

	issued, err := h.issuer.Issue(r.Context(), org, d)
	if err != nil {
		respondIssuanceError(w, r, err, d.CorrelationID)
		return
	}

	respondJSON(w, http.StatusCreated, domain.IssueResponse{Document: issued})
}

// Get handles GET /api/v1/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrganization(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	doc, err := h.documents.FindByID(r.Context(), org.ID, id)
	if err != nil {
		middleware.RequestLogger(r.Context()).Error().Err(err).Str("document_id", id.String()).Msg("failed to load document")
		respondError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}
	if doc == nil {
		respondError(w, http.StatusNotFound, "Document not found")
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// respondIssuanceError renders the failure variant of an issuance result
func respondIssuanceError(w http.ResponseWriter, r *http.Request, err error, correlationID string) {
	var issErr *service.IssuanceError
	if !errors.As(err, &issErr) {
		middleware.RequestLogger(r.Context()).Error().Err(err).Str("correlation_id", correlationID).Msg("unclassified issuance failure")
		respondJSON(w, http.StatusInternalServerError, domain.IssueResponse{
			Error:         "Internal error",
			Kind:          string(service.KindInternal),
			ReferenceID:   correlationID,
			CorrelationID: correlationID,
		})
		return
	}

	respondJSON(w, issErr.Kind.HTTPStatus(), domain.IssueResponse{
		Error:         issErr.Message,
		Kind:          string(issErr.Kind),
		ReferenceID:   issErr.ReferenceID,
		Missing:       issErr.Missing,
		Retryable:     issErr.Retryable(),
		CorrelationID: correlationID,
	})
}
