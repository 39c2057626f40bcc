package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/folio/folio/internal/api/middleware"
	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/draft"
	"github.com/folio/folio/internal/service"
)

// DraftEditor edits the stored draft of each document type
type DraftEditor interface {
	Current(ctx context.Context, org *domain.Organization, docType domain.DocumentType) (domain.Draft, error)
	Apply(ctx context.Context, org *domain.Organization, docType domain.DocumentType, action draft.Action) (domain.Draft, error)
	Discard(ctx context.Context, org *domain.Organization, docType domain.DocumentType) (domain.Draft, error)
	Duplicate(ctx context.Context, org *domain.Organization, docType domain.DocumentType, documentID uuid.UUID) (domain.Draft, error)
}

// DraftHandler handles draft editing HTTP requests
type DraftHandler struct {
	drafts DraftEditor
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(drafts DraftEditor) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// Get handles GET /api/v1/drafts/{type}
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrganization(r.Context())
	d, err := h.drafts.Current(r.Context(), org, draftType(r))
	if err != nil {
		respondDraftError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// Apply handles POST /api/v1/drafts/{type}/actions
func (h *DraftHandler) Apply(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrganization(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	action, err := draft.DecodeAction(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.drafts.Apply(r.Context(), org, draftType(r), action)
	if err != nil {
		respondDraftError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// Discard handles DELETE /api/v1/drafts/{type}
func (h *DraftHandler) Discard(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrganization(r.Context())
	d, err := h.drafts.Discard(r.Context(), org, draftType(r))
	if err != nil {
		respondDraftError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// Duplicate handles POST /api/v1/drafts/{type}/duplicate/{id}
func (h *DraftHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrganization(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	d, err := h.drafts.Duplicate(r.Context(), org, draftType(r), id)
	if err != nil {
		respondDraftError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func draftType(r *http.Request) domain.DocumentType {
	return domain.DocumentType(chi.URLParam(r, "type"))
}

func respondDraftError(w http.ResponseWriter, r *http.Request, err error) {
	var issErr *service.IssuanceError
	switch {
	case errors.As(err, &issErr):
		respondError(w, issErr.Kind.HTTPStatus(), issErr.Message)
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "Document not found")
	default:
		middleware.RequestLogger(r.Context()).Error().Err(err).Msg("draft operation failed")
		respondError(w, http.StatusInternalServerError, "Draft operation failed")
	}
}
