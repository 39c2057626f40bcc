package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/internal/api/handlers"
	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/draft"
	"github.com/folio/folio/internal/service"
)

var testOrg = &domain.Organization{ID: uuid.New(), Name: "Acme", IsActive: true}

type fakeAuth struct{}

func (fakeAuth) Authenticate(_ context.Context, token string) (*domain.Organization, error) {
	if token != "valid" {
		return nil, service.ErrInvalidCredentials
	}
	return testOrg, nil
}

func (fakeAuth) ValidateOAuthCredentials(_ context.Context, clientID, secret string) (*domain.Organization, error) {
	if clientID != "acme" || secret != "s3cret" {
		return nil, service.ErrInvalidCredentials
	}
	return testOrg, nil
}

func (fakeAuth) GenerateToken(*domain.Organization) (*domain.OAuthTokenResponse, error) {
	return &domain.OAuthTokenResponse{AccessToken: "valid", TokenType: "Bearer", ExpiresIn: 3600}, nil
}

type fakeIssuer struct {
	got    domain.Draft
	result *domain.IssuedDocument
	err    error
}

func (f *fakeIssuer) Issue(_ context.Context, _ *domain.Organization, d domain.Draft) (*domain.IssuedDocument, error) {
	f.got = d
	return f.result, f.err
}

type fakeDocuments struct {
	doc *domain.Document
}

func (f fakeDocuments) FindByID(_ context.Context, _, id uuid.UUID) (*domain.Document, error) {
	if f.doc != nil && f.doc.ID == id {
		return f.doc, nil
	}
	return nil, nil
}

type fakeDrafts struct {
	current domain.Draft
	applied []draft.Action
}

func (f *fakeDrafts) Current(_ context.Context, _ *domain.Organization, docType domain.DocumentType) (domain.Draft, error) {
	if !docType.Valid() {
		return domain.Draft{}, &service.IssuanceError{Kind: service.KindPrecondition, Message: service.ErrUnknownDocumentType.Error()}
	}
	f.current.DocumentType = docType
	return f.current, nil
}

func (f *fakeDrafts) Apply(ctx context.Context, org *domain.Organization, docType domain.DocumentType, action draft.Action) (domain.Draft, error) {
	f.applied = append(f.applied, action)
	d, err := f.Current(ctx, org, docType)
	if err != nil {
		return d, err
	}
	f.current = draft.Reduce(d, action)
	return f.current, nil
}

func (f *fakeDrafts) Discard(ctx context.Context, org *domain.Organization, docType domain.DocumentType) (domain.Draft, error) {
	return f.Apply(ctx, org, docType, draft.Reset{})
}

func (f *fakeDrafts) Duplicate(_ context.Context, _ *domain.Organization, docType domain.DocumentType, id uuid.UUID) (domain.Draft, error) {
	return domain.Draft{}, service.ErrNotFound
}

type fixture struct {
	handler   http.Handler
	issuer    *fakeIssuer
	drafts    *fakeDrafts
	documents fakeDocuments
}

func newFixture(t *testing.T, checks map[string]handlers.Check) *fixture {
	t.Helper()
	f := &fixture{
		issuer: &fakeIssuer{},
		drafts: &fakeDrafts{},
		documents: fakeDocuments{doc: &domain.Document{
			ID:             uuid.New(),
			OrganizationID: testOrg.ID,
			DocumentType:   domain.DocumentTypeQuote,
			InternalNumber: 7,
			IssuedAt:       time.Now().UTC(),
		}},
	}
	f.handler = NewRouter(Dependencies{
		Auth:         fakeAuth{},
		Issuer:       f.issuer,
		Documents:    f.documents,
		Drafts:       f.drafts,
		POSThreshold: 1000,
		Checks:       checks,
	})
	return f
}

func (f *fixture) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer valid")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t, map[string]handlers.Check{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	rec := f.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")

	ok := newFixture(t, nil)
	assert.Equal(t, http.StatusOK, ok.do(http.MethodGet, "/ready", nil, nil).Code)
}

func TestOAuthToken(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/v1/oauth/token", domain.OAuthTokenRequest{GrantType: "password"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/oauth/token", domain.OAuthTokenRequest{
		GrantType: "client_credentials", ClientID: "acme", ClientSecret: "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/oauth/token", domain.OAuthTokenRequest{
		GrantType: "client_credentials", ClientID: "acme", ClientSecret: "s3cret",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "valid", decode[domain.OAuthTokenResponse](t, rec).AccessToken)
}

func TestDocumentTypes(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/api/v1/document-types", nil, map[string]string{"Authorization": ""})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string][]handlers.DocumentTypeView](t, rec)
	assert.Len(t, body["document_types"], len(domain.DocumentTypes()))
}

func TestIssue_RequiresAuthentication(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/api/v1/documents/quote", domain.Draft{}, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssue_Success(t *testing.T) {
	f := newFixture(t, nil)
	f.issuer.result = &domain.IssuedDocument{
		DocumentID:     uuid.New(),
		DocumentType:   domain.DocumentTypeQuote,
		InternalNumber: 1,
		CorrelationID:  "corr-1",
	}

	rec := f.do(http.MethodPost, "/api/v1/documents/quote", domain.Draft{Notes: "rush"}, map[string]string{"X-Correlation-ID": "corr-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[domain.IssueResponse](t, rec)
	require.NotNil(t, resp.Document)
	assert.Equal(t, int64(1), resp.Document.InternalNumber)
	assert.Empty(t, resp.Kind)

	assert.Equal(t, domain.DocumentTypeQuote, f.issuer.got.DocumentType)
	assert.Equal(t, testOrg.ID, f.issuer.got.OrganizationID)
	assert.Equal(t, "corr-1", f.issuer.got.CorrelationID)
	assert.Equal(t, "rush", f.issuer.got.Notes)
}

func TestIssue_CorrelationFallsBackToRequestID(t *testing.T) {
	f := newFixture(t, nil)
	f.issuer.result = &domain.IssuedDocument{}

	rec := f.do(http.MethodPost, "/api/v1/documents/quote", domain.Draft{}, map[string]string{"X-Request-ID": "req-9"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "req-9", f.issuer.got.CorrelationID)
}

func TestIssue_Failures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		kind      string
		retryable bool
	}{
		{
			name:   "precondition",
			err:    &service.IssuanceError{Kind: service.KindPrecondition, Message: "products not found", Missing: []string{"line 2"}},
			status: http.StatusUnprocessableEntity,
			kind:   "precondition",
		},
		{
			name:   "contention",
			err:    &service.IssuanceError{Kind: service.KindContention, Message: "resolution exhausted"},
			status: http.StatusConflict,
			kind:   "contention",
		},
		{
			name:   "external",
			err:    &service.IssuanceError{Kind: service.KindExternal, Message: "rejected", ReferenceID: "REJ-1"},
			status: http.StatusBadGateway,
			kind:   "external",
		},
		{
			name:      "timeout",
			err:       &service.IssuanceError{Kind: service.KindTimeout, Message: "transaction aborted"},
			status:    http.StatusServiceUnavailable,
			kind:      "timeout",
			retryable: true,
		},
		{
			name:   "unclassified",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			kind:   "internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.issuer.err = tt.err

			rec := f.do(http.MethodPost, "/api/v1/documents/pos_invoice", domain.Draft{}, map[string]string{"X-Correlation-ID": "corr-2"})
			assert.Equal(t, tt.status, rec.Code)

			resp := decode[domain.IssueResponse](t, rec)
			assert.Nil(t, resp.Document)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.Equal(t, tt.retryable, resp.Retryable)
			assert.Equal(t, "corr-2", resp.CorrelationID)
			if tt.name == "precondition" {
				assert.Equal(t, []string{"line 2"}, resp.Missing)
			}
			if tt.name == "external" {
				assert.Equal(t, "REJ-1", resp.ReferenceID)
			}
		})
	}
}

func TestIssue_InvalidBody(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/quote", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer valid")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocument(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/v1/documents/"+f.documents.doc.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), decode[domain.Document](t, rec).InternalNumber)

	rec = f.do(http.MethodGet, "/api/v1/documents/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/documents/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTotalsPreview(t *testing.T) {
	f := newFixture(t, nil)
	body := map[string]interface{}{
		"lines": []map[string]interface{}{
			{"product_id": uuid.NewString(), "quantity": 2, "price": 1000, "tax_rate": "19", "discount_rate": "0"},
		},
		"payments": []domain.PaymentForm{{Method: "cash", Amount: 2380}},
	}

	rec := f.do(http.MethodPost, "/api/v1/totals", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[handlers.TotalsResponse](t, rec)
	assert.Equal(t, int64(2000), resp.Totals.Subtotal)
	assert.Equal(t, int64(380), resp.Totals.Tax)
	assert.Equal(t, int64(2380), resp.Totals.Total)
	assert.Equal(t, int64(2380), resp.Payments)
	assert.True(t, resp.RequiresElectronic)
}

func TestDrafts(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/v1/drafts/quote", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DocumentTypeQuote, decode[domain.Draft](t, rec).DocumentType)

	rec = f.do(http.MethodGet, "/api/v1/drafts/receipt", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/drafts/quote/actions", map[string]interface{}{
		"type":    "set_notes",
		"payload": map[string]string{"notes": "call first"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "call first", decode[domain.Draft](t, rec).Notes)
	require.Len(t, f.drafts.applied, 1)
	assert.Equal(t, draft.SetNotes{Notes: "call first"}, f.drafts.applied[0])

	rec = f.do(http.MethodPost, "/api/v1/drafts/quote/actions", map[string]interface{}{"type": "teleport"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/drafts/quote/duplicate/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/drafts/quote", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	discarded := decode[domain.Draft](t, rec)
	assert.Empty(t, discarded.Notes)
	assert.Equal(t, domain.DocumentTypeQuote, discarded.DocumentType)
}
