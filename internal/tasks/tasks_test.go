package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/internal/authority"
	"github.com/folio/folio/internal/domain"
)

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) FindByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, orgID, id)
	doc, _ := args.Get(0).(*domain.Document)
	return doc, args.Error(1)
}

func (m *MockDocumentStore) ResolvePendingConfirmation(ctx context.Context, id uuid.UUID, c *domain.Confirmation) (bool, error) {
	args := m.Called(ctx, id, c)
	return args.Bool(0), args.Error(1)
}

type MockAuthority struct {
	mock.Mock
}

func (m *MockAuthority) Submit(ctx context.Context, payload *authority.Payload) (*authority.SubmitResult, error) {
	args := m.Called(ctx, payload)
	res, _ := args.Get(0).(*authority.SubmitResult)
	return res, args.Error(1)
}

func (m *MockAuthority) FetchStatus(ctx context.Context, validationID string) (*domain.Confirmation, error) {
	args := m.Called(ctx, validationID)
	c, _ := args.Get(0).(*domain.Confirmation)
	return c, args.Error(1)
}

func (m *MockAuthority) SendNotification(ctx context.Context, c *domain.Confirmation, email string) (bool, error) {
	args := m.Called(ctx, c, email)
	return args.Bool(0), args.Error(1)
}

func confirmedDocument(status domain.ConfirmationStatus) *domain.Document {
	return &domain.Document{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		DocumentType:   domain.DocumentTypeElectronicInvoice,
		Confirmation:   &domain.Confirmation{ValidationID: "CUFE-7", Status: status},
	}
}

func TestHandleNotifyTask_Success(t *testing.T) {
	docs := new(MockDocumentStore)
	auth := new(MockAuthority)
	p := NewProcessor(docs, auth)

	doc := confirmedDocument(domain.ConfirmationAccepted)
	task, err := NewNotifyTask(NotifyPayload{OrganizationID: doc.OrganizationID, DocumentID: doc.ID, Email: "buyer@example.com"})
	require.NoError(t, err)

	docs.On("FindByID", mock.Anything, doc.OrganizationID, doc.ID).Return(doc, nil)
	auth.On("SendNotification", mock.Anything, doc.Confirmation, "buyer@example.com").Return(true, nil)

	require.NoError(t, p.HandleNotifyTask(context.Background(), task))
	docs.AssertExpectations(t)
	auth.AssertExpectations(t)
}

func TestHandleNotifyTask_MissingDocumentSkipsRetry(t *testing.T) {
	docs := new(MockDocumentStore)
	auth := new(MockAuthority)
	p := NewProcessor(docs, auth)

	payload := NotifyPayload{OrganizationID: uuid.New(), DocumentID: uuid.New(), Email: "x@example.com"}
	task, err := NewNotifyTask(payload)
	require.NoError(t, err)

	docs.On("FindByID", mock.Anything, payload.OrganizationID, payload.DocumentID).Return(nil, nil)

	err = p.HandleNotifyTask(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	auth.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleNotifyTask_BadPayload(t *testing.T) {
	p := NewProcessor(new(MockDocumentStore), new(MockAuthority))
	err := p.HandleNotifyTask(context.Background(), asynq.NewTask(TypeDocumentNotify, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleNotifyTask_AuthorityErrorRetries(t *testing.T) {
	docs := new(MockDocumentStore)
	auth := new(MockAuthority)
	p := NewProcessor(docs, auth)

	doc := confirmedDocument(domain.ConfirmationAccepted)
	task, err := NewNotifyTask(NotifyPayload{OrganizationID: doc.OrganizationID, DocumentID: doc.ID, Email: "b@example.com"})
	require.NoError(t, err)

	docs.On("FindByID", mock.Anything, doc.OrganizationID, doc.ID).Return(doc, nil)
	auth.On("SendNotification", mock.Anything, doc.Confirmation, "b@example.com").Return(false, assert.AnError)

	err = p.HandleNotifyTask(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleConfirmTask_ResolvesPending(t *testing.T) {
	docs := new(MockDocumentStore)
	auth := new(MockAuthority)
	p := NewProcessor(docs, auth)

	doc := confirmedDocument(domain.ConfirmationPending)
	task, err := NewConfirmTask(ConfirmPayload{OrganizationID: doc.OrganizationID, DocumentID: doc.ID, ValidationID: "CUFE-7"})
	require.NoError(t, err)

	confirmedAt := time.Now().UTC()
	final := &domain.Confirmation{ValidationID: "CUFE-7", QRPayload: "qr://CUFE-7", Status: domain.ConfirmationAccepted, ConfirmedAt: &confirmedAt}

	docs.On("FindByID", mock.Anything, doc.OrganizationID, doc.ID).Return(doc, nil)
	auth.On("FetchStatus", mock.Anything, "CUFE-7").Return(final, nil)
	docs.On("ResolvePendingConfirmation", mock.Anything, doc.ID, final).Return(true, nil)

	require.NoError(t, p.HandleConfirmTask(context.Background(), task))
	docs.AssertExpectations(t)
}

func TestHandleConfirmTask_StillPendingRetries(t *testing.T) {
	docs := new(MockDocumentStore)
	auth := new(MockAuthority)
	p := NewProcessor(docs, auth)

	doc := confirmedDocument(domain.ConfirmationPending)
	task, err := NewConfirmTask(ConfirmPayload{OrganizationID: doc.OrganizationID, DocumentID: doc.ID, ValidationID: "CUFE-7"})
	require.NoError(t, err)

	docs.On("FindByID", mock.Anything, doc.OrganizationID, doc.ID).Return(doc, nil)
	auth.On("FetchStatus", mock.Anything, "CUFE-7").Return(&domain.Confirmation{ValidationID: "CUFE-7", Status: domain.ConfirmationPending}, nil)

	err = p.HandleConfirmTask(context.Background(), task)
	assert.ErrorIs(t, err, errStillPending)
	docs.AssertNotCalled(t, "ResolvePendingConfirmation", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleConfirmTask_AlreadyResolved(t *testing.T) {
	docs := new(MockDocumentStore)
	auth := new(MockAuthority)
	p := NewProcessor(docs, auth)

	doc := confirmedDocument(domain.ConfirmationAccepted)
	task, err := NewConfirmTask(ConfirmPayload{OrganizationID: doc.OrganizationID, DocumentID: doc.ID, ValidationID: "CUFE-7"})
	require.NoError(t, err)

	docs.On("FindByID", mock.Anything, doc.OrganizationID, doc.ID).Return(doc, nil)

	require.NoError(t, p.HandleConfirmTask(context.Background(), task))
	auth.AssertNotCalled(t, "FetchStatus", mock.Anything, mock.Anything)
}

func TestNewConfirmTask_Payload(t *testing.T) {
	p := ConfirmPayload{OrganizationID: uuid.New(), DocumentID: uuid.New(), ValidationID: "V-1"}
	task, err := NewConfirmTask(p)
	require.NoError(t, err)
	assert.Equal(t, TypeDocumentConfirm, task.Type())

	var got ConfirmPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &got))
	assert.Equal(t, p, got)
}
