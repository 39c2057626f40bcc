// Package tasks runs post-issuance work on asynq
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/folio/folio/internal/authority"
	"github.com/folio/folio/internal/domain"
	"github.com/folio/folio/internal/logger"
)

// Task types
const (
	TypeDocumentNotify  = "documents:notify"
	TypeDocumentConfirm = "documents:confirm"
)

// ConfirmationPollDelay is how long the first status poll waits after issuance
const ConfirmationPollDelay = 30 * time.Second

// errStillPending makes asynq retry the poll with its backoff
var errStillPending = errors.New("confirmation still pending")

// NotifyPayload asks for the validated document to be emailed to the recipient
type NotifyPayload struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	DocumentID     uuid.UUID `json:"document_id"`
	Email          string    `json:"email"`
}

// ConfirmPayload asks for a pending confirmation to be resolved
type ConfirmPayload struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	DocumentID     uuid.UUID `json:"document_id"`
	ValidationID   string    `json:"validation_id"`
}

// RedisOpt derives asynq connection options from a go-redis client
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// --- Enqueuing ---

// Client enqueues issuance follow-up tasks
type Client struct {
	client *asynq.Client
}

// NewClient creates a task client
func NewClient(opt asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(opt)}
}

// Close releases the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueNotification schedules the recipient email for a document
func (c *Client) EnqueueNotification(ctx context.Context, orgID, documentID uuid.UUID, email string) error {
	task, err := NewNotifyTask(NotifyPayload{OrganizationID: orgID, DocumentID: documentID, Email: email})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.MaxRetry(5))
	return err
}

// EnqueueConfirmationPoll schedules the status poll of a pending confirmation
func (c *Client) EnqueueConfirmationPoll(ctx context.Context, orgID, documentID uuid.UUID, validationID string) error {
	task, err := NewConfirmTask(ConfirmPayload{OrganizationID: orgID, DocumentID: documentID, ValidationID: validationID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessIn(ConfirmationPollDelay), asynq.MaxRetry(20))
	return err
}

// NewNotifyTask builds a documents:notify task
func NewNotifyTask(p NotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notify payload: %w", err)
	}
	return asynq.NewTask(TypeDocumentNotify, data), nil
}

// NewConfirmTask builds a documents:confirm task
func NewConfirmTask(p ConfirmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal confirm payload: %w", err)
	}
	return asynq.NewTask(TypeDocumentConfirm, data), nil
}

// --- Processing ---

// DocumentStore is the slice of the document repository the handlers need
type DocumentStore interface {
	FindByID(ctx context.Context, orgID, id uuid.UUID) (*domain.Document, error)
	ResolvePendingConfirmation(ctx context.Context, id uuid.UUID, c *domain.Confirmation) (bool, error)
}

// Processor handles issuance follow-up tasks
type Processor struct {
	documents DocumentStore
	authority authority.Client
	log       zerolog.Logger
}

// NewProcessor creates a task processor
func NewProcessor(documents DocumentStore, client authority.Client) *Processor {
	return &Processor{
		documents: documents,
		authority: client,
		log:       logger.WithComponent("tasks"),
	}
}

// NewServer creates the asynq worker server
func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	log := logger.WithComponent("worker")
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			if errors.Is(err, errStillPending) {
				return
			}
			log.Error().Err(err).Str("task_type", task.Type()).Msg("task failed")
		}),
	})
}

// Mux routes task types to the processor handlers
func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDocumentNotify, p.HandleNotifyTask)
	mux.HandleFunc(TypeDocumentConfirm, p.HandleConfirmTask)
	return mux
}

// HandleNotifyTask emails a confirmed document to its recipient through the authority
func (p *Processor) HandleNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal notify payload: %v: %w", err, asynq.SkipRetry)
	}

	doc, err := p.documents.FindByID(ctx, payload.OrganizationID, payload.DocumentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %s not found: %w", payload.DocumentID, asynq.SkipRetry)
	}
	if doc.Confirmation == nil {
		return fmt.Errorf("document %s has no confirmation: %w", payload.DocumentID, asynq.SkipRetry)
	}

	sent, err := p.authority.SendNotification(ctx, doc.Confirmation, payload.Email)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if !sent {
		p.log.Warn().Str("document_id", doc.ID.String()).Msg("authority did not send the notification")
	}
	return nil
}

// HandleConfirmTask polls the authority until a pending confirmation is resolved
func (p *Processor) HandleConfirmTask(ctx context.Context, t *asynq.Task) error {
	var payload ConfirmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal confirm payload: %v: %w", err, asynq.SkipRetry)
	}

	doc, err := p.documents.FindByID(ctx, payload.OrganizationID, payload.DocumentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %s not found: %w", payload.DocumentID, asynq.SkipRetry)
	}
	if doc.Confirmation == nil || doc.Confirmation.Status != domain.ConfirmationPending {
		return nil
	}

	confirmation, err := p.authority.FetchStatus(ctx, payload.ValidationID)
	if err != nil {
		return fmt.Errorf("failed to fetch confirmation status: %w", err)
	}
	if confirmation.Status == domain.ConfirmationPending {
		return errStillPending
	}

	resolved, err := p.documents.ResolvePendingConfirmation(ctx, doc.ID, confirmation)
	if err != nil {
		return err
	}
	p.log.Info().
		Str("document_id", doc.ID.String()).
		Str("status", string(confirmation.Status)).
		Bool("resolved", resolved).
		Msg("confirmation resolved")
	return nil
}
