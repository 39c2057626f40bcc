package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/folio/folio/internal/domain"
)

// RedisDraftStore keeps one draft snapshot per organization and document type
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDraftStore creates a draft store; snapshots expire after ttl of inactivity
func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func draftKey(orgID uuid.UUID, docType domain.DocumentType) string {
	return fmt.Sprintf("draft:%s:%s", orgID.String(), docType)
}

// Load returns the stored draft, or nil when there is none
func (s *RedisDraftStore) Load(ctx context.Context, orgID uuid.UUID, docType domain.DocumentType) (*domain.Draft, error) {
	data, err := s.client.Get(ctx, draftKey(orgID, docType)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	var d domain.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &d, nil
}

// Save stores the draft under its organization and document type
func (s *RedisDraftStore) Save(ctx context.Context, d *domain.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(d.OrganizationID, d.DocumentType), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Delete discards the stored draft
func (s *RedisDraftStore) Delete(ctx context.Context, orgID uuid.UUID, docType domain.DocumentType) error {
	if err := s.client.Del(ctx, draftKey(orgID, docType)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
